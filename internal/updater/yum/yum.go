// Package yum implements the update executor against yum/dnf and
// repoquery. Before updating it verifies that every required package is
// provided by an external repository: with the cert repos disabled, yum
// finds no updates and still exits zero, which must not count as
// success.
package yum

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/certguard/caupdater/internal/updater"
)

// DefaultPackages is the CA-certificate bundle package set kept current
// by default. Requirements, not package names, so the packages can be
// renamed upstream without breaking the availability check.
var DefaultPackages = []string{
	"osg-ca-certs",
	"osg-ca-certs-compat",
	"igtf-ca-certs",
	"igtf-ca-certs-compat",
}

// Runner executes an external command and returns its stdout and
// stderr. A non-nil error reports a nonzero exit or a failure to start.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.String(), errb.String(), err
}

// Config controls which binaries and packages the executor drives.
type Config struct {
	Bin          string   // package manager binary, default "yum"
	RepoqueryBin string   // default "repoquery"
	Packages     []string // default DefaultPackages
	Logger       *slog.Logger
}

// Executor shells out to repoquery and yum. It reports exactly one
// outcome per Update call and never touches persisted state.
type Executor struct {
	cfg    Config
	runner Runner
}

func New(cfg Config) *Executor {
	if cfg.Bin == "" {
		cfg.Bin = "yum"
	}
	if cfg.RepoqueryBin == "" {
		cfg.RepoqueryBin = "repoquery"
	}
	if len(cfg.Packages) == 0 {
		cfg.Packages = DefaultPackages
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Executor{cfg: cfg, runner: execRunner{}}
}

// NewWithRunner is like New but injects the command runner, for tests.
func NewWithRunner(cfg Config, r Runner) *Executor {
	e := New(cfg)
	e.runner = r
	return e
}

func (e *Executor) Update(ctx context.Context) updater.Outcome {
	for _, req := range e.cfg.Packages {
		if o := e.verifyAvailable(ctx, req); !o.Success() {
			return o
		}
	}
	return e.runUpdate(ctx)
}

// verifyAvailable checks that at least one external repository provides
// the requirement. repoquery itself failing is retryable; a reachable
// repo set that simply does not carry the requirement is not.
func (e *Executor) verifyAvailable(ctx context.Context, requirement string) updater.Outcome {
	out, errOut, err := e.runner.Run(ctx, e.cfg.RepoqueryBin,
		"--plugins", "--whatprovides", requirement, "--queryformat=%{repoid}")
	if err != nil {
		return updater.Transient("unable to query repository for %s: %v: %s", requirement, err, strings.TrimSpace(errOut))
	}

	// Output is one repo id per matching package. "installed" is the
	// pseudo-repo of already-installed packages; only external repos
	// count.
	var external []string
	for _, repo := range strings.Split(out, "\n") {
		repo = strings.TrimSpace(repo)
		if repo == "" || strings.Contains(repo, "installed") {
			continue
		}
		external = append(external, repo)
	}
	if len(external) == 0 {
		return updater.Fatal("no external repos provide %s; ensure the cert repositories are enabled and accessible", requirement)
	}
	e.cfg.Logger.Debug("requirement available", "requirement", requirement, "repos", external)
	return updater.Outcome{Kind: updater.UpToDate}
}

func (e *Executor) runUpdate(ctx context.Context) updater.Outcome {
	args := append([]string{"update", "-y", "-q"}, e.cfg.Packages...)
	out, errOut, err := e.runner.Run(ctx, e.cfg.Bin, args...)

	combined := strings.TrimSpace(out + errOut)
	if combined != "" {
		e.cfg.Logger.Info("package manager output", "bin", e.cfg.Bin, "output", combined)
	}
	if err != nil {
		return updater.Transient("%s update failed: %v", e.cfg.Bin, err)
	}
	if combined != "" {
		return updater.Outcome{Kind: updater.Updated}
	}
	return updater.Outcome{Kind: updater.UpToDate}
}
