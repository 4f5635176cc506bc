package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/certguard/caupdater/internal/config"
	"github.com/certguard/caupdater/internal/history/factory"
	"github.com/certguard/caupdater/internal/logger"
	"github.com/certguard/caupdater/internal/metrics"
	"github.com/certguard/caupdater/internal/run"
	"github.com/certguard/caupdater/internal/state"
	"github.com/certguard/caupdater/internal/updater"
	"github.com/certguard/caupdater/internal/updater/yum"
)

// usageError reports invalid arguments; it maps to exit code 2 and is
// raised before any state is touched.
type usageError struct{ msg string }

func (e *usageError) Error() string { return "usage error: " + e.msg }

// buildRoot creates the CLI. The returned pointer receives the exit
// code computed by the run.
func buildRoot() (*cobra.Command, *updater.ExitCode) {
	runFlags := &RunFlags{}
	statusFlags := &StatusFlags{}
	code := new(updater.ExitCode)

	root := &cobra.Command{
		Use:   "caupdater",
		Short: "Auto-updater for CA certificate packages",
		Long: `caupdater keeps the CA-certificate bundle packages on this host
current. It is meant to be invoked periodically from cron or a systemd
timer; persisted timestamps of the last attempt and last success drive
skipping, load spreading, and escalation of repeated failures.

Exit codes: 0 success/skip/tolerated failure, 1 update failure past the
maximum age, 2 usage error, 3 interrupted, 4 fatal error, 99 unexpected.

Examples:
  caupdater -a 24 -x 72 -r 30
  caupdater --config /etc/caupdater.toml -v
  caupdater status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := executeRun(cmd, runFlags)
			if err != nil {
				return err
			}
			*code = c
			return nil
		},
	}
	addRunFlags(root, runFlags)
	root.AddCommand(createStatusCommand(statusFlags))

	return root, code
}

func addRunFlags(cmd *cobra.Command, f *RunFlags) {
	fl := cmd.Flags()
	fl.StringVar(&f.ConfigPath, "config", "", "path to TOML config file (optional)")
	fl.Float64VarP(&f.MinimumAgeHours, "minimum-age", "a", 0,
		"hours that must have elapsed since the last successful run before attempting an update; 0 means always update")
	fl.Float64VarP(&f.MaximumAgeHours, "maximum-age", "x", 0,
		"hours since the last successful run after which a failed update is a critical error; 0 means every failure is critical")
	fl.Float64VarP(&f.RandomWaitMinutes, "random-wait", "r", 0,
		"delay the update for a random duration between 0 and the given minutes to spread load on update servers")
	fl.StringVar(&f.StateFile, "state-file", "", "path of the persisted run record")
	fl.StringVar(&f.LockFile, "lock-file", "", "path of the run lock file (default <state-file>.lock)")
	fl.StringVar(&f.PackageManager, "package-manager", "", "package manager binary, yum or dnf")
	fl.StringVar(&f.RepoqueryBin, "repoquery", "", "repoquery binary used for the availability check")
	fl.StringSliceVar(&f.Packages, "packages", nil, "package requirements to keep current")
	fl.StringVar(&f.HistoryDSN, "history-dsn", "", "record run history to this DSN (sqlite path, postgres://, clickhouse:// or opensearch://)")
	fl.StringVar(&f.MetricsTextfile, "metrics-textfile", "", "write prometheus metrics to this textfile-collector path")
	fl.StringVarP(&f.LogFile, "logfile", "l", "", "write messages to the given file instead of console")
	fl.BoolVarP(&f.LogToSyslog, "log-to-syslog", "s", false, "write messages to syslog instead of console")
	fl.StringVar(&f.SyslogFacility, "syslog-facility", "user", "syslog facility to log to")
	fl.StringVar(&f.SyslogAddress, "syslog-address", "", "syslog address, host:port or socket path (default local syslog)")
	fl.BoolVarP(&f.Quiet, "quiet", "q", false, "only display errors")
	fl.BoolVarP(&f.Verbose, "verbose", "v", false, "display detailed information")
	fl.BoolVar(&f.Debug, "debug", false, "display debugging information")
}

// mergeConfig layers the config file (if any) over the defaults, then
// explicitly set flags over both.
func mergeConfig(changed func(string) bool, f *RunFlags) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		var err error
		cfg, err = config.Load(f.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	if changed("minimum-age") {
		cfg.MinimumAgeHours = f.MinimumAgeHours
	}
	if changed("maximum-age") {
		cfg.MaximumAgeHours = f.MaximumAgeHours
	}
	if changed("random-wait") {
		cfg.RandomWaitMinutes = f.RandomWaitMinutes
	}
	if changed("state-file") {
		cfg.StateFile = f.StateFile
	}
	if changed("lock-file") {
		cfg.LockFile = f.LockFile
	}
	if changed("package-manager") {
		cfg.PackageManager = f.PackageManager
	}
	if changed("repoquery") {
		cfg.RepoqueryBin = f.RepoqueryBin
	}
	if changed("packages") {
		cfg.Packages = f.Packages
	}
	if changed("history-dsn") {
		cfg.History.DSN = f.HistoryDSN
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.MetricsTextfile
	}
	if changed("logfile") {
		cfg.Log.File = f.LogFile
	}
	if changed("log-to-syslog") {
		cfg.Log.Syslog = f.LogToSyslog
	}
	if changed("syslog-facility") {
		cfg.Log.Facility = f.SyslogFacility
	}
	if changed("syslog-address") {
		cfg.Log.Address = f.SyslogAddress
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, &usageError{msg: err.Error()}
	}
	return cfg, nil
}

func executeRun(cmd *cobra.Command, f *RunFlags) (updater.ExitCode, error) {
	cfg, err := mergeConfig(cmd.Flags().Changed, f)
	if err != nil {
		return updater.ExitUsage, err
	}

	log, closer, err := logger.New(logger.Config{
		Level:          logger.ParseLevel(f.Quiet, f.Verbose, f.Debug),
		FilePath:       cfg.Log.File,
		MaxSizeMB:      cfg.Log.MaxSizeMB,
		MaxBackups:     cfg.Log.MaxBackups,
		MaxAgeDays:     cfg.Log.MaxAgeDays,
		Compress:       cfg.Log.Compress,
		Syslog:         cfg.Log.Syslog,
		SyslogFacility: cfg.Log.Facility,
		SyslogAddress:  cfg.Log.Address,
	})
	if err != nil {
		// The original treats an unusable log destination as fatal.
		fmt.Fprintln(os.Stderr, err)
		return updater.ExitFatal, nil
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewFileStore(cfg.StateFile, cfg.LockFile, log)
	if err := store.Acquire(); err != nil {
		log.Error("unable to acquire run lock", "error", err)
		return updater.ExitUnexpected, nil
	}
	defer func() { _ = store.Close() }()

	opts := run.Options{
		Store: store,
		Executor: yum.New(yum.Config{
			Bin:          cfg.PackageManager,
			RepoqueryBin: cfg.RepoqueryBin,
			Packages:     cfg.Packages,
			Logger:       log,
		}),
		MinimumAge:     hours(cfg.MinimumAgeHours),
		MaximumAge:     hours(cfg.MaximumAgeHours),
		RandomDelayMax: minutes(cfg.RandomWaitMinutes),
		Logger:         log,
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Error("unable to register metrics", "error", err)
		} else {
			opts.MetricsTextfile = cfg.Metrics.Textfile
		}
	}

	if cfg.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.History.DSN)
		if err != nil {
			log.Error("unable to open history sink", "dsn", cfg.History.DSN, "error", err)
		} else {
			opts.History = sink
			if c, ok := sink.(interface{ Close() error }); ok {
				defer func() { _ = c.Close() }()
			}
		}
	}
	if hostname, err := os.Hostname(); err == nil {
		opts.Hostname = hostname
	}

	return run.Cycle(ctx, opts), nil
}

func createStatusCommand(f *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted record of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := f.StateFile
			if path == "" {
				if f.ConfigPath != "" {
					cfg, err := config.Load(f.ConfigPath)
					if err != nil {
						return err
					}
					path = cfg.StateFile
				} else {
					path = config.Default().StateFile
				}
			}
			store := state.NewFileStore(path, "", nil)
			rec, err := store.Load()
			if err != nil {
				return err
			}
			printRecord(cmd, rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "path to TOML config file (optional)")
	cmd.Flags().StringVar(&f.StateFile, "state-file", "", "path of the persisted run record")
	return cmd
}

func printRecord(cmd *cobra.Command, rec state.Record) {
	if !rec.HasRun() {
		cmd.Println("no prior run recorded")
		return
	}
	cmd.Printf("last attempt: %s\n", rec.LastAttempt.Local().Format(time.RFC1123))
	if rec.HasSucceeded() {
		cmd.Printf("last success: %s\n", rec.LastSuccess.Local().Format(time.RFC1123))
	} else {
		cmd.Println("last success: never")
	}
	cmd.Printf("last outcome: %s\n", rec.LastOutcome)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
