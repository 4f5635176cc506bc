package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/certguard/caupdater/internal/updater"
)

func main() {
	os.Exit(int(execute(os.Args[1:])))
}

// execute runs the CLI and maps every way it can end to an exit code.
// A panic anywhere below becomes the unexpected-error code rather than
// a raw crash, and never rewrites persisted state.
func execute(args []string) (code updater.ExitCode) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "unexpected error: %v\n%s", r, debug.Stack())
			code = updater.ExitUnexpected
		}
	}()

	root, result := buildRoot()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			return updater.ExitUsage
		}
		// Everything else cobra surfaces here is a flag or argument
		// problem.
		fmt.Fprintf(os.Stderr, "To see usage, run %s --help\n", os.Args[0])
		return updater.ExitUsage
	}
	return *result
}
