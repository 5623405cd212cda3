package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"cxbin-converter/internal/convert"
)

// Exit statuses.
const (
	exitOK      = 0
	exitFailure = 1 // a conversion failed, or an input or output could not be accessed
	exitUsage   = 2 // bad flags, unknown format or nothing to convert
)

var errNoInputs = errors.New("no .cxbin files found for the given input")

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// reportedError marks errors already shown to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := a.rootCommand()
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return exitCode(cmd.ExecuteContext(ctx), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var rep *reportedError
	if !errors.As(err, &rep) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	var ue *usageError
	switch {
	case errors.As(err, &ue), errors.Is(err, errNoInputs):
		return exitUsage
	case convert.Kind(err) == convert.KindUnsupportedFormat:
		return exitUsage
	}
	return exitFailure
}

// usageArgs wraps a positional argument validator so its failures exit with
// exitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
