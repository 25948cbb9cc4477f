// Command stockdesk is the warehouse admin console.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/cli"
	"github.com/stockdesk/stockdesk/pkg/version"
)

// Exit codes beyond the generic failure.
const (
	exitPartialFailure = 2
	exitIncompatible   = 3
)

func main() {
	os.Exit(exitCode(run()))
}

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	return root.ExecuteContext(context.Background())
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrDeleteFailed):
		return exitPartialFailure
	case errors.Is(err, api.ErrIncompatible):
		return exitIncompatible
	default:
		return 1
	}
}
