package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := &globalFlags{}
	build := func(cmd *cobra.Command) (*app, error) {
		return newApp(cmd.Context(), appOptions{
			configFile:   flags.configFile,
			messagesFile: flags.messagesFile,
			in:           os.Stdin,
			out:          cmd.OutOrStdout(),
			logOut:       cmd.ErrOrStderr(),
		})
	}

	if err := newRootCommand(build, flags).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNotCompleted) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
