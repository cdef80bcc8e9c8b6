package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/bind"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "binddemo",
		Short:        "Run data binding scenes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level of the binding engine (debug, info, warn, error); empty disables logging")
	root.AddCommand(newRunCmd(), newWatchCmd(), newCheckCmd())
	return root
}

// setupLogging installs a text logger on the bind package.
func setupLogging(w io.Writer, level string) error {
	if level == "" {
		bind.SetLogger(nil)
		return nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	bind.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}
