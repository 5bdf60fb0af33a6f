package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/ai-chatbot/internal/app"
	"github.com/suPer8Hu/ai-chatbot/internal/observability"
	"github.com/suPer8Hu/ai-chatbot/internal/repl"
)

func newChatCmd() *cobra.Command {
	var (
		historyFile string
		logFile     string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// JSON logs would interleave with the prompt.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			observability.Setup(logOut, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return repl.New(a.Service, cmd.OutOrStdout(), historyFile).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&historyFile, "history", defaultHistoryFile(), "input history file, empty to disable")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write JSON logs here")
	return cmd
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chatbot", "history")
}
