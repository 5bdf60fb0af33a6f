package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/ai-chatbot/internal/config"
)

// set with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgFile      string
	providerFlag string
	logLevelFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "chatbot",
		Short:         "Multi-session AI chat over HTTP or the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (default $CHATBOT_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider: openrouter, ollama or openai")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log level")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig applies flag overrides on top of file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if providerFlag != "" {
		cfg.AIProvider = providerFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatbot %s (commit %s)\n", version, commit)
		},
	}
}
