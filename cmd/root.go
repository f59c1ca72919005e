package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"livecode/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "livecode",
	Short:         "Live-coding server and editor bridge for browser sketches",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.InitConfig(configPath)
		// serve logs to stdout; client commands keep stdout for program text
		var out io.Writer = os.Stderr
		if cmd == serveCmd {
			out = os.Stdout
		}
		logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: config.C.SlogLevel(),
		}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the config file")
	rootCmd.AddCommand(serveCmd, editCmd, pullCmd, pushCmd)
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("failed to execute command", "err", err)
		cancel()
		os.Exit(1)
	}
}
