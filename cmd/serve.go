package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"livecode/config"
	"livecode/server"
	"livecode/service"
	"livecode/service/stors/progstor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the program server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		repo, err := progstor.Open(config.C)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, repo.Close()) }()
		return server.Serve(cmd.Context(), config.C, repo, service.Default())
	},
}
