package cmd

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"livecode/bridge"
	"livecode/config"
	"livecode/tui"
)

var serverURL string

func init() {
	for _, c := range []*cobra.Command{editCmd, pullCmd, pushCmd} {
		c.Flags().StringVarP(&serverURL, "server", "s", "", "program server url (defaults to server_url)")
	}
}

func endpointsFor(pid string) (bridge.Endpoints, error) {
	base := serverURL
	if base == "" {
		base = config.C.ServerURL
	}
	return bridge.EndpointsFor(config.C.EndpointShape, base, pid)
}

// clientOptions carries the settings shared by edit, pull and push.
func clientOptions(opts ...bridge.Option) []bridge.Option {
	return append(opts, bridge.WithAPIKey(config.C.APIKey))
}

// headless gives pull and push an editor without a preview surface.
func headless(b *bridge.Bridge, pid string) *bridge.Handle {
	return b.Initialize(bridge.NewMemContainer(pid, "", nil), 0)
}

var editCmd = &cobra.Command{
	Use:   "edit <pid>",
	Short: "Edit a program in the terminal; ctrl+s saves",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eps, err := endpointsFor(args[0])
		if err != nil {
			return err
		}
		client := bridge.NewClient()
		m := tui.New(cmd.Context(), args[0], eps, bridge.NewFramePreview(client), clientOptions(
			bridge.WithClient(client),
			bridge.WithLogger(slog.New(slog.DiscardHandler)),
		)...)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <pid>",
	Short: "Print a program's source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eps, err := endpointsFor(args[0])
		if err != nil {
			return err
		}
		b := bridge.New(eps, clientOptions()...)
		h := headless(b, args[0])
		if r := b.Hydrate(cmd.Context(), h); !r.OK() {
			return r.Err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), h.Widget().Value())
		return err
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <pid> <file>",
	Short: "Save a file as a program's source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eps, err := endpointsFor(args[0])
		if err != nil {
			return err
		}
		code, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		b := bridge.New(eps, clientOptions()...)
		h := headless(b, args[0])
		h.Widget().SetValue(string(code))
		r := b.Commit(cmd.Context(), h)
		if !r.OK() {
			return r.Err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", eps.DestinationURL(), r.Payload["status"])
		return nil
	},
}
