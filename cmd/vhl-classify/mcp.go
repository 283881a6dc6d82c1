package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/internal/setup"
)

func newMCPCmd(opts *globalOptions) *cobra.Command {
	var clientConfig, name string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register the MCP server with a desktop client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "Client config file (default: Claude Desktop config for this OS)")
	cmd.PersistentFlags().StringVar(&name, "name", setup.DefaultServerName, "Server name in the client config")

	var binary string
	register := &cobra.Command{
		Use:   "register",
		Short: "Add or update the classifier entry",
		Example: `  vhl-classify mcp register
  vhl-classify mcp register --binary ./bin/vhl-mcp-server --config ./config.yaml`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := setup.Register(setup.Options{
				ClientConfigPath: clientConfig,
				ServerName:       name,
				BinaryPath:       binary,
				ConfigFile:       opts.configPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s -> %s\nRestart the client to load it.\n", name, entry.Command)
			return nil
		},
	}
	register.Flags().StringVar(&binary, "binary", "", "MCP server binary (default: search PATH and ./bin, ./build)")
	cmd.AddCommand(register)

	cmd.AddCommand(&cobra.Command{
		Use:   "unregister",
		Short: "Remove the classifier entry",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := setup.Unregister(clientConfig, name)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not registered\n", name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the registration and any problems with it",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.Check(clientConfig, name)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client config: %s\n", status.ClientConfigPath)
			if status.Registered {
				fmt.Fprintf(out, "Registered:    %s\n", status.Entry.Command)
			} else {
				fmt.Fprintln(out, "Registered:    no")
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			return nil
		},
	})

	return cmd
}
