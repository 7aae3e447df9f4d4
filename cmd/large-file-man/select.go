package main

import (
	"github.com/spf13/cobra"

	"large-file-man/internal/config"
	"large-file-man/internal/script"
	"large-file-man/internal/tui"
)

func newSelectCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick files from the inventory and generate their deletion script",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bindFlags(cmd, map[string]string{
				config.KeyDialect: "dialect",
				config.KeyToken:   "token",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := config.Load(a.v, a.log)
			dialect, err := script.ParseDialect(settings.Dialect)
			if err != nil {
				return err
			}
			a.log.WithField("inventory", settings.InventoryPath).Debug("starting selection screen")
			return tui.Run(tui.Options{
				InventoryPath: settings.InventoryPath,
				Dialect:       dialect,
				Token:         settings.Token,
				ScriptPath:    output,
			})
		},
	}
	addScriptFlags(cmd, &output)
	return cmd
}

// addScriptFlags registers the flags shared by commands that write a script.
func addScriptFlags(cmd *cobra.Command, output *string) {
	cmd.Flags().String("dialect", "", "script dialect: sh or powershell (default depends on the OS)")
	cmd.Flags().String("token", script.DefaultToken, "answer both confirmation prompts must match")
	cmd.Flags().StringVarP(output, "output", "o", "", "script destination (default supprime_fichiers.<ext> next to the inventory)")
}
