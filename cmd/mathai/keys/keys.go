// Package keyscmder provides the keys command for managing backend API keys.
package keyscmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
)

const keysLongDesc string = `List, create or revoke API keys for the logged in account.

Examples:
  mathai keys list
  mathai keys create
  mathai keys revoke mk-1234`

const keysShortDesc string = "Manage API keys"

func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: keysShortDesc,
		Long:  keysLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newActionCmd("create", "Create an API key", cobra.NoArgs))
	cmd.AddCommand(newActionCmd("revoke", "Revoke an API key", cobra.ExactArgs(1)))

	return cmd
}

func newActionCmd(action, short string, args cobra.PositionalArgs) *cobra.Command {
	var baseURL string

	use := action
	if action == "revoke" {
		use += " <key>"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.RequireLogin(); err != nil {
				return err
			}

			var key string
			if len(args) > 0 {
				key = args[0]
			}

			resp, err := env.Client.ManageAPIKey(cmd.Context(), action, key)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp, "  ", "  ")
			if err != nil {
				return fmt.Errorf("encoding response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %s\n  %s\n\n", cliui.SuccessMark, short, out)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}

func newListCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.RequireLogin(); err != nil {
				return err
			}

			keys, err := env.Client.ListAPIKeys(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintf(out, "\n  %s No API keys.\n\n", cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("API keys"))
			for _, k := range keys {
				lastUsed := k.LastUsed
				if lastUsed == "" {
					lastUsed = "never"
				}
				fmt.Fprintf(out, "  %s  %s  %s\n",
					cliui.NameStyle.Render(k.Key),
					cliui.DimStyle.Render("created "+k.CreatedAt),
					cliui.DimStyle.Render("last used "+lastUsed),
				)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}
