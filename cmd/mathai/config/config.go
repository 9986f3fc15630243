// Package configcmder provides the config command for managing persistent
// mathai configuration stored in the .mathai/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
)

const configLongDesc string = `Manage persistent mathai configuration.

Configuration is stored as config.toml in the .mathai/ directory and provides
default values for command flags. CLI flags and MATHAI_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.model, client.max_tokens, client.temperature,
  chat.system_prompt, chat.markdown, chat.followups,
  log.debug, log.json

Use subcommands to get, set, or list configuration values:
  mathai config set <key> <value>    Set a configuration value
  mathai config get <key>            Get a configuration value
  mathai config list                 List all configuration values

Examples:
  mathai config set client.base_url https://math.example.com
  mathai config set client.temperature 0.2
  mathai config get client.model
  mathai config list`

const configShortDesc string = "Manage persistent mathai configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(out io.Writer, cfger *config.Configer) {
	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
}
