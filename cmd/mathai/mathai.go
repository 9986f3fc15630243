// Package mathaicmder
package mathaicmder

import (
	"github.com/spf13/cobra"

	apicallcmder "github.com/papercomputeco/mathai/cmd/mathai/apicall"
	askcmder "github.com/papercomputeco/mathai/cmd/mathai/ask"
	authcmder "github.com/papercomputeco/mathai/cmd/mathai/auth"
	chatcmder "github.com/papercomputeco/mathai/cmd/mathai/chat"
	configcmder "github.com/papercomputeco/mathai/cmd/mathai/config"
	conversationscmder "github.com/papercomputeco/mathai/cmd/mathai/conversations"
	downloadcmder "github.com/papercomputeco/mathai/cmd/mathai/download"
	keyscmder "github.com/papercomputeco/mathai/cmd/mathai/keys"
	uploadcmder "github.com/papercomputeco/mathai/cmd/mathai/upload"
	versioncmder "github.com/papercomputeco/mathai/cmd/mathai/version"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/utils"
)

const mathaiLongDesc string = `mathai is a terminal client for a math AI chat backend.

Get started:
  mathai auth login <username>    Log in to the backend
  mathai chat                     Start an interactive session
  mathai ask "<question>"         Ask a single question

Configuration lives in .mathai/config.toml (see "mathai config list") and
can be overridden by MATHAI_* environment variables and flags.`

const mathaiShortDesc string = "mathai - math AI in your terminal"

func NewMathaiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mathai",
		Short:         mathaiShortDesc,
		Long:          mathaiLongDesc,
		Version:      utils.VersionString(),
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .mathai/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON debug logs to this file")
	jsonLogs := config.Flags[config.FlagJSONLogs]
	cmd.PersistentFlags().Bool(jsonLogs.Name, false, jsonLogs.Description)

	// Add subcommands
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(uploadcmder.NewUploadCmd())
	cmd.AddCommand(downloadcmder.NewDownloadCmd())
	cmd.AddCommand(keyscmder.NewKeysCmd())
	cmd.AddCommand(apicallcmder.NewAPICmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
