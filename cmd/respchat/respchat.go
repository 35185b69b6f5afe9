// Package respchatcmder
package respchatcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/kosar/responses-api/cmd/respchat/chat"
	configcmder "github.com/kosar/responses-api/cmd/respchat/config"
	servecmder "github.com/kosar/responses-api/cmd/respchat/serve"
	versioncmder "github.com/kosar/responses-api/cmd/respchat/version"
)

const respchatLongDesc string = `Respchat is a streaming chat demo over the Responses API.

Run the relay server with:
  respchat serve       Serve the browser UI and the SSE relay

Talk to a running relay with:
  respchat chat        Interactive terminal chat

Manage persistent configuration with:
  respchat config      Get, set, and list config values`

const respchatShortDesc string = "Respchat - Responses API relay chat"

func NewRespchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respchat",
		Short: respchatShortDesc,
		Long:  respchatLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .respchat/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
