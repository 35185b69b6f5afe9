// Package configcmder provides the config command for managing persistent
// respchat configuration stored in the .respchat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent respchat configuration.

Configuration is stored as config.toml in the .respchat/ directory and
provides default values for command flags. CLI flags and RESPCHAT_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen, upstream.url, upstream.model,
  client.target, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  respchat config set <key> <value>    Set a configuration value
  respchat config get <key>            Get a configuration value
  respchat config list                 List all configuration values

Examples:
  respchat config set upstream.model gpt-4.1
  respchat config set eventstream.brokers localhost:9092,localhost:9093
  respchat config get relay.listen
  respchat config list`

const configShortDesc string = "Manage persistent respchat configuration"

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
