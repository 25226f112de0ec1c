// Package configcmder provides the config command for managing persistent
// dynrag configuration stored in the .dynrag/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent dynrag configuration.

Configuration is stored as config.toml in the .dynrag/ directory and provides
default values for command flags. CLI flags and DYNRAG_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, e.g.
  source.bucket, source.key, database.host, database.credentials_secret,
  embedding.model, embedding.dimensions, llm.model, chunk.size, index.top_k

Use subcommands to get, set, or list configuration values:
  dynrag config set <key> <value>    Set a configuration value
  dynrag config get <key>            Get a configuration value
  dynrag config list                 List all configuration values

Examples:
  dynrag config set source.bucket my-stories
  dynrag config set embedding.model text-embedding-3-small
  dynrag config get database.host
  dynrag config list`

const configShortDesc string = "Manage persistent dynrag configuration"

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
