// Package dynragcmder
package dynragcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/ask"
	configcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/config"
	ingestcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/ingest"
	initcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/init"
	servecmder "github.com/danielpid/dynamic-rag/cmd/dynrag/serve"
	statuscmder "github.com/danielpid/dynamic-rag/cmd/dynrag/status"
	versioncmder "github.com/danielpid/dynamic-rag/cmd/version"
)

const dynragLongDesc string = `dynrag answers questions from your own documents.

It loads documents from S3 or a local directory, splits them into chunks,
embeds them into a vector store and answers questions grounded on the most
similar passages.

Get started:
  dynrag init --preset local    Create a .dynrag/ directory
  dynrag ingest                 Ingest the configured source
  dynrag ask "Who is Lira?"     Ask a question
  dynrag serve                  Run the HTTP API and MCP server`

const dynragShortDesc string = "dynrag - retrieval augmented answers over your documents"

func NewDynragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dynrag",
		Short:         dynragShortDesc,
		Long:          dynragLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .dynrag/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
