// Package askcmder provides the ask command, which answers a question from
// the ingested documents.
package askcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
	"github.com/danielpid/dynamic-rag/pkg/components"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/logger"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
)

type askCommander struct {
	flags config.FlagSet

	databaseProvider    string
	databaseHost        string
	databasePort        uint
	databaseName        string
	databaseTarget      string
	embeddingProvider   string
	embeddingTarget     string
	embeddingModel      string
	embeddingDimensions uint
	llmProvider         string
	llmTarget           string
	llmModel            string
	topK                int

	sources bool
	json    bool
	debug   bool
	out     io.Writer
	logger  *slog.Logger
}

var askFlags = []string{
	config.FlagDatabaseProv,
	config.FlagDatabaseHost,
	config.FlagDatabasePort,
	config.FlagDatabaseName,
	config.FlagDatabaseTarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagTopK,
}

const askLongDesc string = `Answer a question using only the ingested documents.

The question is embedded, the most similar passages are retrieved from the
vector store and the answer model is asked to answer from those passages
alone. Questions are limited to 256 characters by default.

Examples:
  dynrag ask "Who keeps the lighthouse?"
  dynrag ask --sources --top-k 4 "What does Lira do every night?"
  dynrag ask --json "Who is Lira?"`

const askShortDesc string = "Ask a question about the ingested documents"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			cfg, err := config.Load(cmd, configDir, askFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseProv, &cmder.databaseProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseHost, &cmder.databaseHost)
	config.AddUintFlag(cmd, cmder.flags, config.FlagDatabasePort, &cmder.databasePort)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseName, &cmder.databaseName)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseTarget, &cmder.databaseTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDimensions)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddIntFlag(cmd, cmder.flags, config.FlagTopK, &cmder.topK)

	cmd.Flags().BoolVar(&cmder.sources, "sources", false, "Show the passages the answer was grounded on")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the answer and its sources as JSON")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cfg *config.Config, question string) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	comps, err := components.New(ctx, cfg, components.Options{Query: true, Logger: c.logger})
	if err != nil {
		return err
	}
	defer comps.Close()

	answer, err := comps.Retrieve.Answer(ctx, question)
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) && fe.Kind == fault.Validation {
			return errors.New(fe.Message)
		}
		return err
	}

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	return c.render(answer)
}

func (c *askCommander) render(answer *retrieve.Answer) error {
	rendered, err := cliui.RenderMarkdown(answer.Answer)
	if err != nil {
		c.logger.Debug("could not render markdown", "error", err)
	}
	fmt.Fprint(c.out, rendered)

	if !c.sources {
		return nil
	}

	if len(answer.Sources) == 0 {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No matching passages."))
		return nil
	}

	fmt.Fprintf(c.out, "  %s\n", cliui.KeyStyle.Render("Sources"))
	for i, src := range answer.Sources {
		fmt.Fprintln(c.out, cliui.Source(i+1, src.NodeID, src.Score, src.Text))
	}
	fmt.Fprintln(c.out)
	return nil
}
