// Package ingestcmder provides the ingest command, which loads, chunks,
// embeds and stores the configured document source.
package ingestcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
	"github.com/danielpid/dynamic-rag/pkg/components"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/dotdir"
	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/logger"
)

type ingestCommander struct {
	flags config.FlagSet

	sourceProvider string
	bucket         string
	key            string
	region         string
	sourceRoot     string

	databaseProvider string
	databaseHost     string
	databasePort     uint
	databaseName     string
	databaseTarget   string

	embeddingProvider   string
	embeddingTarget     string
	embeddingModel      string
	embeddingDimensions uint

	chunkSize    int
	chunkOverlap int

	eventStreamProvider string

	configDir string
	debug     bool
	out       io.Writer
	logger    *slog.Logger
}

var ingestFlags = []string{
	config.FlagSourceProvider,
	config.FlagBucket,
	config.FlagKey,
	config.FlagRegion,
	config.FlagSourceRoot,
	config.FlagDatabaseProv,
	config.FlagDatabaseHost,
	config.FlagDatabasePort,
	config.FlagDatabaseName,
	config.FlagDatabaseTarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagEventStreamProv,
}

const ingestLongDesc string = `Ingest the configured document source into the vector store.

Documents are loaded from S3 (or a local directory with --source-provider
file), split into overlapping chunks, embedded and inserted into the
vector store. A key ending in "/" ingests every object under that prefix.

Ingesting the same source twice stores its chunks twice.

Examples:
  dynrag ingest
  dynrag ingest --bucket my-stories --key stories.txt
  dynrag ingest --source-provider file --source-root ./data --bucket corpus --key notes/`

const ingestShortDesc string = "Ingest documents into the vector store"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			cfg, err := config.Load(cmd, cmder.configDir, ingestFlags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagSourceProvider, &cmder.sourceProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBucket, &cmder.bucket)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKey, &cmder.key)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRegion, &cmder.region)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSourceRoot, &cmder.sourceRoot)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseProv, &cmder.databaseProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseHost, &cmder.databaseHost)
	config.AddUintFlag(cmd, cmder.flags, config.FlagDatabasePort, &cmder.databasePort)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseName, &cmder.databaseName)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseTarget, &cmder.databaseTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDimensions)
	config.AddIntFlag(cmd, cmder.flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, cmder.flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStreamProv, &cmder.eventStreamProvider)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, cfg *config.Config) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	comps, err := components.New(ctx, cfg, components.Options{Ingest: true, Logger: c.logger})
	if err != nil {
		return err
	}
	defer comps.Close()

	ref := components.SourceRef(cfg)

	var res ingest.Result
	stepErr := cliui.Step(c.out, "Ingesting "+ref.String(), func() error {
		res = comps.Ingest.Run(ctx, ref)
		return res.Err
	})

	c.saveLastIngest(res)
	c.printSummary(res)

	if stepErr != nil {
		if fault.Retryable(stepErr) {
			return fmt.Errorf("ingestion failed (%s, safe to retry): %w", fault.KindOf(stepErr), stepErr)
		}
		return fmt.Errorf("ingestion failed (%s): %w", fault.KindOf(stepErr), stepErr)
	}
	return nil
}

func (c *ingestCommander) printSummary(res ingest.Result) {
	const width = 10
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, cliui.KeyValue("Source", width, res.Source.String()))
	fmt.Fprintln(c.out, cliui.KeyValue("Status", width, string(res.Status)))
	fmt.Fprintln(c.out, cliui.KeyValue("Documents", width, strconv.Itoa(res.Documents)))
	fmt.Fprintln(c.out, cliui.KeyValue("Chunks", width, strconv.Itoa(res.Chunks)))
	fmt.Fprintln(c.out, cliui.KeyValue("Stored", width, strconv.Itoa(res.RecordsIngested)))
	fmt.Fprintln(c.out)
}

// saveLastIngest records the run for "dynrag status". Failing to write it
// never fails the ingestion.
func (c *ingestCommander) saveLastIngest(res ingest.Result) {
	state := &dotdir.LastIngest{
		Source:          res.Source.String(),
		Status:          string(res.Status),
		Documents:       res.Documents,
		Chunks:          res.Chunks,
		RecordsIngested: res.RecordsIngested,
		StartedAt:       res.Started,
		FinishedAt:      res.Finished,
	}
	if res.Err != nil {
		state.Error = res.Err.Error()
	}

	if err := dotdir.NewManager().SaveLastIngest(state, c.configDir); err != nil {
		c.logger.Warn("could not save last ingest", "error", err)
	}
}
