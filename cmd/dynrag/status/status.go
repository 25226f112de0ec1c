// Package statuscmder provides the status command for displaying the last
// ingestion recorded in the .dynrag directory.
package statuscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
	"github.com/danielpid/dynamic-rag/pkg/dotdir"
)

const statusLongDesc string = `Show the outcome of the last "dynrag ingest".

Reads last_ingest.json from the local .dynrag/ directory (or ~/.dynrag/).

Examples:
  dynrag status`

const statusShortDesc string = "Show the last ingestion run"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runStatus(w io.Writer, configDir string) error {
	state, err := dotdir.NewManager().LoadLastIngest(configDir)
	if err != nil {
		return fmt.Errorf("loading last ingest: %w", err)
	}

	if state == nil {
		fmt.Fprintf(w, "  %s Nothing ingested yet. Run \"dynrag ingest\".\n", cliui.DimStyle.Render("●"))
		return nil
	}

	const width = 9
	mark := cliui.SuccessMark
	if state.Error != "" {
		mark = cliui.FailMark
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", mark, cliui.ValueStyle.Render(state.Source))
	fmt.Fprintln(w, cliui.KeyValue("Status", width, state.Status))
	fmt.Fprintln(w, cliui.KeyValue("Finished", width, state.FinishedAt.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintln(w, cliui.KeyValue("Took", width, cliui.FormatDuration(state.FinishedAt.Sub(state.StartedAt))))
	fmt.Fprintln(w, cliui.KeyValue("Documents", width, strconv.Itoa(state.Documents)))
	fmt.Fprintln(w, cliui.KeyValue("Chunks", width, strconv.Itoa(state.Chunks)))
	fmt.Fprintln(w, cliui.KeyValue("Stored", width, strconv.Itoa(state.RecordsIngested)))
	if state.Error != "" {
		fmt.Fprintln(w, cliui.KeyValue("Error", width, state.Error))
	}
	fmt.Fprintln(w)

	return nil
}
