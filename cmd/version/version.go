// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
	"github.com/danielpid/dynamic-rag/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version, commit and build time of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func run(w io.Writer) error {
	fmt.Fprintln(w, cliui.KeyValue("Version:", 9, utils.Version))
	fmt.Fprintln(w, cliui.KeyValue("Sha:", 9, utils.Sha))
	fmt.Fprintln(w, cliui.KeyValue("Built at:", 9, utils.Buildtime))
	return nil
}
