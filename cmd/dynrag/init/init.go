// Package initcmder provides the init command for initializing a local
// .dynrag directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/dotdir"
)

const remoteFetchTimeout = 10 * time.Second

const initLongDesc string = `Initialize a new .dynrag/ directory in the current working directory.

Creates a local .dynrag/ directory that takes precedence over the default
~/.dynrag/ directory, and writes a config.toml into it.

--preset picks the starting configuration. It is either a preset name
(openai, ollama, local) or an http(s) URL serving a config.toml. Without
--preset an existing config.toml is left untouched.

The local preset reads documents from ./data/corpus/, stores vectors in
./dynrag.db and uses Ollama for embeddings and answers.

Examples:
  dynrag init
  dynrag init --preset local
  dynrag init --preset https://example.com/dynrag/config.toml`

const initShortDesc string = "Initialize a local .dynrag/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Preset name (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .dynrag directory: %w", err)
		}
		fmt.Fprintf(c.out, "Initialized .dynrag directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.preset == "" {
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			return nil
		}
	}

	cfg, err := c.resolve(ctx)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if cfg.Source.Provider == "file" && cfg.Source.Root != "" {
		corpus := filepath.Join(cfg.Source.Root, cfg.Source.Bucket)
		if err := os.MkdirAll(corpus, 0o755); err != nil {
			return fmt.Errorf("creating document directory: %w", err)
		}
		fmt.Fprintf(c.out, "  %s Put documents to ingest in %s\n", cliui.DimStyle.Render("●"), corpus)
	}

	fmt.Fprintf(c.out, "  %s Wrote %s\n", cliui.SuccessMark, cfger.GetTarget())
	return nil
}

// resolve returns the configuration named by the preset flag.
func (c *initCommander) resolve(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemote(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemote(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}
	return cfg, nil
}
