package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/init"
	"github.com/danielpid/dynamic-rag/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)
	})

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	It("creates a .dynrag directory with a default config.toml", func() {
		_, err := execute()
		Expect(err).NotTo(HaveOccurred())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Source.Provider).To(Equal("s3"))
		Expect(cfg.Database.Provider).To(Equal("pgvector"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		Expect(cfg.API.Listen).To(Equal(":8081"))
	})

	It("leaves an existing config.toml alone without --preset", func() {
		dir := filepath.Join(tmpDir, ".dynrag")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[chunk]\nsize = 99\n"), 0o600)).To(Succeed())

		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Already initialized"))
		Expect(loadConfig(tmpDir).Chunk.Size).To(Equal(99))
	})

	It("keeps other files in an existing directory", func() {
		dir := filepath.Join(tmpDir, ".dynrag")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		state := filepath.Join(dir, "last_ingest.json")
		Expect(os.WriteFile(state, []byte(`{"status":"done"}`), 0o600)).To(Succeed())

		_, err := execute("--preset", "ollama")
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(state)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"status":"done"}`))
	})

	Describe("--preset with preset names", func() {
		It("writes the ollama preset", func() {
			_, err := execute("--preset", "ollama")
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
			Expect(cfg.LLM.Provider).To(Equal("ollama"))
		})

		It("writes the local preset and creates the document directory", func() {
			out, err := execute("--preset", "local")
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Source.Provider).To(Equal("file"))
			Expect(cfg.Database.Provider).To(Equal("sqlite"))

			info, err := os.Stat(filepath.Join(tmpDir, "data", "corpus"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
			Expect(out).To(ContainSubstring(filepath.Join("data", "corpus")))
		})

		It("overwrites the config when re-run with another preset", func() {
			_, err := execute("--preset", "ollama")
			Expect(err).NotTo(HaveOccurred())
			_, err = execute("--preset", "openai")
			Expect(err).NotTo(HaveOccurred())

			Expect(loadConfig(tmpDir).Embedding.Provider).To(Equal("openai"))
		})

		It("rejects unknown preset names", func() {
			_, err := execute("--preset", "invalid-provider")
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes a remote config.toml", func() {
			remoteCfg := `version = 0

[database]
provider = "qdrant"
target = "localhost:6334"

[embedding]
model = "text-embedding-3-small"
dimensions = 1536
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Database.Provider).To(Equal("qdrant"))
			Expect(cfg.Database.Target).To(Equal("localhost:6334"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
		})

		It("returns an error for non-200 responses", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns an error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			_, err := execute("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns an error for unreachable URLs", func() {
			_, err := execute("--preset", "http://127.0.0.1:1")
			Expect(err).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses .dynrag/config.toml under baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".dynrag", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
