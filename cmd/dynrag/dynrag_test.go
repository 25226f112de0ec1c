package dynragcmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	dynragcmder "github.com/danielpid/dynamic-rag/cmd/dynrag"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/dotdir"
	testutils "github.com/danielpid/dynamic-rag/pkg/utils/test"
)

var _ = Describe("NewDynragCmd", func() {
	It("registers every subcommand", func() {
		cmd := dynragcmder.NewDynragCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("init", "config", "ingest", "ask", "serve", "status", "version"))
	})

	It("has the global flags", func() {
		cmd := dynragcmder.NewDynragCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("dynrag with the local preset", func() {
	var (
		tmpDir    string
		configDir string
	)

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := dynragcmder.NewDynragCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		server := testutils.NewOllamaServer()
		DeferCleanup(server.Close)

		tmpDir = GinkgoT().TempDir()
		configDir = filepath.Join(tmpDir, ".dynrag")

		corpus := filepath.Join(tmpDir, "data", "corpus")
		Expect(os.MkdirAll(corpus, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(corpus, "stories.txt"),
			[]byte("Lira keeps the lighthouse on the cliff.\n\nThe baker sells bread in the square."), 0o600)).To(Succeed())

		cfg, err := config.PresetConfig("local")
		Expect(err).NotTo(HaveOccurred())
		cfg.Source.Root = filepath.Join(tmpDir, "data")
		cfg.Database.Provider = "memory"
		cfg.Embedding.Target = server.URL
		cfg.Embedding.Dimensions = testutils.MockEmbedderDimensions
		cfg.LLM.Target = server.URL

		cfger, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SaveConfig(cfg)).To(Succeed())
	})

	It("ingests the source and records the run", func() {
		out, err := execute("ingest")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("corpus/stories.txt"))

		state, err := dotdir.NewManager().LoadLastIngest(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.Status).To(Equal("done"))
		Expect(state.Documents).To(Equal(1))
		Expect(state.RecordsIngested).To(Equal(state.Chunks))

		out, err = execute("status")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("corpus/stories.txt"))
	})

	It("lets flags override the config file", func() {
		_, err := execute("ingest", "--key", "missing.txt")
		Expect(err).To(MatchError(ContainSubstring("source_not_found")))

		state, err := dotdir.NewManager().LoadLastIngest(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Status).To(Equal("failed"))
		Expect(state.Error).NotTo(BeEmpty())
	})

	It("answers as JSON", func() {
		out, err := execute("ask", "--json", "Who", "keeps", "the", "lighthouse?")
		Expect(err).NotTo(HaveOccurred())

		var answer struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		Expect(json.Unmarshal([]byte(out), &answer)).To(Succeed())
		Expect(answer.Question).To(Equal("Who keeps the lighthouse?"))
		Expect(answer.Answer).To(ContainSubstring("Who keeps the lighthouse?"))
	})

	It("rejects questions that are too long", func() {
		_, err := execute("ask", strings.Repeat("a", 257))
		Expect(err).To(MatchError("The question cannot exceed the 256 characters"))
	})

	It("prints the version", func() {
		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version:"))
	})
})
