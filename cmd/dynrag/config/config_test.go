package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/danielpid/dynamic-rag/cmd/dynrag/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var tmpDir string

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		// A local .dynrag dir takes precedence over ~/.dynrag
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".dynrag"), 0o755)).To(Succeed())

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)
	})

	Describe("set subcommand", func() {
		It("writes the value to config.toml", func() {
			_, err := execute("set", "source.bucket", "my-stories")
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".dynrag", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`bucket = "my-stories"`))
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "source.bucket")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid numeric values", func() {
			_, err := execute("set", "embedding.dimensions", "not-a-number")
			Expect(err).To(HaveOccurred())
		})

		It("fails without a .dynrag directory", func() {
			Expect(os.RemoveAll(filepath.Join(tmpDir, ".dynrag"))).To(Succeed())
			GinkgoT().Setenv("HOME", tmpDir)

			_, err := execute("set", "source.bucket", "my-stories")
			Expect(err).To(MatchError(ContainSubstring("dynrag init")))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := execute("set", "llm.model", "gpt-4o-mini")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("gpt-4o-mini"))
		})

		It("shows the default for unset keys", func() {
			out, err := execute("get", "index.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("2"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := execute("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			_, err := execute("set", "chunk.size", "512")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("source.bucket"))
			Expect(out).To(ContainSubstring("timeouts.stage_seconds"))
			Expect(out).To(ContainSubstring("512"))
		})

		It("rejects any arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
