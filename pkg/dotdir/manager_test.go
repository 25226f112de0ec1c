package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/dotdir"
)

// isolate moves into an empty working directory with an empty HOME so no
// real .dynrag directory is discovered.
func isolate(tmpDir string) string {
	emptyDir := filepath.Join(tmpDir, "empty")
	Expect(os.MkdirAll(emptyDir, 0o755)).To(Succeed())

	origDir, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Chdir(emptyDir)).To(Succeed())
	DeferCleanup(func() { os.Chdir(origDir) })

	origHome := os.Getenv("HOME")
	Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
	DeferCleanup(func() { os.Setenv("HOME", origHome) })

	return emptyDir
}

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .dynrag dir exists", func() {
			dir := isolate(tmpDir)
			Expect(os.Mkdir(filepath.Join(dir, dotdir.DirName), 0o755)).To(Succeed())

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .dynrag dir when it exists and no override is provided", func() {
			dir := isolate(tmpDir)
			local := filepath.Join(dir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("returns empty string when no directory can be found", func() {
			isolate(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())
		})
	})

	Describe("last ingest", func() {
		state := &dotdir.LastIngest{
			Source:          "corpus/stories.txt",
			Status:          "done",
			Documents:       1,
			Chunks:          12,
			RecordsIngested: 12,
			StartedAt:       time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
			FinishedAt:      time.Date(2026, 10, 1, 12, 0, 3, 0, time.UTC),
		}

		It("returns nil when nothing was ingested", func() {
			loaded, err := m.LoadLastIngest(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("round-trips the state", func() {
			Expect(m.SaveLastIngest(state, tmpDir)).To(Succeed())

			loaded, err := m.LoadLastIngest(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})

		It("returns error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "last_ingest.json"), []byte("{"), 0o600)).To(Succeed())

			_, err := m.LoadLastIngest(tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing last ingest")))
		})

		It("returns error for nil state", func() {
			Expect(m.SaveLastIngest(nil, tmpDir)).To(HaveOccurred())
		})

		It("clears the state and tolerates a missing file", func() {
			Expect(m.SaveLastIngest(state, tmpDir)).To(Succeed())
			Expect(m.ClearLastIngest(tmpDir)).To(Succeed())
			Expect(m.ClearLastIngest(tmpDir)).To(Succeed())

			loaded, err := m.LoadLastIngest(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("silently skips saving without a directory", func() {
			isolate(tmpDir)
			Expect(m.SaveLastIngest(state, "")).To(Succeed())
		})
	})
})
