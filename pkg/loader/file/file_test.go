package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing/fstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
	"github.com/danielpid/dynamic-rag/pkg/loader/file"
	"github.com/danielpid/dynamic-rag/pkg/logger"
)

func collect(l loader.Loader, ref loader.Ref) ([]loader.Document, error) {
	var docs []loader.Document
	for doc, err := range l.Load(context.Background(), ref) {
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var _ = Describe("Loader", func() {
	var l *file.Loader

	BeforeEach(func() {
		l = file.New(fstest.MapFS{
			"data/stories.txt":     {Data: []byte("Lira lived by the sea.")},
			"data/tales/a.txt":     {Data: []byte("first")},
			"data/tales/b.txt":     {Data: []byte("second")},
			"data/tales/.DS_Store": {Data: []byte{0xff}},
			"data/empty/.keep":     {Data: []byte("")},
		}, logger.Nop())
	})

	It("loads a single document", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "stories.txt"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Text).To(Equal("Lira lived by the sea."))
		Expect(docs[0].Ref).To(Equal(loader.Ref{Bucket: "data", Key: "stories.txt"}))
	})

	It("loads every file under a prefix in order, skipping dotfiles", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "tales/"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))
		Expect(docs[0].Ref.Key).To(Equal("tales/a.txt"))
		Expect(docs[1].Ref.Key).To(Equal("tales/b.txt"))
	})

	It("yields nothing for an empty prefix", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "empty/"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(BeEmpty())
	})

	It("reports a missing document as source not found", func() {
		_, err := collect(l, loader.Ref{Bucket: "data", Key: "missing.txt"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceNotFound))
	})

	It("reports a missing prefix as source not found", func() {
		_, err := collect(l, loader.Ref{Bucket: "nope"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceNotFound))
	})

	It("rejects references escaping the root", func() {
		_, err := collect(l, loader.Ref{Bucket: "..", Key: "etc/passwd"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceNotFound))
	})

	It("stops when the consumer stops", func() {
		n := 0
		for range l.Load(context.Background(), loader.Ref{Bucket: "data", Key: "tales/"}) {
			n++
			break
		}
		Expect(n).To(Equal(1))
	})

	Describe("NewLoader", func() {
		It("requires an existing directory", func() {
			_, err := file.NewLoader(filepath.Join(GinkgoT().TempDir(), "missing"), logger.Nop())
			Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
		})

		It("reads from disk", func() {
			dir := GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(dir, "bucket"), 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "bucket", "stories.txt"), []byte("hello"), 0o600)).To(Succeed())

			fl, err := file.NewLoader(dir, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			docs, err := collect(fl, loader.Ref{Bucket: "bucket", Key: "stories.txt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Text).To(Equal("hello"))
		})
	})
})
