package loader_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/loader"
)

var _ = Describe("Ref", func() {
	It("renders as bucket/key", func() {
		Expect(loader.Ref{Bucket: "data", Key: "stories.txt"}.String()).To(Equal("data/stories.txt"))
		Expect(loader.Ref{Bucket: "data"}.String()).To(Equal("data"))
	})

	It("treats empty and slash-terminated keys as prefixes", func() {
		Expect(loader.Ref{Bucket: "data"}.IsPrefix()).To(BeTrue())
		Expect(loader.Ref{Bucket: "data", Key: "docs/"}.IsPrefix()).To(BeTrue())
		Expect(loader.Ref{Bucket: "data", Key: "stories.txt"}.IsPrefix()).To(BeFalse())
	})
})

var _ = Describe("Decode", func() {
	ref := loader.Ref{Bucket: "data", Key: "tales/stories.txt"}

	It("decodes UTF-8 text with source metadata", func() {
		doc, err := loader.Decode(ref, []byte("Lira lived by the sea."))
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Text).To(Equal("Lira lived by the sea."))
		Expect(doc.Name).To(Equal("stories.txt"))
		Expect(doc.Ref).To(Equal(ref))
		Expect(doc.Metadata).To(HaveKeyWithValue("file_name", "stories.txt"))
		Expect(doc.Metadata).To(HaveKeyWithValue("bucket", "data"))
		Expect(doc.Metadata).To(HaveKeyWithValue("key", "tales/stories.txt"))
	})

	It("rejects invalid UTF-8", func() {
		_, err := loader.Decode(ref, []byte{0xff, 0xfe, 0xfd})
		Expect(err).To(MatchError(loader.ErrUnsupportedContent))
	})

	It("rejects a .pdf that is not a PDF", func() {
		_, err := loader.Decode(loader.Ref{Bucket: "data", Key: "report.PDF"}, []byte("plain text"))
		Expect(err).To(MatchError(loader.ErrUnsupportedContent))
	})
})
