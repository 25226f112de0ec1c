package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("returns the function's error and prints the message", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "Embedding chunks", func() error { return boom })

		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("Embedding chunks"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(250 * time.Millisecond)).To(Equal("250ms"))
	})

	It("uses seconds above a second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Truncate", func() {
	It("collapses whitespace", func() {
		Expect(cliui.Truncate("Lira\n\nkeeps  the light", 50)).To(Equal("Lira keeps the light"))
	})

	It("shortens long text by runes", func() {
		Expect(cliui.Truncate("ñandú ñandú", 5)).To(Equal("ñand…"))
	})
})

var _ = Describe("Source", func() {
	It("includes the node id and text", func() {
		out := cliui.Source(1, "corpus/stories.txt#0", 0.91, "Lira keeps the lighthouse.")
		Expect(out).To(ContainSubstring("corpus/stories.txt#0"))
		Expect(out).To(ContainSubstring("Lira keeps the lighthouse."))
	})
})
