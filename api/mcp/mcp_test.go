package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/logger"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
	testutils "github.com/danielpid/dynamic-rag/pkg/utils/test"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

const liraPassage = "Lira keeps the lighthouse on the northern cliff."

var _ = Describe("MCP Server", func() {
	var (
		ctx         context.Context
		store       *testutils.MockVectorStore
		synthesizer *testutils.MockSynthesizer
		server      *Server
		session     *mcp.ClientSession
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = testutils.NewMockVectorStore()
		synthesizer = &testutils.MockSynthesizer{}

		index := vector.IndexParams{Dimensions: testutils.MockEmbedderDimensions}
		Expect(store.Initialize(ctx, index)).To(Succeed())
		Expect(store.Insert(ctx, []vector.Record{{
			NodeID:    "stories.txt#0",
			Text:      liraPassage,
			Embedding: testutils.BagOfWords(liraPassage),
		}})).To(Succeed())

		pipeline, err := retrieve.New(&retrieve.Config{
			Embedder:    testutils.NewMockEmbedder(),
			Store:       store,
			Synthesizer: synthesizer,
			Index:       index,
			TopK:        1,
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{Retriever: pipeline, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		_, err = server.mcpServer.Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())

		client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.0"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(session.Close)
	})

	textOf := func(res *mcp.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		text, ok := res.Content[0].(*mcp.TextContent)
		Expect(ok).To(BeTrue())
		return text.Text
	}

	Describe("NewServer", func() {
		It("requires a retriever", func() {
			_, err := NewServer(Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("retriever is required")))
		})

		It("requires a logger", func() {
			_, err := NewServer(Config{Retriever: &retrieve.Pipeline{}})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})
	})

	It("lists the ask and search tools", func() {
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		names := make([]string, 0, len(res.Tools))
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("ask", "search"))
	})

	Describe("ask", func() {
		It("answers from the stored passages", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      "ask",
				Arguments: map[string]any{"question": "Who keeps the lighthouse?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(textOf(res)).To(ContainSubstring(liraPassage))
			Expect(textOf(res)).To(ContainSubstring("stories.txt#0"))
		})

		It("returns validation messages as tool errors", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      "ask",
				Arguments: map[string]any{"question": strings.Repeat("a", 300)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(Equal("The question cannot exceed the 256 characters"))
			Expect(synthesizer.Calls()).To(BeZero())
		})

		It("hides internal failures", func() {
			store.SearchErr = errors.New("connection reset by peer")

			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      "ask",
				Arguments: map[string]any{"question": "Who keeps the lighthouse?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(Equal(retrieve.ErrorMessage))
		})
	})

	Describe("search", func() {
		It("returns passages without synthesizing", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      "search",
				Arguments: map[string]any{"query": "lighthouse"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(textOf(res)).To(ContainSubstring(`"count":1`))
			Expect(synthesizer.Calls()).To(BeZero())
		})
	})
})
