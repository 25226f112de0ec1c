package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/handler"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/loader"
	"github.com/danielpid/dynamic-rag/pkg/logger"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
	testutils "github.com/danielpid/dynamic-rag/pkg/utils/test"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

type stubRunner struct {
	result ingest.Result
	refs   []loader.Ref
}

func (s *stubRunner) Run(_ context.Context, ref loader.Ref) ingest.Result {
	s.refs = append(s.refs, ref)
	res := s.result
	res.Source = ref
	return res
}

func decode(body string) map[string]string {
	var out map[string]string
	Expect(json.Unmarshal([]byte(body), &out)).To(Succeed())
	return out
}

var _ = Describe("IngestHandler", func() {
	ref := loader.Ref{Bucket: "corpus", Key: "stories.txt"}

	It("reports the ingested key", func() {
		runner := &stubRunner{result: ingest.Result{Status: ingest.StateDone}}
		resp := handler.NewIngestHandler(runner, ref, logger.Nop()).Handle(context.Background())

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Body).To(Equal("Ingested stories.txt"))
		Expect(runner.refs).To(ConsistOf(ref))
	})

	It("returns the failure message", func() {
		runner := &stubRunner{result: ingest.Result{
			Status: ingest.StateFailed,
			Err:    fault.Newf(fault.SourceNotFound, "loader.s3", "no such key"),
		}}
		resp := handler.NewIngestHandler(runner, ref, logger.Nop()).Handle(context.Background())

		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(resp.Body).To(ContainSubstring("no such key"))
	})

	It("falls back to the configured bucket", func() {
		runner := &stubRunner{result: ingest.Result{Status: ingest.StateDone}}
		h := handler.NewIngestHandler(runner, ref, logger.Nop())

		resp := h.HandleRef(context.Background(), loader.Ref{Key: "other.txt"})
		Expect(resp.Body).To(Equal("Ingested other.txt"))
		Expect(runner.refs[0].Bucket).To(Equal("corpus"))
	})
})

var _ = Describe("QueryHandler", func() {
	var (
		embedder    *testutils.MockEmbedder
		store       *testutils.MockVectorStore
		synthesizer *testutils.MockSynthesizer
		h           *handler.QueryHandler
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		store = testutils.NewMockVectorStore()
		synthesizer = &testutils.MockSynthesizer{Answer: "Lira keeps the lighthouse."}

		p, err := retrieve.New(&retrieve.Config{
			Embedder:    embedder,
			Store:       store,
			Synthesizer: synthesizer,
			Index:       vector.IndexParams{Dimensions: testutils.MockEmbedderDimensions},
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		h = handler.NewQueryHandler(p, logger.Nop())
	})

	handle := func(event string) handler.Response {
		return h.Handle(context.Background(), json.RawMessage(event))
	}

	DescribeTable("answers questions from every event shape",
		func(event string) {
			resp := handle(event)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers).To(HaveKeyWithValue("Content-Type", "application/json"))
			Expect(resp.Headers).To(HaveKeyWithValue("Access-Control-Allow-Origin", "*"))
			Expect(decode(resp.Body)).To(Equal(map[string]string{
				"question": "Who is Lira?",
				"answer":   "Lira keeps the lighthouse.",
			}))
		},
		Entry("top level", `{"question": "Who is Lira?"}`),
		Entry("string body", `{"body": "{\"question\": \"Who is Lira?\"}"}`),
		Entry("object body", `{"body": {"question": "Who is Lira?"}}`),
	)

	DescribeTable("rejects events without a question",
		func(event string) {
			resp := handle(event)

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode(resp.Body)).To(Equal(map[string]string{"error": "No question provided in the request"}))
			Expect(embedder.Calls()).To(BeZero())
		},
		Entry("empty object", `{}`),
		Entry("empty question", `{"question": ""}`),
		Entry("non-string question", `{"question": 42}`),
		Entry("malformed body", `{"body": "not json"}`),
		Entry("not an object", `"hello"`),
	)

	It("rejects over-long questions with a message", func() {
		event, err := json.Marshal(map[string]string{"question": strings.Repeat("q", 300)})
		Expect(err).NotTo(HaveOccurred())

		resp := handle(string(event))

		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decode(resp.Body)).To(Equal(map[string]string{"message": "The question cannot exceed the 256 characters"}))
		Expect(embedder.Calls()).To(BeZero())
		Expect(store.SearchCalls()).To(BeZero())
	})

	It("returns a generic error when the store fails", func() {
		store.SearchErr = vector.Unavailable("vector.search", errors.New("password authentication failed for user admin"))

		resp := handle(`{"question": "Who is Lira?"}`)

		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(resp.Body).NotTo(ContainSubstring("password"))
		Expect(decode(resp.Body)).To(HaveKeyWithValue("error", retrieve.ErrorMessage))
	})
})

var _ = Describe("QuestionFromEvent", func() {
	It("prefers the top-level question", func() {
		q := handler.QuestionFromEvent(json.RawMessage(`{"question": "a", "body": {"question": "b"}}`))
		Expect(q).To(Equal("a"))
	})
})
