package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/embeddings"
	"github.com/danielpid/dynamic-rag/pkg/embeddings/openai"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

func writeEmbeddings(w http.ResponseWriter, vectors [][]float64) {
	data := make([]map[string]any, len(vectors))
	// Return in reverse order to exercise index-based placement.
	for i := range vectors {
		j := len(vectors) - 1 - i
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     j,
			"embedding": vectors[j],
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-ada-002",
		"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
	})
}

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		received embeddingRequest
		status   int
	)

	BeforeEach(func() {
		received = embeddingRequest{}
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(strings.HasSuffix(r.URL.Path, "/embeddings")).To(BeTrue())
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			if status != http.StatusOK {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
				return
			}

			vectors := make([][]float64, len(received.Input))
			for i := range received.Input {
				vectors[i] = []float64{float64(i), 0.5, 1}
			}
			writeEmbeddings(w, vectors)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func(model string) *openai.Embedder {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL + "/v1/",
			Model:      model,
			Dimensions: 1536,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("requires an API key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("embeds a single text", func() {
		e := newEmbedder("")
		vec, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0, 0.5, 1}))
		Expect(received.Model).To(Equal(openai.DefaultEmbeddingModel))
		Expect(received.Input).To(Equal([]string{"hello"}))
	})

	It("places batch results by index", func() {
		e := newEmbedder("")
		vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(3))
		Expect(vecs[0][0]).To(BeNumerically("==", 0))
		Expect(vecs[2][0]).To(BeNumerically("==", 2))
	})

	It("does not send dimensions for ada models", func() {
		e := newEmbedder("text-embedding-ada-002")
		_, err := e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(received.Dimensions).To(BeNil())
	})

	It("sends dimensions for text-embedding-3 models", func() {
		e := newEmbedder("text-embedding-3-small")
		_, err := e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(received.Dimensions).NotTo(BeNil())
		Expect(*received.Dimensions).To(Equal(1536))
	})

	It("returns nothing for an empty batch", func() {
		e := newEmbedder("")
		vecs, err := e.EmbedBatch(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
	})

	It("marks server errors as transient", func() {
		status = http.StatusServiceUnavailable
		e := newEmbedder("")
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeTrue())
	})

	It("does not mark client errors as transient", func() {
		status = http.StatusBadRequest
		e := newEmbedder("")
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeFalse())
	})
})
