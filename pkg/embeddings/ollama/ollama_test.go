package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/embeddings"
	"github.com/danielpid/dynamic-rag/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	var (
		server *httptest.Server
		status int
		count  int
	)

	BeforeEach(func() {
		status = http.StatusOK
		count = -1
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var req struct {
				Model string   `json:"model"`
				Input []string `json:"input"`
			}
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.Model).To(Equal("nomic-embed-text"))

			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte("model not loaded"))
				return
			}

			n := len(req.Input)
			if count >= 0 {
				n = count
			}
			out := make([][]float32, n)
			for i := range out {
				out[i] = []float32{float32(i), 1}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL + "/"})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("embeds a single text", func() {
		vec, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0, 1}))
	})

	It("embeds a batch in order", func() {
		vecs, err := newEmbedder().EmbedBatch(context.Background(), []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{0, 1}, {1, 1}}))
	})

	It("errors when the provider returns the wrong number of vectors", func() {
		count = 1
		_, err := newEmbedder().EmbedBatch(context.Background(), []string{"a", "b"})
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
	})

	It("marks 5xx responses as transient", func() {
		status = http.StatusInternalServerError
		_, err := newEmbedder().Embed(context.Background(), "x")
		Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeTrue())
	})

	It("does not mark 4xx responses as transient", func() {
		status = http.StatusNotFound
		_, err := newEmbedder().Embed(context.Background(), "x")
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeFalse())
	})
})
