package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/synth"
	"github.com/danielpid/dynamic-rag/pkg/synth/openai"
)

type chatRequest struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var _ = Describe("Synthesizer", func() {
	var (
		server   *httptest.Server
		status   int
		answer   string
		requests atomic.Int32
		last     chatRequest
	)

	BeforeEach(func() {
		status = http.StatusOK
		answer = "Lira is a fisher."
		requests.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			requests.Add(1)
			Expect(r.URL.Path).To(HaveSuffix("/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(json.NewDecoder(r.Body).Decode(&last)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   last.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": answer},
				}},
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newSynth := func() *openai.Synthesizer {
		s, err := openai.NewSynthesizer(openai.Config{
			APIKey:  "test-key",
			BaseURL: server.URL + "/v1/",
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	It("requires an API key", func() {
		_, err := openai.NewSynthesizer(openai.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("answers at temperature 0 with a system and user message", func() {
		got, err := newSynth().Synthesize(context.Background(), "Who is Lira?", "[1] Lira is a fisher.")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("Lira is a fisher."))

		Expect(last.Model).To(Equal(openai.DefaultModel))
		Expect(last.Temperature).NotTo(BeNil())
		Expect(*last.Temperature).To(BeZero())
		Expect(last.Messages).To(HaveLen(2))
		Expect(last.Messages[0].Role).To(Equal("system"))
		Expect(last.Messages[1].Role).To(Equal("user"))
		Expect(last.Messages[1].Content).To(ContainSubstring("Query: Who is Lira?"))
	})

	It("does not retry failures", func() {
		status = http.StatusInternalServerError
		_, err := newSynth().Synthesize(context.Background(), "q", "")
		Expect(errors.Is(err, synth.ErrSynthesis)).To(BeTrue())
		Expect(requests.Load()).To(Equal(int32(1)))
	})

	It("rejects an empty answer", func() {
		answer = "  "
		_, err := newSynth().Synthesize(context.Background(), "q", "")
		Expect(errors.Is(err, synth.ErrSynthesis)).To(BeTrue())
		Expect(strings.Contains(err.Error(), "empty")).To(BeTrue())
	})
})
