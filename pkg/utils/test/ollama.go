package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// NewOllamaServer fakes the Ollama API: /api/embed returns BagOfWords vectors
// and /api/chat echoes the last message back as the answer.
func NewOllamaServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out := make([][]float32, len(req.Input))
		for i, text := range req.Input {
			out[i] = BagOfWords(text)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad chat request", http.StatusBadRequest)
			return
		}

		last := req.Messages[len(req.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": last},
			"done":    true,
		})
	})
	return httptest.NewServer(mux)
}
