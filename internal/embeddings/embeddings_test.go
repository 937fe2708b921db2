package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return s.vecs, s.err
}
func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Name() string    { return "stub" }

func TestEmbedOne(t *testing.T) {
	ctx := context.Background()

	vec, err := EmbedOne(ctx, &stubEmbedder{vecs: [][]float32{{1, 2, 3}}}, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dims, got %d", len(vec))
	}

	cases := map[string]Embedder{
		"provider error": &stubEmbedder{err: errors.New("boom")},
		"no vectors":     &stubEmbedder{},
		"empty vector":   &stubEmbedder{vecs: [][]float32{{}}},
		"nil embedder":   nil,
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := EmbedOne(ctx, e, "hi")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestToChromemFunc(t *testing.T) {
	f := ToChromemFunc(&stubEmbedder{vecs: [][]float32{{0.5, 0.5}}})
	vec, err := f(context.Background(), "text")
	if err != nil || len(vec) != 2 {
		t.Fatalf("got %v, %v", vec, err)
	}

	f = ToChromemFunc(&stubEmbedder{err: errors.New("down")})
	if _, err := f(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := ollamaEmbedResponse{}
		for range got.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if got.Model != "nomic-embed-text" || len(got.Input) != 2 {
		t.Errorf("unexpected request: %+v", got)
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("Name = %q", e.Name())
	}
}

func TestOllamaEmbedderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("missing", 2, srv.URL)
	_, err := e.Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestOpenAIEmbedderDimensionsAndOrder(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	e := NewOpenAIEmbedderWithConfig(cfg, ModelTextEmbedding3Small, 1024)

	if e.Dimensions() != 1024 {
		t.Errorf("Dimensions = %d, want 1024", e.Dimensions())
	}

	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
	if dims, _ := body["dimensions"].(float64); dims != 1024 {
		t.Errorf("expected dimensions=1024 in request, got %v", body["dimensions"])
	}
}

func TestOpenAIEmbedderNativeDimensions(t *testing.T) {
	e := NewOpenAIEmbedder("k", ModelTextEmbedding3Large, 0)
	if e.Dimensions() != 3072 {
		t.Errorf("Dimensions = %d, want 3072", e.Dimensions())
	}
	e = NewOpenAIEmbedder("k", ModelTextEmbedding3Small, 5000)
	if e.Dimensions() != 1536 {
		t.Errorf("oversized request should clamp to native, got %d", e.Dimensions())
	}
}

func TestGoogleEmbedder(t *testing.T) {
	var got googleBatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gkey" {
			t.Errorf("missing api key")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"embeddings":[{"values":[0.3,0.4]}]}`))
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("gkey", ModelGeminiEmbedding001, 1024)
	e.baseURL = srv.URL
	vecs, err := e.Embed(context.Background(), []string{"headache"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 2 {
		t.Errorf("unexpected vectors %v", vecs)
	}
	if len(got.Requests) != 1 || got.Requests[0].OutputDimensionality != 1024 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestOllamaEmbedderDimensions(t *testing.T) {
	var size atomic.Int32
	size.Store(3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Truncate {
			t.Error("expected truncate to be requested")
		}
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, make([]float32, size.Load()))
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 0, srv.URL)
	if e.Dimensions() != 0 {
		t.Fatalf("Dimensions before first call = %d", e.Dimensions())
	}
	if _, err := e.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if e.Dimensions() != 3 {
		t.Errorf("Dimensions = %d, want 3 learned from response", e.Dimensions())
	}

	size.Store(4)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error when the model changes vector size")
	}
}
