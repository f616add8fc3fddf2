package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, requestTimeout time.Duration) *Client {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	return New(Options{
		BaseURL:        baseURL,
		RequestTimeout: requestTimeout,
		ModelsTimeout:  time.Second,
		CacheTTL:       time.Minute,
		Catalog:        catalog,
	})
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "phi3:mini",
			"message": {"role": "assistant", "content": "Hi there", "thinking": "greeting"},
			"done": true,
			"total_duration": 1500000000,
			"eval_count": 7
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5*time.Second)
	gen, err := c.Generate(context.Background(), "phi3:mini", []domain.PromptMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "Hello"},
	}, domain.GenerationSettings{Temperature: 3.0, MaxTokens: 0, Think: true})
	require.NoError(t, err)

	assert.Equal(t, "Hi there", gen.Text)
	assert.Equal(t, 7, gen.TokenCount)
	assert.Equal(t, int64(1500), gen.ThinkingMs())

	assert.Equal(t, "phi3:mini", got.Model)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Think)
	assert.True(t, *got.Think)
	assert.InDelta(t, domain.MaxTemperature, got.Options.Temperature, 1e-9)
	assert.Equal(t, domain.MinMaxTokens, got.Options.NumPredict)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Hello", got.Messages[1].Content)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "mistral:7b-instruct", nil, domain.GenerationSettings{MaxTokens: 10})
	require.ErrorIs(t, err, domain.ErrBackendTimeout)
}

func TestGenerateUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, time.Second)
	_, err := c.Generate(context.Background(), "mistral:7b-instruct", nil, domain.GenerationSettings{MaxTokens: 10})
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestGenerateStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"model missing", http.StatusNotFound, `{"error":"model 'x' not found, try pulling it first"}`, domain.ErrModelNotFound},
		{"not found in body", http.StatusBadRequest, `{"error":"model not found"}`, domain.ErrModelNotFound},
		{"server error", http.StatusInternalServerError, `{"error":"out of memory"}`, domain.ErrBackendUnavailable},
		{"server error mentioning not found", http.StatusInternalServerError, `{"error":"runner not found"}`, domain.ErrBackendUnavailable},
		{"gateway timeout", http.StatusGatewayTimeout, ``, domain.ErrBackendTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, time.Second)
			_, err := c.Generate(context.Background(), "x", nil, domain.GenerationSettings{MaxTokens: 10})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListAvailableModels(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		calls.Add(1)
		w.Write([]byte(`{"models":[
			{"name":"mistral:7b-instruct","size":4100000000},
			{"name":"dolphin-llama3:8b","size":4700000000}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	models := c.ListAvailableModels(context.Background())
	require.Len(t, models, 2)

	assert.Equal(t, "Mistral 7B Instruct", models[0].Name)
	assert.Equal(t, "4.1GB", models[0].Size)
	assert.True(t, models[0].Installed)
	assert.False(t, models[0].SupportsThinking)

	assert.Equal(t, "dolphin-llama3:8b", models[1].Name)
	assert.True(t, models[1].SupportsThinking)

	c.ListAvailableModels(context.Background())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateModelNotFoundRefreshesModelList(t *testing.T) {
	var tagCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		tagCalls.Add(1)
		w.Write([]byte(`{"models":[{"name":"mistral:7b-instruct","size":4100000000}]}`))
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'mistral:7b-instruct' not found"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	c.ListAvailableModels(context.Background())
	c.ListAvailableModels(context.Background())
	require.Equal(t, int32(1), tagCalls.Load())

	_, err := c.Generate(context.Background(), "mistral:7b-instruct", nil, domain.GenerationSettings{MaxTokens: 10})
	require.ErrorIs(t, err, domain.ErrModelNotFound)

	c.ListAvailableModels(context.Background())
	assert.Equal(t, int32(2), tagCalls.Load())
}

func TestListAvailableModelsCollapsesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"models":[{"name":"phi3:mini"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, c.ListAvailableModels(context.Background()), 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestListAvailableModelsFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, time.Second)
	models := c.ListAvailableModels(context.Background())
	require.Len(t, models, 4)
	for _, m := range models {
		assert.False(t, m.Installed)
	}
	_, ok := domain.FindModel(models, "qwen2:1.5b-instruct")
	assert.True(t, ok)
}

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"0.5.7"}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, time.Second).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5.7", v)
}
