package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	ModelsTimeout  time.Duration
	CacheTTL       time.Duration
	Catalog        *config.Catalog
	HTTPClient     *http.Client
}

// Client talks to the Ollama HTTP API. It is safe for concurrent use.
type Client struct {
	baseURL        string
	requestTimeout time.Duration
	modelsTimeout  time.Duration
	httpClient     *http.Client
	catalog        *config.Catalog
	cache          *ModelsCache
	group          singleflight.Group
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		requestTimeout: opts.RequestTimeout,
		modelsTimeout:  opts.ModelsTimeout,
		httpClient:     httpClient,
		catalog:        opts.Catalog,
		cache:          NewModelsCache(opts.CacheTTL),
	}
}

// Generate runs one non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, model string, messages []domain.PromptMessage, settings domain.GenerationSettings) (*domain.Generation, error) {
	body := chatRequest{
		Model:    model,
		Messages: messages,
		Options: options{
			Temperature: domain.ClampTemperature(settings.Temperature),
			NumPredict:  domain.ClampMaxTokens(settings.MaxTokens),
		},
	}
	if settings.Think {
		think := true
		body.Think = &think
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(reqCtx, "chat request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp, model)
		if errors.Is(err, domain.ErrModelNotFound) {
			c.cache.Invalidate()
		}
		return nil, err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if reqCtx.Err() != nil {
			return nil, transportError(reqCtx, "read chat response", err)
		}
		return nil, fmt.Errorf("%w: parse chat response: %v", domain.ErrBackendUnavailable, err)
	}

	elapsed := time.Since(start)
	if out.TotalDuration > 0 {
		elapsed = time.Duration(out.TotalDuration)
	}
	return &domain.Generation{
		Text:       out.Message.Content,
		TokenCount: max(out.EvalCount, 0),
		Duration:   elapsed,
	}, nil
}

// ListAvailableModels returns the installed models merged with the catalog.
// It never fails: an unreachable backend yields the catalog's fallback list.
func (c *Client) ListAvailableModels(ctx context.Context) []domain.ModelInfo {
	if cached := c.cache.Get(); cached != nil {
		return cached
	}

	v, _, _ := c.group.Do("tags", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.modelsTimeout)
		defer cancel()

		models, err := c.fetchModels(fetchCtx)
		if err != nil {
			slog.Warn("model list unavailable, using fallback", "error", err)
			return c.catalog.Fallback(), nil
		}
		if len(models) == 0 {
			slog.Warn("backend reports no installed models, using fallback")
			return c.catalog.Fallback(), nil
		}
		c.cache.Set(models)
		return models, nil
	})
	return append([]domain.ModelInfo(nil), v.([]domain.ModelInfo)...)
}

// Version reports the backend version. The health check calls it.
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, "version request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: version status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}
	var out versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: parse version: %v", domain.ErrBackendUnavailable, err)
	}
	return out.Version, nil
}

func (c *Client) fetchModels(ctx context.Context) ([]domain.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "fetch models", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tags status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.ModelInfo, 0, len(tags.Models))
	for _, t := range tags.Models {
		m := c.catalog.Describe(t.Name)
		m.Installed = true
		if t.Size > 0 {
			m.Size = formatSize(t.Size)
		}
		models = append(models, m)
	}
	return models, nil
}

func transportError(ctx context.Context, op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s: %w", op, domain.ErrBackendTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrBackendUnavailable, err)
	}
}

func statusError(resp *http.Response, model string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "not found"):
		return fmt.Errorf("%w: %s", domain.ErrModelNotFound, model)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", domain.ErrBackendTimeout, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrBackendUnavailable, resp.StatusCode, msg)
	}
}

func formatSize(n int64) string {
	const gb = 1_000_000_000
	if n >= gb/10 {
		return fmt.Sprintf("%.1fGB", float64(n)/gb)
	}
	return fmt.Sprintf("%dMB", n/1_000_000)
}
