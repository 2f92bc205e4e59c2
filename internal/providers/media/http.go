package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentstudio/internal/domain"
)

// HTTPGenerator forwards requests to an external generation service that
// answers with {"url": "..."}.
type HTTPGenerator struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

type HTTPOptions struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewHTTPGenerator returns nil when no endpoint is configured.
func NewHTTPGenerator(opts HTTPOptions) *HTTPGenerator {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPGenerator{endpoint: endpoint, token: strings.TrimSpace(opts.Token), httpClient: client}
}

type serviceError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s service: %v", domain.ErrProviderFailure, req.Kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr serviceError
		if json.Unmarshal(data, &apiErr) == nil {
			if msg := firstNonEmpty(apiErr.Message, apiErr.Error); msg != "" {
				return nil, fmt.Errorf("%w: %s service status %d: %s", domain.ErrProviderFailure, req.Kind, resp.StatusCode, msg)
			}
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return nil, fmt.Errorf("%w: %s service status %d: %s", domain.ErrProviderFailure, req.Kind, resp.StatusCode, text)
		}
		return nil, fmt.Errorf("%w: %s service status %d", domain.ErrProviderFailure, req.Kind, resp.StatusCode)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrProviderFailure, req.Kind, err)
	}
	if strings.TrimSpace(asset.URL) == "" {
		return nil, fmt.Errorf("%w: %s service returned no url", domain.ErrProviderFailure, req.Kind)
	}
	return &asset, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ Generator = (*HTTPGenerator)(nil)
