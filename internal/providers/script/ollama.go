package script

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"contentstudio/internal/domain"
)

type OllamaOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Catalog    *Catalog
	OnUsage    func(Usage)
}

// OllamaGenerator asks a local model for a script, constraining the output
// with the same JSON schema used for OpenAI.
type OllamaGenerator struct {
	client  *api.Client
	model   string
	catalog *Catalog
	schema  []byte
	onUsage func(Usage)
}

const ollamaDefaultTimeout = 5 * time.Minute

func NewOllamaGenerator(opts OllamaOptions) (*OllamaGenerator, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		base = "http://localhost:11434"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", base, err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	catalog := opts.Catalog
	if catalog == nil {
		if catalog, err = LoadCatalog(""); err != nil {
			return nil, err
		}
	}
	schema, err := scriptSchemaJSON()
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: ollamaDefaultTimeout}
	}

	return &OllamaGenerator{
		client:  api.NewClient(parsed, httpClient),
		model:   model,
		catalog: catalog,
		schema:  schema,
		onUsage: opts.OnUsage,
	}, nil
}

func (o *OllamaGenerator) Name() string { return ollamaProviderName }

func (o *OllamaGenerator) Generate(ctx context.Context, req Request) (*domain.Script, error) {
	prompt, err := o.catalog.Render(req)
	if err != nil {
		return nil, err
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: o.catalog.System},
			{Role: "user", Content: prompt},
		},
		Format: o.schema,
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.7,
		},
	}

	var content strings.Builder
	var last api.ChatResponse
	err = o.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		last = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", domain.ErrProviderFailure, err)
	}

	if o.onUsage != nil {
		o.onUsage(Usage{
			Provider:         ollamaProviderName,
			Model:            o.model,
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
		})
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, fmt.Errorf("%w: ollama returned an empty message", domain.ErrInvalidScript)
	}
	return decodeScript(text)
}

var _ Generator = (*OllamaGenerator)(nil)
