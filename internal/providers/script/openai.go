package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"contentstudio/internal/domain"
)

type OpenAIOptions struct {
	APIKey            string
	Model             string
	BaseURL           string
	Organization      string
	HTTPClient        *http.Client
	Catalog           *Catalog
	CountPromptTokens bool
	OnUsage           func(Usage)
	OnWarning         func(reason, detail string)
}

// OpenAIGenerator requests a script with a strict JSON-schema response format.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	catalog     *Catalog
	countTokens bool
	onUsage     func(Usage)
}

const openAIDefaultTimeout = 60 * time.Second

const defaultOpenAIModel = "gpt-4o-mini"

// Models that accept json_schema response formats.
var openAIModelCanonical = map[string]string{
	"gpt-4o-mini":  "gpt-4o-mini",
	"gpt-4o":       "gpt-4o",
	"gpt-4.1-mini": "gpt-4.1-mini",
	"gpt-4.1":      "gpt-4.1",
}

var openAIModelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt-4o-2024-08-06":      "gpt-4o",
	"gpt4.1-mini":            "gpt-4.1-mini",
	"gpt-3.5-turbo":          "gpt-4o-mini",
	"gpt-3.5":                "gpt-4o-mini",
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), model))
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = LoadCatalog(""); err != nil {
			return nil, err
		}
	}

	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	cfg.OrgID = strings.TrimSpace(opts.Organization)
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: openAIDefaultTimeout}
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		catalog:     catalog,
		countTokens: opts.CountPromptTokens,
		onUsage:     opts.OnUsage,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return openAIProviderName }

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (*domain.Script, error) {
	prompt, err := o.catalog.Render(req)
	if err != nil {
		return nil, err
	}

	usage := Usage{Provider: openAIProviderName, Model: o.model}
	if o.countTokens {
		usage.PromptEstimate = estimateTokens(o.model, o.catalog.System+"\n"+prompt)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.catalog.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        "video_script",
				Description: "Script for a short vertical video",
				Schema:      scriptSchema,
				Strict:      true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", domain.ErrProviderFailure, err)
	}

	usage.PromptTokens = resp.Usage.PromptTokens
	usage.CompletionTokens = resp.Usage.CompletionTokens
	if o.onUsage != nil {
		o.onUsage(usage)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", domain.ErrInvalidScript)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", domain.ErrInvalidScript, choice.Message.Refusal)
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response (finish reason %s)", domain.ErrInvalidScript, choice.FinishReason)
	}
	return decodeScript(text)
}

var _ Generator = (*OpenAIGenerator)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
