package script

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"contentstudio/internal/domain"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"
	ollamaProviderName = "ollama"
)

// Request carries the content configuration the script is written for.
type Request struct {
	Title          string
	Description    string
	TargetAudience string
	Style          string
	Tone           string
	Locale         string
	Duration       int
	SceneAmount    int
}

// RequestFromConfig maps a stored configuration onto a script request.
func RequestFromConfig(cfg domain.ContentConfig) Request {
	return Request{
		Title:          cfg.Title,
		Description:    cfg.Description,
		TargetAudience: cfg.TargetAudience,
		Style:          cfg.Style,
		Tone:           cfg.Tone,
		Locale:         cfg.Locale,
		Duration:       cfg.Duration,
		SceneAmount:    cfg.SceneAmount,
	}
}

// Generator produces a validated script for a request. Malformed model
// output is reported as an error wrapping domain.ErrInvalidScript.
type Generator interface {
	Generate(ctx context.Context, req Request) (*domain.Script, error)
	Name() string
}

// Usage reports token accounting for one model call.
type Usage struct {
	Provider         string
	Model            string
	PromptEstimate   int
	PromptTokens     int
	CompletionTokens int
}

// StaticGenerator writes a deterministic script without calling a model.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (s *StaticGenerator) Name() string { return staticProviderName }

func (s *StaticGenerator) Generate(ctx context.Context, req Request) (*domain.Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := cases.Title(language.Und, cases.NoLower)
	title := c.String(coalesce(req.Title, "Untitled video"))
	subject := coalesce(req.Description, req.Title)
	audience := coalesce(req.TargetAudience, "everyone")
	style := coalesce(req.Style, string(domain.StyleInformative))

	count := clampScenes(req.SceneAmount)
	scenes := make([]domain.Scene, 0, count)
	for i := 1; i <= count; i++ {
		scenes = append(scenes, domain.Scene{
			Description:  fmt.Sprintf("Part %d: %s, explained for %s.", i, subject, audience),
			VisualPrompt: fmt.Sprintf("%s vertical shot illustrating %s, scene %d", style, title, i),
		})
	}

	out := &domain.Script{
		Title:       title,
		Description: fmt.Sprintf("A %s short about %s for %s.", style, subject, audience),
		Hashtags:    normalizeHashtags(strings.Fields(req.Title), style),
		OpeningScene: domain.Scene{
			Description:  fmt.Sprintf("Here is what you need to know about %s.", title),
			VisualPrompt: fmt.Sprintf("bold title card reading %q, %s look", title, style),
		},
		Scenes: scenes,
		ClosingScene: domain.Scene{
			Description:  "Follow for more videos like this.",
			VisualPrompt: fmt.Sprintf("closing card for %s with a follow button", title),
		},
	}
	return finalizeScript(out)
}

var _ Generator = (*StaticGenerator)(nil)
