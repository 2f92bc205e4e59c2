package media

import (
	"context"
	"fmt"
	"strings"

	"contentstudio/internal/domain"
)

// Kind names an artifact produced after the script.
type Kind string

const (
	KindImage Kind = "image"
	KindVoice Kind = "voice"
	KindMusic Kind = "music"
	KindVideo Kind = "video"
)

// Request describes one media generation call.
type Request struct {
	ContentID string            `json:"content_id"`
	Kind      Kind              `json:"kind"`
	Prompt    string            `json:"prompt"`
	Title     string            `json:"title"`
	Style     string            `json:"style"`
	Locale    string            `json:"locale,omitempty"`
	Duration  int               `json:"duration"`
	Script    *domain.Script    `json:"script,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty"`
}

// Asset is the reference returned by a generator. The URL is opaque to the
// orchestrator.
type Asset struct {
	URL        string `json:"url"`
	StorageKey string `json:"storage_key,omitempty"`
	Format     string `json:"format,omitempty"`
	Bytes      int    `json:"bytes,omitempty"`
}

// Generator produces one artifact.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Asset, error)
}

// Registry resolves the generator for each kind, falling back to a default.
type Registry struct {
	generators map[Kind]Generator
	fallback   Generator
}

func NewRegistry(fallback Generator) *Registry {
	return &Registry{generators: make(map[Kind]Generator), fallback: fallback}
}

// Register binds gen to kind. A nil gen is ignored.
func (r *Registry) Register(kind Kind, gen Generator) *Registry {
	if gen != nil {
		r.generators[kind] = gen
	}
	return r
}

// Generate dispatches req to the generator registered for req.Kind.
func (r *Registry) Generate(ctx context.Context, req Request) (*Asset, error) {
	gen, ok := r.generators[req.Kind]
	if !ok {
		gen = r.fallback
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: no generator for %s", domain.ErrProviderFailure, req.Kind)
	}
	asset, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if asset == nil || strings.TrimSpace(asset.URL) == "" {
		return nil, fmt.Errorf("%w: %s generator returned no url", domain.ErrProviderFailure, req.Kind)
	}
	return asset, nil
}

var _ Generator = (*Registry)(nil)
