package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"contentstudio/internal/domain"
)

const maxScenes = 12

// GenerateSchema reflects T into a strict structured-output schema.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptSchema = GenerateSchema[domain.Script]()

func scriptSchemaJSON() (json.RawMessage, error) {
	raw, err := json.Marshal(scriptSchema)
	if err != nil {
		return nil, fmt.Errorf("encode script schema: %w", err)
	}
	return raw, nil
}

// decodeScript parses model output and validates the result.
func decodeScript(raw string) (*domain.Script, error) {
	parsed, err := parseModelPayload[domain.Script](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidScript, err)
	}
	return finalizeScript(&parsed)
}

func finalizeScript(s *domain.Script) (*domain.Script, error) {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.Hashtags = normalizeHashtags(s.Hashtags, "")
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func clampScenes(n int) int {
	switch {
	case n <= 0:
		return 1
	case n > maxScenes:
		return maxScenes
	default:
		return n
	}
}

func normalizeHashtags(tags []string, fallback string) []string {
	seen := make(map[string]struct{})
	result := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(tag, "#"))
		tag = strings.Trim(tag, ".,!?:;\"'")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	if len(result) == 0 && fallback != "" {
		result = []string{strings.ToLower(fallback)}
	}
	return result
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
