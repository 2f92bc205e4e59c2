package domain

import (
	"fmt"
	"strings"
)

// Scene is one narrated beat of a script.
type Scene struct {
	Description  string `json:"description" jsonschema_description:"Narration spoken over the scene."`
	VisualPrompt string `json:"visual_prompt" jsonschema_description:"Prompt for the image or video model that renders the scene."`
}

// Script is the structured output of the script generation step.
type Script struct {
	Title        string   `json:"title" jsonschema_description:"Catchy video title."`
	Description  string   `json:"description" jsonschema_description:"One or two sentence summary of the video."`
	Hashtags     []string `json:"hashtags" jsonschema_description:"Hashtags without the leading #."`
	OpeningScene Scene    `json:"opening_scene" jsonschema_description:"Hook that opens the video."`
	Scenes       []Scene  `json:"scenes" jsonschema_description:"Main scenes in playback order."`
	ClosingScene Scene    `json:"closing_scene" jsonschema_description:"Closing scene with the call to action."`
}

// Validate reports the first structural problem as ErrInvalidScript.
func (s *Script) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: empty script", ErrInvalidScript)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidScript)
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("%w: description is empty", ErrInvalidScript)
	}
	if err := s.OpeningScene.validate("opening_scene"); err != nil {
		return err
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("%w: no main scenes", ErrInvalidScript)
	}
	for i, scene := range s.Scenes {
		if err := scene.validate(fmt.Sprintf("scenes[%d]", i)); err != nil {
			return err
		}
	}
	return s.ClosingScene.validate("closing_scene")
}

func (sc Scene) validate(path string) error {
	if strings.TrimSpace(sc.Description) == "" {
		return fmt.Errorf("%w: %s.description is empty", ErrInvalidScript, path)
	}
	if strings.TrimSpace(sc.VisualPrompt) == "" {
		return fmt.Errorf("%w: %s.visual_prompt is empty", ErrInvalidScript, path)
	}
	return nil
}

// AllScenes returns opening, main and closing scenes in playback order.
func (s *Script) AllScenes() []Scene {
	if s == nil {
		return nil
	}
	out := make([]Scene, 0, len(s.Scenes)+2)
	out = append(out, s.OpeningScene)
	out = append(out, s.Scenes...)
	return append(out, s.ClosingScene)
}

// Narration joins every scene description into the voice-over text.
func (s *Script) Narration() string {
	scenes := s.AllScenes()
	parts := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		if d := strings.TrimSpace(sc.Description); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, " ")
}

// Clone deep-copies the script.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	out := *s
	out.Hashtags = append([]string(nil), s.Hashtags...)
	out.Scenes = append([]Scene(nil), s.Scenes...)
	return &out
}
