package domain

import (
	"strings"
	"time"
)

// Status enumerates the lifecycle states of a content request.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further mutation may follow this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusProcessing || s.Terminal()
}

// Style enumerates the supported video styles.
type Style string

const (
	StyleInformative  Style = "informative"
	StyleEntertaining Style = "entertaining"
	StyleTutorial     Style = "tutorial"
	StyleEducational  Style = "educational"
)

// Styles lists every accepted style in display order.
var Styles = []Style{StyleInformative, StyleEntertaining, StyleTutorial, StyleEducational}

// ParseStyle normalises raw into a known style.
func ParseStyle(raw string) (Style, bool) {
	s := Style(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Styles {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// InitialStep is the currentStep label of a freshly created request.
const InitialStep = "Initializing"

// Services toggles the individual generation steps.
type Services struct {
	ContentGeneration bool `json:"contentGeneration"`
	ImageGeneration   bool `json:"imageGeneration"`
	VoiceGeneration   bool `json:"voiceGeneration"`
	MusicGeneration   bool `json:"musicGeneration"`
	VideoGeneration   bool `json:"videoGeneration"`
}

// EnabledCount returns how many steps are switched on.
func (s Services) EnabledCount() int {
	n := 0
	for _, on := range []bool{s.ContentGeneration, s.ImageGeneration, s.VoiceGeneration, s.MusicGeneration, s.VideoGeneration} {
		if on {
			n++
		}
	}
	return n
}

// ContentConfig is the user-supplied description of a video to generate.
type ContentConfig struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TargetAudience string   `json:"targetAudience"`
	Duration       int      `json:"duration"`
	Style          string   `json:"style"`
	SceneAmount    int      `json:"sceneAmount"`
	Tone           string   `json:"tone,omitempty"`
	Locale         string   `json:"locale,omitempty"`
	Services       Services `json:"services"`
}

// Validate checks the required fields and returns a *ValidationError naming
// the first offending field.
func (c ContentConfig) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"title", c.Title},
		{"description", c.Description},
		{"targetAudience", c.TargetAudience},
		{"style", c.Style},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.field + " is required"}
		}
	}
	if c.Duration <= 0 {
		return &ValidationError{Field: "duration", Message: "duration must be a positive integer"}
	}
	if c.SceneAmount <= 0 {
		return &ValidationError{Field: "sceneAmount", Message: "sceneAmount must be a positive integer"}
	}
	if _, ok := ParseStyle(c.Style); !ok {
		return &ValidationError{Field: "style", Message: "style must be one of informative, entertaining, tutorial, educational"}
	}
	return nil
}

// ContentRequest is the persisted record of one creation request.
type ContentRequest struct {
	ID string `json:"id"`
	ContentConfig

	Status             Status  `json:"status"`
	ProgressPercentage int     `json:"progressPercentage"`
	CurrentStep        *string `json:"currentStep"`

	GeneratedContent *Script `json:"generatedContent,omitempty"`
	GeneratedPicture *string `json:"generatedPicture,omitempty"`
	GeneratedVoice   *string `json:"generatedVoice,omitempty"`
	GeneratedMusic   *string `json:"generatedMusic,omitempty"`
	GeneratedVideo   *string `json:"generatedVideo,omitempty"`

	ErrorMessage *string `json:"errorMessage,omitempty"`
	ErrorStep    *string `json:"errorStep,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewContentRequest builds the initial record for cfg.
func NewContentRequest(id string, cfg ContentConfig, now time.Time) *ContentRequest {
	step := InitialStep
	return &ContentRequest{
		ID:            id,
		ContentConfig: cfg,
		Status:        StatusProcessing,
		CurrentStep:   &step,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Progress is the client-facing snapshot served by the progress endpoint.
type Progress struct {
	Status             Status  `json:"status"`
	CurrentStep        *string `json:"currentStep"`
	ProgressPercentage int     `json:"progressPercentage"`
	ErrorMessage       *string `json:"errorMessage,omitempty"`
	ErrorStep          *string `json:"errorStep,omitempty"`
}

// Progress projects the record onto its progress snapshot.
func (r *ContentRequest) Progress() Progress {
	return Progress{
		Status:             r.Status,
		CurrentStep:        r.CurrentStep,
		ProgressPercentage: r.ProgressPercentage,
		ErrorMessage:       r.ErrorMessage,
		ErrorStep:          r.ErrorStep,
	}
}

// Clone returns a deep copy so callers never share pointers with a store.
func (r *ContentRequest) Clone() *ContentRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.CurrentStep = cloneString(r.CurrentStep)
	out.GeneratedPicture = cloneString(r.GeneratedPicture)
	out.GeneratedVoice = cloneString(r.GeneratedVoice)
	out.GeneratedMusic = cloneString(r.GeneratedMusic)
	out.GeneratedVideo = cloneString(r.GeneratedVideo)
	out.ErrorMessage = cloneString(r.ErrorMessage)
	out.ErrorStep = cloneString(r.ErrorStep)
	out.GeneratedContent = r.GeneratedContent.Clone()
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
