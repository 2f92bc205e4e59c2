// Package client talks to the content studio HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Services struct {
	ContentGeneration bool `json:"contentGeneration"`
	ImageGeneration   bool `json:"imageGeneration"`
	VoiceGeneration   bool `json:"voiceGeneration"`
	MusicGeneration   bool `json:"musicGeneration"`
	VideoGeneration   bool `json:"videoGeneration"`
}

type CreateContentRequest struct {
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

type Scene struct {
	Description  string `json:"description"`
	VisualPrompt string `json:"visual_prompt"`
}

type Script struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Hashtags     []string `json:"hashtags"`
	OpeningScene Scene    `json:"opening_scene"`
	Scenes       []Scene  `json:"scenes"`
	ClosingScene Scene    `json:"closing_scene"`
}

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

type Progress struct {
	Status             string  `json:"status"`
	CurrentStep        *string `json:"currentStep"`
	ProgressPercentage int     `json:"progressPercentage"`
	ErrorMessage       *string `json:"errorMessage,omitempty"`
	ErrorStep          *string `json:"errorStep,omitempty"`
}

// Terminal reports whether no further updates will follow.
func (p Progress) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusError
}

type Content struct {
	ID string `json:"id"`
	CreateContentRequest
	Progress

	GeneratedContent *Script  `json:"generatedContent,omitempty"`
	GeneratedPicture *string  `json:"generatedPicture,omitempty"`
	GeneratedVoice   *string  `json:"generatedVoice,omitempty"`
	GeneratedMusic   *string  `json:"generatedMusic,omitempty"`
	GeneratedVideo   *string  `json:"generatedVideo,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Field != "" {
		return fmt.Sprintf("api: %d %s (%s): %s", e.StatusCode, e.Code, e.Field, msg)
	}
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, msg)
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateContent submits req and returns the new content id.
func (c *Client) CreateContent(ctx context.Context, req CreateContentRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/create-content", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) GetContent(ctx context.Context, id string) (*Content, error) {
	var out Content
	if err := c.do(ctx, http.MethodGet, "/api/get-content?id="+url.QueryEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Progress(ctx context.Context, id string) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, "/api/content-progress/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
