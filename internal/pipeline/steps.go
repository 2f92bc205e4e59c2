package pipeline

import (
	"context"
	"fmt"
	"strings"

	"contentstudio/internal/domain"
	"contentstudio/internal/providers/media"
	"contentstudio/internal/providers/script"
)

// StepName identifies a pipeline stage; it is what errorStep reports.
type StepName string

const (
	StepContentGeneration StepName = "content_generation"
	StepImageGeneration   StepName = "image_generation"
	StepVoiceGeneration   StepName = "voice_generation"
	StepMusicGeneration   StepName = "music_generation"
	StepVideoGeneration   StepName = "video_generation"

	// StepOrchestration is reported when a run stalls outside any step.
	StepOrchestration StepName = "orchestration"
	// StepDispatch is reported when a run could not be enqueued.
	StepDispatch StepName = "dispatch"
)

// CompletedLabel is the currentStep of a successfully finished request.
const CompletedLabel = "Completed"

type step struct {
	name    StepName
	label   string
	enabled func(domain.Services) bool
	// done reports whether a previous attempt already stored the artifact.
	done func(*domain.ContentRequest) bool
	run  func(ctx context.Context, o *Orchestrator, st *runState) (domain.ContentUpdate, error)
}

// runState carries outputs of earlier steps to later ones.
type runState struct {
	record *domain.ContentRequest
	script *domain.Script
	urls   map[media.Kind]string
}

func (st *runState) inputs() map[string]string {
	out := make(map[string]string, len(st.urls))
	for k, v := range st.urls {
		out[string(k)] = v
	}
	return out
}

func (st *runState) mediaRequest(kind media.Kind, prompt string) media.Request {
	cfg := st.record.ContentConfig
	return media.Request{
		ContentID: st.record.ID,
		Kind:      kind,
		Prompt:    prompt,
		Title:     cfg.Title,
		Style:     cfg.Style,
		Locale:    cfg.Locale,
		Duration:  cfg.Duration,
		Script:    st.script,
		Inputs:    st.inputs(),
	}
}

var pipelineSteps = []step{
	{
		name:    StepContentGeneration,
		label:   "Generating script",
		enabled: func(s domain.Services) bool { return s.ContentGeneration },
		done:    func(r *domain.ContentRequest) bool { return r.GeneratedContent != nil },
		run:     runContentStep,
	},
	{
		name:    StepImageGeneration,
		label:   "Generating image",
		enabled: func(s domain.Services) bool { return s.ImageGeneration },
		done:    func(r *domain.ContentRequest) bool { return r.GeneratedPicture != nil },
		run:     mediaStep(media.KindImage, imagePrompt, func(u *domain.ContentUpdate, url string) { u.GeneratedPicture = &url }),
	},
	{
		name:    StepVoiceGeneration,
		label:   "Generating voice",
		enabled: func(s domain.Services) bool { return s.VoiceGeneration },
		done:    func(r *domain.ContentRequest) bool { return r.GeneratedVoice != nil },
		run:     mediaStep(media.KindVoice, voicePrompt, func(u *domain.ContentUpdate, url string) { u.GeneratedVoice = &url }),
	},
	{
		name:    StepMusicGeneration,
		label:   "Generating music",
		enabled: func(s domain.Services) bool { return s.MusicGeneration },
		done:    func(r *domain.ContentRequest) bool { return r.GeneratedMusic != nil },
		run:     mediaStep(media.KindMusic, musicPrompt, func(u *domain.ContentUpdate, url string) { u.GeneratedMusic = &url }),
	},
	{
		name:    StepVideoGeneration,
		label:   "Generating video",
		enabled: func(s domain.Services) bool { return s.VideoGeneration },
		done:    func(r *domain.ContentRequest) bool { return r.GeneratedVideo != nil },
		run:     mediaStep(media.KindVideo, videoPrompt, func(u *domain.ContentUpdate, url string) { u.GeneratedVideo = &url }),
	},
}

// StepForLabel maps a currentStep label back to its step name.
func StepForLabel(label string) (StepName, bool) {
	for _, s := range pipelineSteps {
		if s.label == label {
			return s.name, true
		}
	}
	return "", false
}

func runContentStep(ctx context.Context, o *Orchestrator, st *runState) (domain.ContentUpdate, error) {
	out, err := o.scripts.Generate(ctx, script.RequestFromConfig(st.record.ContentConfig))
	if err != nil {
		return domain.ContentUpdate{}, err
	}
	if err := out.Validate(); err != nil {
		return domain.ContentUpdate{}, err
	}
	st.script = out
	return domain.ContentUpdate{GeneratedContent: out}, nil
}

func mediaStep(kind media.Kind, prompt func(*runState) string, set func(*domain.ContentUpdate, string)) func(context.Context, *Orchestrator, *runState) (domain.ContentUpdate, error) {
	return func(ctx context.Context, o *Orchestrator, st *runState) (domain.ContentUpdate, error) {
		asset, err := o.media.Generate(ctx, st.mediaRequest(kind, prompt(st)))
		if err != nil {
			return domain.ContentUpdate{}, err
		}
		if asset == nil || strings.TrimSpace(asset.URL) == "" {
			return domain.ContentUpdate{}, fmt.Errorf("%w: %s generator returned no url", domain.ErrProviderFailure, kind)
		}
		st.urls[kind] = asset.URL
		var u domain.ContentUpdate
		set(&u, asset.URL)
		return u, nil
	}
}

func imagePrompt(st *runState) string {
	if st.script != nil {
		return st.script.OpeningScene.VisualPrompt
	}
	cfg := st.record.ContentConfig
	return fmt.Sprintf("%s vertical illustration for %q: %s", cfg.Style, cfg.Title, cfg.Description)
}

func voicePrompt(st *runState) string {
	if st.script != nil {
		return st.script.Narration()
	}
	return st.record.Description
}

func musicPrompt(st *runState) string {
	cfg := st.record.ContentConfig
	return fmt.Sprintf("Create %s music for a video about %s", cfg.Style, cfg.Title)
}

func videoPrompt(st *runState) string {
	if st.script != nil {
		return st.script.Title
	}
	return st.record.Title
}
