package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"contentstudio/internal/domain"
	"contentstudio/internal/providers/media"
	"contentstudio/internal/providers/script"
)

const maxErrorMessageLen = 1000

// Options tunes an Orchestrator.
type Options struct {
	// StepTimeout bounds each step; zero disables the bound.
	StepTimeout time.Duration
	Metrics     *Metrics
	Logger      zerolog.Logger
}

// Orchestrator runs the generation steps for one content id at a time.
// Distinct ids may run concurrently; they share nothing but the store.
type Orchestrator struct {
	store       domain.ContentRepository
	scripts     script.Generator
	media       media.Generator
	stepTimeout time.Duration
	metrics     *Metrics
	logger      zerolog.Logger
}

func New(store domain.ContentRepository, scripts script.Generator, mediaGen media.Generator, opts Options) *Orchestrator {
	return &Orchestrator{
		store:       store,
		scripts:     scripts,
		media:       mediaGen,
		stepTimeout: opts.StepTimeout,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// Run executes every enabled step for id in order. A failing step moves the
// record to error and is returned as *domain.StepFailure; artifacts written
// by earlier steps are kept. Records already terminal are left untouched.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load content %s: %w", id, err)
	}
	logger := o.logger.With().Str("content_id", id).Logger()
	if rec.Status.Terminal() {
		logger.Info().Str("status", string(rec.Status)).Msg("content already finished; skipping run")
		return nil
	}

	o.metrics.runStarted()
	started := time.Now()

	err = o.run(ctx, rec, logger)

	status := domain.StatusCompleted
	var failure *domain.StepFailure
	switch {
	case errors.As(err, &failure):
		status = domain.StatusError
	case err != nil:
		status = "interrupted"
	}
	o.metrics.runFinished(string(status), time.Since(started))
	return err
}

func (o *Orchestrator) run(ctx context.Context, rec *domain.ContentRequest, logger zerolog.Logger) error {
	var enabled []step
	for _, s := range pipelineSteps {
		if s.enabled(rec.Services) {
			enabled = append(enabled, s)
		}
	}

	st := &runState{record: rec, script: rec.GeneratedContent, urls: map[media.Kind]string{}}
	restoreURLs(st, rec)
	progress := rec.ProgressPercentage
	total := len(enabled)

	for i, s := range enabled {
		if s.done(rec) {
			logger.Info().Str("step", string(s.name)).Msg("step output already stored; resuming after it")
			progress = max(progress, (i+1)*100/total)
			continue
		}

		progress = max(progress, i*100/total)
		if err := o.update(ctx, rec.ID, domain.ContentUpdate{
			CurrentStep:        domain.StringPtr(s.label),
			ProgressPercentage: domain.IntPtr(progress),
		}); err != nil {
			return err
		}

		stepLog := logger.With().Str("step", string(s.name)).Logger()
		stepLog.Info().Int("progress", progress).Msg("step started")
		begin := time.Now()

		upd, err := o.runStep(ctx, s, st)
		elapsed := time.Since(begin)
		if err != nil {
			if ctx.Err() != nil {
				stepLog.Warn().Err(err).Msg("run interrupted")
				o.metrics.observeStep(string(s.name), "interrupted", elapsed)
				return ctx.Err()
			}
			o.metrics.observeStep(string(s.name), "error", elapsed)
			stepLog.Error().Err(err).Int64("duration_ms", elapsed.Milliseconds()).Msg("step failed")
			return o.fail(ctx, rec.ID, s, err)
		}
		o.metrics.observeStep(string(s.name), "ok", elapsed)

		progress = max(progress, (i+1)*100/total)
		upd.ProgressPercentage = domain.IntPtr(progress)
		if err := o.update(ctx, rec.ID, upd); err != nil {
			return err
		}
		stepLog.Info().Int64("duration_ms", elapsed.Milliseconds()).Int("progress", progress).Msg("step finished")
	}

	completed := domain.StatusCompleted
	if err := o.update(ctx, rec.ID, domain.ContentUpdate{
		Status:             &completed,
		CurrentStep:        domain.StringPtr(CompletedLabel),
		ProgressPercentage: domain.IntPtr(100),
	}); err != nil {
		return err
	}
	logger.Info().Int("steps", total).Msg("content completed")
	return nil
}

// runStep applies the per-step timeout and turns panics into errors.
func (o *Orchestrator) runStep(ctx context.Context, s step, st *runState) (upd domain.ContentUpdate, err error) {
	stepCtx := ctx
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("step", string(s.name)).Bytes("stack", debug.Stack()).Msgf("step panicked: %v", r)
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	upd, err = s.run(stepCtx, o, st)
	if err == nil && stepCtx.Err() != nil && ctx.Err() == nil {
		err = stepCtx.Err()
	}
	if err != nil && ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("step timed out after %s: %w", o.stepTimeout, err)
	}
	return upd, err
}

func (o *Orchestrator) fail(ctx context.Context, id string, s step, cause error) error {
	failure := &domain.StepFailure{Step: string(s.name), Err: cause}
	msg := truncateMessage(cause.Error(), maxErrorMessageLen)
	status := domain.StatusError
	if err := o.update(ctx, id, domain.ContentUpdate{
		Status:       &status,
		ErrorStep:    domain.StringPtr(string(s.name)),
		ErrorMessage: &msg,
	}); err != nil {
		return errors.Join(failure, err)
	}
	return failure
}

func (o *Orchestrator) update(ctx context.Context, id string, upd domain.ContentUpdate) error {
	if _, err := o.store.Update(ctx, id, upd); err != nil {
		return fmt.Errorf("update content %s: %w", id, err)
	}
	return nil
}

func restoreURLs(st *runState, rec *domain.ContentRequest) {
	for kind, url := range map[media.Kind]*string{
		media.KindImage: rec.GeneratedPicture,
		media.KindVoice: rec.GeneratedVoice,
		media.KindMusic: rec.GeneratedMusic,
		media.KindVideo: rec.GeneratedVideo,
	} {
		if url != nil {
			st.urls[kind] = *url
		}
	}
}

// truncateMessage cuts msg to at most n bytes on a rune boundary and drops
// invalid UTF-8, which Postgres text columns reject.
func truncateMessage(msg string, n int) string {
	msg = strings.ToValidUTF8(msg, "")
	if len(msg) <= n {
		return msg
	}
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}
