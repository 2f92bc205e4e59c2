package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"contentstudio/internal/domain"
)

// Reaper moves records stuck in processing to error so clients polling them
// reach a terminal state.
type Reaper struct {
	store   domain.ContentRepository
	maxAge  time.Duration
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewReaper(store domain.ContentRepository, maxAge time.Duration, metrics *Metrics, logger zerolog.Logger) *Reaper {
	return &Reaper{store: store, maxAge: maxAge, metrics: metrics, logger: logger, now: time.Now}
}

// Sweep marks every stale processing record as failed and returns how many
// it changed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	ids, err := r.store.ListStale(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		return 0, fmt.Errorf("list stale content: %w", err)
	}

	reaped := 0
	for _, id := range ids {
		rec, err := r.store.Get(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("content_id", id).Msg("reaper: load failed")
			continue
		}
		failedStep := StepOrchestration
		if rec.CurrentStep != nil {
			if name, ok := StepForLabel(*rec.CurrentStep); ok {
				failedStep = name
			}
		}
		status := domain.StatusError
		msg := fmt.Sprintf("generation stalled: no progress for %s", r.maxAge)
		_, err = r.store.Update(ctx, id, domain.ContentUpdate{
			Status:       &status,
			ErrorStep:    domain.StringPtr(string(failedStep)),
			ErrorMessage: &msg,
		})
		if errors.Is(err, domain.ErrTerminalState) {
			continue
		}
		if err != nil {
			r.logger.Warn().Err(err).Str("content_id", id).Msg("reaper: update failed")
			continue
		}
		reaped++
		r.logger.Warn().Str("content_id", id).Str("step", string(failedStep)).Msg("reaper: marked stalled content as error")
	}
	r.metrics.reaped(reaped)
	return reaped, nil
}

// Start schedules Sweep with a cron spec such as "@every 1m" and stops the
// scheduler when ctx ends.
func (r *Reaper) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error().Err(err).Msg("reaper sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule reaper %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
