package client

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval matches the cadence of the web results page.
const DefaultPollInterval = 2 * time.Second

// TransientFetchError reports a failed progress fetch. Polling stops on the
// first one; the caller decides whether to start again.
type TransientFetchError struct {
	ID  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch progress for %s failed, try again: %v", e.ID, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// ProgressFetcher is satisfied by *Client.
type ProgressFetcher interface {
	Progress(ctx context.Context, id string) (*Progress, error)
}

// Poller follows one content id until it reaches a terminal status.
type Poller struct {
	Fetcher  ProgressFetcher
	Interval time.Duration
	// OnUpdate, when set, receives every fetched snapshot in order.
	OnUpdate func(Progress)
}

func NewPoller(f ProgressFetcher) *Poller {
	return &Poller{Fetcher: f, Interval: DefaultPollInterval}
}

// Wait fetches immediately and then once per Interval. It returns the
// terminal snapshot (a failed generation is a snapshot with status error,
// not a Go error), a *TransientFetchError when a fetch fails, or ctx.Err().
func (p *Poller) Wait(ctx context.Context, id string) (*Progress, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := p.Fetcher.Progress(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &TransientFetchError{ID: id, Err: err}
		}
		if p.OnUpdate != nil {
			p.OnUpdate(*snap)
		}
		if snap.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
