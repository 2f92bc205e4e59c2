package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"contentstudio/internal/domain"
)

// ContentRepositoryMemory is an in-process domain.ContentRepository used by
// tests and by STORE_BACKEND=memory.
type ContentRepositoryMemory struct {
	mu      sync.Mutex
	records map[string]*domain.ContentRequest
	now     func() time.Time
}

// NewContentRepositoryMemory returns an empty in-memory store.
func NewContentRepositoryMemory() *ContentRepositoryMemory {
	return &ContentRepositoryMemory{
		records: make(map[string]*domain.ContentRequest),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (r *ContentRepositoryMemory) WithClock(now func() time.Time) *ContentRepositoryMemory {
	r.now = now
	return r
}

func (r *ContentRepositoryMemory) Create(_ context.Context, cfg domain.ContentConfig) (*domain.ContentRequest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rec := domain.NewContentRequest(uuid.NewString(), cfg, r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return rec.Clone(), nil
}

func (r *ContentRepositoryMemory) Get(_ context.Context, id string) (*domain.ContentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *ContentRepositoryMemory) List(_ context.Context, limit, offset int) ([]domain.ContentRequest, error) {
	r.mu.Lock()
	all := make([]domain.ContentRequest, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, *rec.Clone())
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []domain.ContentRequest{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Update applies the mutation to a private copy and swaps it in only when
// the transition is accepted.
func (r *ContentRepositoryMemory) Update(_ context.Context, id string, update domain.ContentUpdate) (*domain.ContentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := rec.Clone()
	if err := update.Apply(next, r.now()); err != nil {
		return nil, err
	}
	r.records[id] = next
	return next.Clone(), nil
}

func (r *ContentRepositoryMemory) ListStale(_ context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, rec := range r.records {
		if rec.Status == domain.StatusProcessing && rec.UpdatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

var _ domain.ContentRepository = (*ContentRepositoryMemory)(nil)
