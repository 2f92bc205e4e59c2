package domain

import (
	"context"
	"time"
)

// ContentRepository persists content requests. Implementations must
// serialize concurrent updates to the same record.
type ContentRepository interface {
	Create(ctx context.Context, cfg ContentConfig) (*ContentRequest, error)
	Get(ctx context.Context, id string) (*ContentRequest, error)
	List(ctx context.Context, limit, offset int) ([]ContentRequest, error)
	Update(ctx context.Context, id string, update ContentUpdate) (*ContentRequest, error)
	// ListStale returns ids of processing records untouched since before.
	ListStale(ctx context.Context, before time.Time) ([]string, error)
}
