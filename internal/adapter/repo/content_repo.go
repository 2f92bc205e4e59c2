package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"contentstudio/internal/domain"
	"contentstudio/internal/infra"
	"contentstudio/internal/sqlinline"
)

// SQLStore is the executor surface the Postgres repository needs.
type SQLStore interface {
	infra.SQLExecutor
	infra.TxRunner
}

// ContentRepositoryPG implements domain.ContentRepository on PostgreSQL.
type ContentRepositoryPG struct {
	db  SQLStore
	now func() time.Time
}

// NewContentRepository creates a repository backed by the audited SQL runner.
func NewContentRepository(db SQLStore) *ContentRepositoryPG {
	return &ContentRepositoryPG{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type contentRow struct {
	ID                 string    `db:"id"`
	Title              string    `db:"title"`
	Description        string    `db:"description"`
	TargetAudience     string    `db:"target_audience"`
	Duration           int       `db:"duration"`
	Style              string    `db:"style"`
	SceneAmount        int       `db:"scene_amount"`
	Tone               string    `db:"tone"`
	Locale             string    `db:"locale"`
	Services           []byte    `db:"services"`
	Status             string    `db:"status"`
	ProgressPercentage int       `db:"progress_percentage"`
	CurrentStep        *string   `db:"current_step"`
	GeneratedContent   []byte    `db:"generated_content"`
	GeneratedPicture   *string   `db:"generated_picture"`
	GeneratedVoice     *string   `db:"generated_voice"`
	GeneratedMusic     *string   `db:"generated_music"`
	GeneratedVideo     *string   `db:"generated_video"`
	ErrorMessage       *string   `db:"error_message"`
	ErrorStep          *string   `db:"error_step"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r contentRow) toDomain() (*domain.ContentRequest, error) {
	rec := &domain.ContentRequest{
		ID: r.ID,
		ContentConfig: domain.ContentConfig{
			Title:          r.Title,
			Description:    r.Description,
			TargetAudience: r.TargetAudience,
			Duration:       r.Duration,
			Style:          r.Style,
			SceneAmount:    r.SceneAmount,
			Tone:           r.Tone,
			Locale:         r.Locale,
		},
		Status:             domain.Status(r.Status),
		ProgressPercentage: r.ProgressPercentage,
		CurrentStep:        r.CurrentStep,
		GeneratedPicture:   r.GeneratedPicture,
		GeneratedVoice:     r.GeneratedVoice,
		GeneratedMusic:     r.GeneratedMusic,
		GeneratedVideo:     r.GeneratedVideo,
		ErrorMessage:       r.ErrorMessage,
		ErrorStep:          r.ErrorStep,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if len(r.Services) > 0 {
		if err := json.Unmarshal(r.Services, &rec.Services); err != nil {
			return nil, fmt.Errorf("decode services for %s: %w", r.ID, err)
		}
	}
	if len(r.GeneratedContent) > 0 {
		var script domain.Script
		if err := json.Unmarshal(r.GeneratedContent, &script); err != nil {
			return nil, fmt.Errorf("decode generated content for %s: %w", r.ID, err)
		}
		rec.GeneratedContent = &script
	}
	return rec, nil
}

// Create validates cfg and inserts the initial processing record.
func (r *ContentRepositoryPG) Create(ctx context.Context, cfg domain.ContentConfig) (*domain.ContentRequest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	services, err := json.Marshal(cfg.Services)
	if err != nil {
		return nil, fmt.Errorf("encode services: %w", err)
	}

	rec := domain.NewContentRequest(uuid.NewString(), cfg, r.now())
	_, err = r.db.Exec(ctx, sqlinline.QInsertContentRequest,
		rec.ID,
		rec.Title,
		rec.Description,
		rec.TargetAudience,
		rec.Duration,
		rec.Style,
		rec.SceneAmount,
		rec.Tone,
		rec.Locale,
		string(services),
		string(rec.Status),
		rec.ProgressPercentage,
		rec.CurrentStep,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert content request: %w", err)
	}
	return rec, nil
}

// Get fetches one record; unknown or malformed ids yield domain.ErrNotFound.
func (r *ContentRepositoryPG) Get(ctx context.Context, id string) (*domain.ContentRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getRow(ctx, r.db, sqlinline.QSelectContentRequest, id)
}

func (r *ContentRepositoryPG) getRow(ctx context.Context, db infra.SQLExecutor, query, id string) (*domain.ContentRequest, error) {
	var row contentRow
	if err := pgxscan.Get(ctx, db, &row, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select content request: %w", err)
	}
	return row.toDomain()
}

// List returns records newest first.
func (r *ContentRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.ContentRequest, error) {
	var rows []contentRow
	if err := pgxscan.Select(ctx, r.db, &rows, sqlinline.QListContentRequests, limit, offset); err != nil {
		return nil, fmt.Errorf("list content requests: %w", err)
	}
	out := make([]domain.ContentRequest, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Update locks the row, applies the transition rules and writes it back in
// one transaction.
func (r *ContentRepositoryPG) Update(ctx context.Context, id string, update domain.ContentUpdate) (*domain.ContentRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var out *domain.ContentRequest
	err := r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		rec, err := r.getRow(ctx, tx, sqlinline.QLockContentRequest, id)
		if err != nil {
			return err
		}
		if err := update.Apply(rec, r.now()); err != nil {
			return err
		}

		var script any
		if rec.GeneratedContent != nil {
			raw, err := json.Marshal(rec.GeneratedContent)
			if err != nil {
				return fmt.Errorf("encode generated content: %w", err)
			}
			script = string(raw)
		}

		if _, err := tx.Exec(ctx, sqlinline.QUpdateContentRequest,
			rec.ID,
			string(rec.Status),
			rec.ProgressPercentage,
			rec.CurrentStep,
			script,
			rec.GeneratedPicture,
			rec.GeneratedVoice,
			rec.GeneratedMusic,
			rec.GeneratedVideo,
			rec.ErrorMessage,
			rec.ErrorStep,
			rec.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update content request: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStale returns processing records whose last mutation predates before.
func (r *ContentRepositoryPG) ListStale(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	if err := pgxscan.Select(ctx, r.db, &ids, sqlinline.QListStaleContentRequests, before); err != nil {
		return nil, fmt.Errorf("list stale content requests: %w", err)
	}
	return ids, nil
}

var _ domain.ContentRepository = (*ContentRepositoryPG)(nil)
