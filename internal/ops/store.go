package ops

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// StoreDropInput contains parameters for the StoreDrop operation.
type StoreDropInput struct {
	Title       string // required
	Content     string // required
	AuthorEmail string // required
	AuthorID    string
	Category    string
	Tags        []string
	Layers      *wisdom.LayerSet // optional precomputed layers; all five or none
	CreatedAt   *int64           // Unix seconds; nil means now
}

// StoreDropOutput contains the result of the StoreDrop operation.
type StoreDropOutput struct {
	ID        int64 `json:"id"`
	CreatedAt int64 `json:"created_at"`
}

// StoreDrop validates and stores a new wisdom drop.
func StoreDrop(ctx context.Context, database *sql.DB, cfg *config.Config, input StoreDropInput) (*StoreDropOutput, error) {
	d, err := buildDrop(cfg, input, time.Now())
	if err != nil {
		return nil, err
	}

	if err := db.InsertDrop(ctx, database, d); err != nil {
		return nil, err
	}

	return &StoreDropOutput{ID: d.ID, CreatedAt: d.CreatedAt}, nil
}

// buildDrop validates input and returns the drop to insert.
func buildDrop(cfg *config.Config, input StoreDropInput, now time.Time) (*wisdom.WisdomDrop, error) {
	title := wisdom.CleanLine(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	email := strings.TrimSpace(input.AuthorEmail)
	if email == "" {
		return nil, errors.NewInvalidRequest("author_email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, errors.NewInvalidRequest("author_email must be a bare email address")
	}

	maxChars := config.DefaultConfig().ContentMaxChars
	if cfg != nil && cfg.ContentMaxChars > 0 {
		maxChars = cfg.ContentMaxChars
	}
	if n := wisdom.CountChars(input.Content); n > maxChars {
		return nil, errors.NewContentTooLarge(maxChars, n)
	}

	if input.Layers != nil && !input.Layers.Complete() {
		return nil, errors.NewInvalidRequest("layers must set all five fields or be omitted")
	}
	createdAt := now.Unix()
	if input.CreatedAt != nil {
		if *input.CreatedAt < 0 {
			return nil, errors.NewInvalidRequest("created_at must not be negative")
		}
		createdAt = *input.CreatedAt
	}

	return &wisdom.WisdomDrop{
		Title:       title,
		Content:     input.Content,
		AuthorEmail: email,
		AuthorID:    strings.TrimSpace(input.AuthorID),
		Category:    wisdom.CleanLine(input.Category),
		Tags:        wisdom.CleanTags(input.Tags),
		Layers:      input.Layers,
		CreatedAt:   createdAt,
	}, nil
}

// RecordDropView counts one view of a drop. Views are part of the canonical
// composition, so a view makes the next Generate produce a new document.
func RecordDropView(ctx context.Context, database *sql.DB, id int64) error {
	return db.IncrementDropCounter(ctx, database, id, db.CounterViews)
}
