package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// FetchDropInput contains parameters for the FetchDrop operation.
type FetchDropInput struct {
	ID             int64
	IncludeContent *bool // default: true (nil means default)
}

// FetchDrop retrieves a drop by id.
func FetchDrop(ctx context.Context, database *sql.DB, input FetchDropInput) (*wisdom.WisdomDrop, error) {
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id must be a positive integer")
	}

	d, err := db.GetDrop(ctx, database, input.ID)
	if err != nil {
		return nil, err
	}

	if input.IncludeContent != nil && !*input.IncludeContent {
		d.Content = ""
	}
	return d, nil
}

// FetchDocumentInput contains parameters for the FetchDocument operation.
type FetchDocumentInput struct {
	ID             string
	IncludeContent *bool // default: true (nil means default)
}

// FetchDocument retrieves an attribution document by id. It never counts as a download.
func FetchDocument(ctx context.Context, database *sql.DB, input FetchDocumentInput) (*wisdom.AttributionDocument, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	doc, err := db.GetDocument(ctx, database, id)
	if err != nil {
		return nil, err
	}

	if input.IncludeContent != nil && !*input.IncludeContent {
		doc.Content = ""
	}
	return doc, nil
}
