package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// ListDropsInput contains parameters for the ListDrops operation.
type ListDropsInput struct {
	Category    string // optional exact-match filter
	AuthorEmail string // optional exact-match filter
	Limit       int    // default: 20, max: 100
	Offset      int    // default: 0
}

// ListDropsOutput contains the result of the ListDrops operation.
type ListDropsOutput struct {
	Items      []wisdom.DropSummary `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Sort       string               `json:"sort"`
}

// ListDrops retrieves drop summaries with pagination.
func ListDrops(ctx context.Context, database *sql.DB, input ListDropsInput) (*ListDropsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	filter := db.DropFilter{
		Category:    wisdom.CleanLine(input.Category),
		AuthorEmail: strings.TrimSpace(input.AuthorEmail),
	}
	drops, total, err := db.ListDrops(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]wisdom.DropSummary, 0, len(drops))
	for _, d := range drops {
		items = append(items, d.ToSummary())
	}

	return &ListDropsOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_desc",
	}, nil
}

// ListDocumentsInput contains parameters for the ListDocuments operation.
type ListDocumentsInput struct {
	WisdomID int64 // required
	Limit    int   // default: 20, max: 100
	Offset   int   // default: 0
}

// ListDocumentsOutput contains the result of the ListDocuments operation.
type ListDocumentsOutput struct {
	WisdomID   int64                    `json:"wisdom_id"`
	Items      []wisdom.DocumentSummary `json:"items"`
	Pagination Pagination               `json:"pagination"`
	Sort       string                   `json:"sort"`
}

// ListDocuments retrieves the document history of one drop, newest first.
func ListDocuments(ctx context.Context, database *sql.DB, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	if input.WisdomID <= 0 {
		return nil, errors.NewInvalidRequest("wisdom_id must be a positive integer")
	}
	limit, offset := clampPage(input.Limit, input.Offset)

	// Distinguish an unknown drop from a drop with no documents yet
	if _, err := db.GetDrop(ctx, database, input.WisdomID); err != nil {
		return nil, err
	}

	docs, total, err := db.ListDocuments(ctx, database, input.WisdomID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]wisdom.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.ToSummary())
	}

	return &ListDocumentsOutput{
		WisdomID:   input.WisdomID,
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_desc",
	}, nil
}
