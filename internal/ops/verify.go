package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wisdom/internal/wisdom"
)

// VerifyOutput contains the result of the VerifyDocument operation.
type VerifyOutput struct {
	ID           string `json:"id"`
	WisdomID     int64  `json:"wisdom_id"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash"`
	Valid        bool   `json:"valid"`
}

// VerifyDocument recomputes the hash of a document's stored content and
// compares it with the stored hash.
func VerifyDocument(ctx context.Context, database *sql.DB, id string) (*VerifyOutput, error) {
	doc, err := FetchDocument(ctx, database, FetchDocumentInput{ID: id})
	if err != nil {
		return nil, err
	}

	computed := wisdom.HashContent(doc.Content)
	return &VerifyOutput{
		ID:           doc.ID,
		WisdomID:     doc.WisdomID,
		StoredHash:   doc.DocumentHash,
		ComputedHash: computed,
		Valid:        computed == doc.DocumentHash,
	}, nil
}
