package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

const documentColumns = `id, wisdom_id, document_hash, content, created_at, download_count`

// InsertDocument stores doc unless a document with the same hash already exists.
// An existing hash yields a DUPLICATE_CONTENT error and writes nothing, whether
// it is caught by ON CONFLICT or by the unique index under a racing writer.
func InsertDocument(ctx context.Context, q Querier, doc *wisdom.AttributionDocument) error {
	query := `
		INSERT INTO attribution_documents (
			id, wisdom_id, document_hash, content, created_at, download_count
		) VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(document_hash) DO NOTHING
	`

	result, err := q.ExecContext(ctx, query,
		doc.ID, doc.WisdomID, doc.DocumentHash, doc.Content, doc.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewDuplicateContent(doc.DocumentHash)
		}
		return errors.NewStorageFailure(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageFailure(err)
	}
	if rowsAffected == 0 {
		return errors.NewDuplicateContent(doc.DocumentHash)
	}

	doc.DownloadCount = 0
	return nil
}

// GetDocument retrieves a document by its ULID.
func GetDocument(ctx context.Context, q Querier, id string) (*wisdom.AttributionDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM attribution_documents WHERE id = ?`

	doc, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("attribution document", id)
	}
	if err != nil {
		return nil, errors.NewStorageFailure(err)
	}

	return doc, nil
}

// GetDocumentByHash retrieves the document holding a content hash.
func GetDocumentByHash(ctx context.Context, q Querier, hash string) (*wisdom.AttributionDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM attribution_documents WHERE document_hash = ?`

	doc, err := scanDocument(q.QueryRowContext(ctx, query, hash))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("attribution document", hash)
	}
	if err != nil {
		return nil, errors.NewStorageFailure(err)
	}

	return doc, nil
}

// ListDocuments returns the documents of one drop newest first, plus their total.
// wisdomID 0 lists documents across all drops.
func ListDocuments(ctx context.Context, q Querier, wisdomID int64, limit, offset int) ([]*wisdom.AttributionDocument, int, error) {
	where := ""
	var args []any
	if wisdomID != 0 {
		where = " WHERE wisdom_id = ?"
		args = append(args, wisdomID)
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attribution_documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}

	query := `SELECT ` + documentColumns + ` FROM attribution_documents` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}
	defer rows.Close()

	docs := make([]*wisdom.AttributionDocument, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, errors.NewStorageFailure(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}

	return docs, total, nil
}

// CountDocuments returns how many documents exist for a drop (all drops when wisdomID is 0).
func CountDocuments(ctx context.Context, q Querier, wisdomID int64) (int, error) {
	query := `SELECT COUNT(*) FROM attribution_documents`
	var args []any
	if wisdomID != 0 {
		query += ` WHERE wisdom_id = ?`
		args = append(args, wisdomID)
	}

	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewStorageFailure(err)
	}
	return n, nil
}

// IncrementDownloadCount adds one to a document's download_count.
// This is the only mutation a stored document accepts.
func IncrementDownloadCount(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE attribution_documents SET download_count = download_count + 1 WHERE id = ?`, id)
	if err != nil {
		return errors.NewStorageFailure(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageFailure(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("attribution document", id)
	}

	return nil
}

// scanDocument scans a single row into an AttributionDocument.
func scanDocument(row rowScanner) (*wisdom.AttributionDocument, error) {
	var doc wisdom.AttributionDocument
	err := row.Scan(
		&doc.ID, &doc.WisdomID, &doc.DocumentHash, &doc.Content, &doc.CreatedAt, &doc.DownloadCount,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
