package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// DropCounter names a serving-side counter column on wisdom_drops.
type DropCounter string

const (
	CounterViews     DropCounter = "views"
	CounterDownloads DropCounter = "downloads"
)

// DropFilter narrows ListDrops. Zero values mean no filter.
type DropFilter struct {
	Category    string
	AuthorEmail string
}

const dropColumns = `id, title, content, author_email, author_id, category,
			tags_json, layers_json, views, downloads, created_at`

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// InsertDrop stores a new drop and sets d.ID to the assigned id.
// A non-zero d.ID is inserted as-is (seed imports keep their ids).
func InsertDrop(ctx context.Context, q Querier, d *wisdom.WisdomDrop) error {
	tagsJSON, err := marshalTags(d.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}
	layersJSON, err := marshalLayers(d.Layers)
	if err != nil {
		return errors.NewInternal(err)
	}

	var id sql.NullInt64
	if d.ID != 0 {
		id = sql.NullInt64{Int64: d.ID, Valid: true}
	}

	query := `
		INSERT INTO wisdom_drops (
			id, title, content, author_email, author_id, category,
			tags_json, layers_json, views, downloads, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.ExecContext(ctx, query,
		id, d.Title, d.Content, d.AuthorEmail, d.AuthorID, d.Category,
		tagsJSON, layersJSON, d.Views, d.Downloads, d.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewInvalidRequest(fmt.Sprintf("wisdom drop id already in use: %d", d.ID))
		}
		return errors.NewStorageFailure(err)
	}

	newID, err := result.LastInsertId()
	if err != nil {
		return errors.NewStorageFailure(err)
	}
	d.ID = newID

	return nil
}

// GetDrop retrieves a drop by id.
func GetDrop(ctx context.Context, q Querier, id int64) (*wisdom.WisdomDrop, error) {
	query := `SELECT ` + dropColumns + ` FROM wisdom_drops WHERE id = ?`

	d, err := scanDrop(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("wisdom drop", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewStorageFailure(err)
	}

	return d, nil
}

// ListDrops returns drops newest first, plus the total matching the filter.
// Ordering is stable: created_at DESC, then id DESC.
func ListDrops(ctx context.Context, q Querier, filter DropFilter, limit, offset int) ([]*wisdom.WisdomDrop, int, error) {
	where, args := dropWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM wisdom_drops` + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}

	query := `SELECT ` + dropColumns + ` FROM wisdom_drops` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}
	defer rows.Close()

	drops := make([]*wisdom.WisdomDrop, 0)
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, 0, errors.NewStorageFailure(err)
		}
		drops = append(drops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewStorageFailure(err)
	}

	return drops, total, nil
}

func dropWhere(filter DropFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.AuthorEmail != "" {
		clauses = append(clauses, "author_email = ?")
		args = append(args, filter.AuthorEmail)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// IncrementDropCounter adds one to the views or downloads counter of a drop.
func IncrementDropCounter(ctx context.Context, q Querier, id int64, counter DropCounter) error {
	var query string
	switch counter {
	case CounterViews:
		query = `UPDATE wisdom_drops SET views = views + 1 WHERE id = ?`
	case CounterDownloads:
		query = `UPDATE wisdom_drops SET downloads = downloads + 1 WHERE id = ?`
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown drop counter: %q", counter))
	}

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewStorageFailure(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageFailure(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("wisdom drop", strconv.FormatInt(id, 10))
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDrop scans a single row into a WisdomDrop.
func scanDrop(row rowScanner) (*wisdom.WisdomDrop, error) {
	var (
		d          wisdom.WisdomDrop
		tagsJSON   sql.NullString
		layersJSON sql.NullString
	)

	err := row.Scan(
		&d.ID, &d.Title, &d.Content, &d.AuthorEmail, &d.AuthorID, &d.Category,
		&tagsJSON, &layersJSON, &d.Views, &d.Downloads, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &d.Tags); err != nil {
			return nil, err
		}
	}
	if layersJSON.Valid && layersJSON.String != "" {
		var layers wisdom.LayerSet
		if err := json.Unmarshal([]byte(layersJSON.String), &layers); err != nil {
			return nil, err
		}
		d.Layers = &layers
	}

	return &d, nil
}

func marshalTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalLayers(layers *wisdom.LayerSet) (sql.NullString, error) {
	if layers == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(layers)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
