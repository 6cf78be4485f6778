package ops

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// ImportDropsInput contains parameters for the ImportDrops operation.
type ImportDropsInput struct {
	Path string // required, .yaml or .yml
}

// ImportDropsOutput contains the result of the ImportDrops operation.
type ImportDropsOutput struct {
	Imported int           `json:"imported"`
	IDs      []int64       `json:"ids"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents a record that could not be imported.
type ImportError struct {
	Index   int    `json:"index"`
	Title   string `json:"title,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// seedFile is the YAML layout of a drop seed file.
type seedFile struct {
	Drops []seedDrop `yaml:"drops"`
}

type seedDrop struct {
	ID          int64       `yaml:"id"`
	Title       string      `yaml:"title"`
	Content     string      `yaml:"content"`
	AuthorEmail string      `yaml:"author_email"`
	AuthorID    string      `yaml:"author_id"`
	Category    string      `yaml:"category"`
	Tags        []string    `yaml:"tags"`
	CreatedAt   string      `yaml:"created_at"`
	Views       int64       `yaml:"views"`
	Downloads   int64       `yaml:"downloads"`
	Layers      *seedLayers `yaml:"layers"`
}

type seedLayers struct {
	Narrative        string `yaml:"narrative"`
	Somatic          string `yaml:"somatic"`
	Attention        string `yaml:"attention"`
	Synesthetic      string `yaml:"synesthetic"`
	TemporalAuditory string `yaml:"temporal_auditory"`
}

// ImportDrops loads drops from a YAML seed file.
// The import is atomic: if any record is invalid or collides, nothing is stored
// and every problem found is reported in Errors.
func ImportDrops(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportDropsInput) (*ImportDropsOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	drops, importErrors, err := parseSeed(file, cfg, time.Now())
	if err != nil {
		return nil, err
	}
	if len(importErrors) > 0 {
		return &ImportDropsOutput{IDs: []int64{}, Errors: importErrors}, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageFailure(err)
	}
	defer tx.Rollback() //nolint:errcheck

	ids := make([]int64, 0, len(drops))
	for i, d := range drops {
		if err := db.InsertDrop(ctx, tx, d); err != nil {
			if errors.Is(err, errors.ErrInvalidRequest) {
				wErr, _ := errors.As(err)
				return &ImportDropsOutput{
					IDs: []int64{},
					Errors: []ImportError{{
						Index:   i,
						Title:   d.Title,
						Code:    "ID_COLLISION",
						Message: wErr.Message,
					}},
				}, nil
			}
			return nil, err
		}
		ids = append(ids, d.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageFailure(err)
	}

	return &ImportDropsOutput{
		Imported: len(ids),
		IDs:      ids,
		Errors:   []ImportError{},
	}, nil
}

// parseSeed decodes and validates every record in a seed file.
func parseSeed(r io.Reader, cfg *config.Config, now time.Time) ([]*wisdom.WisdomDrop, []ImportError, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if err == io.EOF {
			return nil, nil, errors.NewInvalidRequest("seed file is empty")
		}
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("invalid YAML: %v", err))
	}

	var (
		drops        []*wisdom.WisdomDrop
		importErrors []ImportError
	)
	for i, rec := range seed.Drops {
		createdAt, ok, err := parseSeedTime(rec.CreatedAt)
		if err != nil {
			importErrors = append(importErrors, ImportError{
				Index:   i,
				Title:   rec.Title,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}

		var createdAtPtr *int64
		if ok {
			createdAtPtr = &createdAt
		}

		var layers *wisdom.LayerSet
		if rec.Layers != nil {
			layers = &wisdom.LayerSet{
				Narrative:        rec.Layers.Narrative,
				Somatic:          rec.Layers.Somatic,
				Attention:        rec.Layers.Attention,
				Synesthetic:      rec.Layers.Synesthetic,
				TemporalAuditory: rec.Layers.TemporalAuditory,
			}
		}

		d, err := buildDrop(cfg, StoreDropInput{
			Title:       rec.Title,
			Content:     rec.Content,
			AuthorEmail: rec.AuthorEmail,
			AuthorID:    rec.AuthorID,
			Category:    rec.Category,
			Tags:        rec.Tags,
			Layers:      layers,
			CreatedAt:   createdAtPtr,
		}, now)
		if err != nil {
			code := "INVALID_RECORD"
			msg := err.Error()
			if wErr, ok := errors.As(err); ok {
				code = string(wErr.Code)
				msg = wErr.Message
			}
			importErrors = append(importErrors, ImportError{Index: i, Title: rec.Title, Code: code, Message: msg})
			continue
		}
		if rec.ID < 0 || rec.Views < 0 || rec.Downloads < 0 {
			importErrors = append(importErrors, ImportError{
				Index:   i,
				Title:   rec.Title,
				Code:    "INVALID_RECORD",
				Message: "id, views and downloads must not be negative",
			})
			continue
		}

		d.ID = rec.ID
		d.Views = rec.Views
		d.Downloads = rec.Downloads
		drops = append(drops, d)
	}

	if len(seed.Drops) == 0 {
		return nil, nil, errors.NewInvalidRequest("seed file has no drops")
	}

	return drops, importErrors, nil
}

// parseSeedTime accepts a calendar date (2006-01-02, midnight UTC) or RFC3339.
// ok is false when s is empty, meaning "now".
func parseSeedTime(s string) (unix int64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Unix(), true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), true, nil
	}
	return 0, false, fmt.Errorf("created_at %q: want 2006-01-02 or RFC3339", s)
}
