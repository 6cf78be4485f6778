package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// DownloadOutput contains the result of the DownloadDocument operation.
type DownloadOutput struct {
	Document *wisdom.AttributionDocument `json:"document"`
	Filename string                      `json:"filename"`
}

// DownloadDocument serves a document and records the download.
// The document's download_count and the drop's downloads counter both grow by
// one in a single transaction; content and hash are never touched.
func DownloadDocument(ctx context.Context, database *sql.DB, id string) (*DownloadOutput, error) {
	return recordDownload(ctx, database, id, nil)
}

// recordDownload increments both download counters. deliver, when set, runs
// inside the transaction after the counters move and before commit; an error
// from it rolls the counters back.
func recordDownload(ctx context.Context, database *sql.DB, id string, deliver func(*wisdom.AttributionDocument) error) (*DownloadOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageFailure(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := db.IncrementDownloadCount(ctx, tx, id); err != nil {
		return nil, err
	}

	doc, err := db.GetDocument(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := db.IncrementDropCounter(ctx, tx, doc.WisdomID, db.CounterDownloads); err != nil {
		return nil, err
	}

	if deliver != nil {
		if err := deliver(doc); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageFailure(err)
	}

	return &DownloadOutput{
		Document: doc,
		Filename: DocumentFilename(doc),
	}, nil
}

// DocumentFilename returns the suggested file name for a document:
// wisdom-<wisdom_id>-<first 12 hex chars of the hash>.md
func DocumentFilename(doc *wisdom.AttributionDocument) string {
	hash := doc.DocumentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return fmt.Sprintf("wisdom-%d-%s.md", doc.WisdomID, hash)
}

// ExportDocumentInput contains parameters for the ExportDocument operation.
type ExportDocumentInput struct {
	ID   string // required
	Path string // optional, default: ~/.wisdom/exports/<DocumentFilename>
}

// ExportDocumentOutput contains the result of the ExportDocument operation.
type ExportDocumentOutput struct {
	Path       string `json:"path"`
	DocumentID string `json:"document_id"`
	Bytes      int    `json:"bytes"`
}

// ExportDocument downloads a document and writes its canonical content to a file.
// The path is validated before the download is recorded.
func ExportDocument(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportDocumentInput) (*ExportDocumentOutput, error) {
	exportPath := input.Path
	if exportPath != "" {
		if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
			return nil, err
		}
	}

	// Peek first so the default path can be derived and validated before counting
	doc, err := FetchDocument(ctx, database, FetchDocumentInput{ID: input.ID})
	if err != nil {
		return nil, err
	}
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, DocumentFilename(doc))
		if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
			return nil, err
		}
	}

	// The file is staged before the download is recorded and only moved into
	// place inside the counting transaction, so a failed write never counts.
	tempPath, err := writeTempFile(exportPath, []byte(doc.Content))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempPath) //nolint:errcheck

	out, err := recordDownload(ctx, database, doc.ID, func(*wisdom.AttributionDocument) error {
		return replaceFile(tempPath, exportPath)
	})
	if err != nil {
		return nil, err
	}

	return &ExportDocumentOutput{
		Path:       exportPath,
		DocumentID: out.Document.ID,
		Bytes:      len(out.Document.Content),
	}, nil
}

// writeTempFile writes data to a fresh temp file beside path and returns its name.
func writeTempFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return "", errors.NewInternal(fmt.Errorf("failed to write export file: %w", err))
	}
	return tempPath, nil
}

// replaceFile renames tempPath over path, refusing a symlinked destination.
func replaceFile(tempPath, path string) error {
	if isSymlink(path) {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}
