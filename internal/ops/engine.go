package ops

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/layers"
	"github.com/hpungsan/wisdom/internal/metrics"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// AttributeStatus is the outcome of a Generate call.
type AttributeStatus string

const (
	StatusCreated       AttributeStatus = "created"
	StatusAlreadyExists AttributeStatus = "already_exists"
)

// AttributeOutput contains the result of Generate.
type AttributeOutput struct {
	Status       AttributeStatus `json:"status"`
	DocumentHash string          `json:"document_hash"`

	// Document is set when Status is created
	Document *wisdom.AttributionDocument `json:"document,omitempty"`

	// ExistingID names the document already holding the hash when Status is already_exists
	ExistingID string `json:"existing_id,omitempty"`
}

// ClassifyOutput contains the result of Classify.
type ClassifyOutput struct {
	Layers  wisdom.LayerSet `json:"layers"`
	Explain []layers.Match  `json:"explain,omitempty"`
}

// Engine composes attribution documents for stored drops.
type Engine struct {
	db      *sql.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source used for document timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine backed by database.
func NewEngine(database *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     database,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify decomposes text into layers, optionally with per-layer provenance.
func (e *Engine) Classify(text string, explain bool) *ClassifyOutput {
	e.metrics.IncrementClassifications()

	if !explain {
		return &ClassifyOutput{Layers: layers.Classify(text)}
	}

	matches := layers.Explain(text)
	out := &ClassifyOutput{Explain: matches}
	for _, m := range matches {
		out.Layers.Set(m.Layer, m.Value)
	}
	return out
}

// Generate produces the attribution document for a drop's current state.
//
// The drop is read on a connection held for the whole call; the insert runs in
// its own transaction on that connection. When another document already holds
// the same content hash, nothing is written and the status is already_exists.
func (e *Engine) Generate(ctx context.Context, dropID int64) (*AttributeOutput, error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveAttributionLatency(time.Since(start))
	}()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, e.storageFailure(dropID, "acquire connection", err)
	}
	defer conn.Close()

	drop, err := db.GetDrop(ctx, conn, dropID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			e.metrics.IncrementOutcome(metrics.OutcomeNotFound)
			return nil, err
		}
		return nil, e.storageFailure(dropID, "load drop", err)
	}

	content := wisdom.Compose(drop, e.layersFor(drop))
	hash := wisdom.HashContent(content)

	now := e.now()
	id, err := generateULID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	doc := &wisdom.AttributionDocument{
		ID:           id,
		WisdomID:     drop.ID,
		DocumentHash: hash,
		Content:      content,
		CreatedAt:    now.Unix(),
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, e.storageFailure(dropID, "begin transaction", err)
	}

	if err := db.InsertDocument(ctx, tx, doc); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, errors.ErrDuplicateContent) {
			return e.alreadyExists(ctx, conn, dropID, hash)
		}
		return nil, e.storageFailure(dropID, "insert document", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.storageFailure(dropID, "commit", err)
	}

	e.metrics.IncrementOutcome(metrics.OutcomeCreated)
	e.logger.Debug("attribution document created",
		zap.Int64("wisdom_id", dropID),
		zap.String("document_id", doc.ID),
		zap.String("document_hash", hash))

	return &AttributeOutput{
		Status:       StatusCreated,
		DocumentHash: hash,
		Document:     doc,
	}, nil
}

func (e *Engine) alreadyExists(ctx context.Context, conn *sql.Conn, dropID int64, hash string) (*AttributeOutput, error) {
	existing, err := db.GetDocumentByHash(ctx, conn, hash)
	if err != nil {
		return nil, e.storageFailure(dropID, "look up existing document", err)
	}

	e.metrics.IncrementOutcome(metrics.OutcomeAlreadyExists)
	e.logger.Debug("attribution document already exists",
		zap.Int64("wisdom_id", dropID),
		zap.String("document_id", existing.ID),
		zap.String("document_hash", hash))

	return &AttributeOutput{
		Status:       StatusAlreadyExists,
		DocumentHash: hash,
		ExistingID:   existing.ID,
	}, nil
}

// layersFor returns the drop's precomputed layers, classifying content for
// any layer the drop does not carry.
func (e *Engine) layersFor(drop *wisdom.WisdomDrop) wisdom.LayerSet {
	if drop.Layers != nil && drop.Layers.Complete() {
		return *drop.Layers
	}

	e.metrics.IncrementClassifications()
	set := layers.Classify(drop.Content)
	if drop.Layers != nil {
		for _, name := range wisdom.LayerOrder {
			if v := drop.Layers.Get(name); v != "" {
				set.Set(name, v)
			}
		}
	}
	return set
}

// storageFailure logs err with its underlying cause and returns an opaque STORAGE_FAILURE.
func (e *Engine) storageFailure(dropID int64, stage string, err error) error {
	cause := err
	if wErr, ok := errors.As(err); ok && wErr.Unwrap() != nil {
		cause = wErr.Unwrap()
	}

	e.metrics.IncrementOutcome(metrics.OutcomeStorageFailure)
	e.logger.Error("attribution storage failure",
		zap.Int64("wisdom_id", dropID),
		zap.String("stage", stage),
		zap.Error(cause))

	if errors.Is(err, errors.ErrStorageFailure) {
		return err
	}
	return errors.NewStorageFailure(err)
}
