package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/ops"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	engine *ops.Engine
}

// NewHandlers creates a new Handlers instance.
// A nil engine is replaced by one with default options.
func NewHandlers(db *sql.DB, cfg *config.Config, engine *ops.Engine) *Handlers {
	if engine == nil {
		engine = ops.NewEngine(db)
	}
	return &Handlers{db: db, cfg: cfg, engine: engine}
}

// Request types for each tool

// ClassifyRequest represents the arguments for layers_classify.
type ClassifyRequest struct {
	Text    string `json:"text"`
	Explain bool   `json:"explain,omitempty"`
}

// DropStoreRequest represents the arguments for drop_store.
type DropStoreRequest struct {
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	AuthorEmail string           `json:"author_email"`
	AuthorID    string           `json:"author_id,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Layers      *wisdom.LayerSet `json:"layers,omitempty"`
	CreatedAt   *int64           `json:"created_at,omitempty"`
}

// DropFetchRequest represents the arguments for drop_fetch.
type DropFetchRequest struct {
	ID             int64 `json:"id"`
	IncludeContent *bool `json:"include_content,omitempty"`
}

// DropListRequest represents the arguments for drop_list.
type DropListRequest struct {
	Category    string `json:"category,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// GenerateRequest represents the arguments for attribution_generate.
type GenerateRequest struct {
	WisdomID int64 `json:"wisdom_id"`
}

// DocumentFetchRequest represents the arguments for attribution_fetch.
type DocumentFetchRequest struct {
	ID             string `json:"id"`
	IncludeContent *bool  `json:"include_content,omitempty"`
}

// DocumentListRequest represents the arguments for attribution_list.
type DocumentListRequest struct {
	WisdomID int64 `json:"wisdom_id"`
	Limit    int   `json:"limit,omitempty"`
	Offset   int   `json:"offset,omitempty"`
}

// VerifyRequest represents the arguments for attribution_verify.
type VerifyRequest struct {
	ID string `json:"id"`
}

// HandleClassify handles the layers_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	return successResult(h.engine.Classify(input.Text, input.Explain))
}

// HandleDropStore handles the drop_store tool call.
func (h *Handlers) HandleDropStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropStoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.StoreDrop(ctx, h.db, h.cfg, ops.StoreDropInput{
		Title:       input.Title,
		Content:     input.Content,
		AuthorEmail: input.AuthorEmail,
		AuthorID:    input.AuthorID,
		Category:    input.Category,
		Tags:        input.Tags,
		Layers:      input.Layers,
		CreatedAt:   input.CreatedAt,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDropFetch handles the drop_fetch tool call.
func (h *Handlers) HandleDropFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchDrop(ctx, h.db, ops.FetchDropInput{
		ID:             input.ID,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDropList handles the drop_list tool call.
func (h *Handlers) HandleDropList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DropListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDrops(ctx, h.db, ops.ListDropsInput{
		Category:    input.Category,
		AuthorEmail: input.AuthorEmail,
		Limit:       input.Limit,
		Offset:      input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGenerate handles the attribution_generate tool call.
// already_exists is a success result, not an error.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.WisdomID <= 0 {
		return errorResult(errors.NewInvalidRequest("wisdom_id must be a positive integer")), nil
	}

	result, err := h.engine.Generate(ctx, input.WisdomID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDocumentFetch handles the attribution_fetch tool call.
func (h *Handlers) HandleDocumentFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchDocument(ctx, h.db, ops.FetchDocumentInput{
		ID:             input.ID,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDocumentList handles the attribution_list tool call.
func (h *Handlers) HandleDocumentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDocuments(ctx, h.db, ops.ListDocumentsInput{
		WisdomID: input.WisdomID,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleVerify handles the attribution_verify tool call.
func (h *Handlers) HandleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VerifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.VerifyDocument(ctx, h.db, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Details of INTERNAL and STORAGE_FAILURE errors are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if wErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    wErr.Code,
			"message": wErr.Message,
			"status":  wErr.Status,
		}
		if wErr.Code != errors.ErrInternal && wErr.Code != errors.ErrStorageFailure && wErr.Details != nil {
			errorObj["details"] = wErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
