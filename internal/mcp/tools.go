package mcp

import "github.com/mark3labs/mcp-go/mcp"

var classifyToolDef = mcp.NewTool("layers_classify",
	mcp.WithDescription("Decompose a narrative into the five semantic layers (narrative, somatic, attention, synesthetic, temporal_auditory). Deterministic; every layer is always non-empty."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Narrative text to classify")),
	mcp.WithBoolean("explain", mcp.Description("Include the rule matches behind each layer")),
)

var dropStoreToolDef = mcp.NewTool("drop_store",
	mcp.WithDescription("Store a new wisdom drop. Precomputed layers are optional but must include all five when given."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Headline for the drop")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Narrative body")),
	mcp.WithString("author_email", mcp.Required(), mcp.Description("Contributor email address")),
	mcp.WithString("author_id", mcp.Description("Contributor account id")),
	mcp.WithString("category", mcp.Description("Grouping label, e.g. memoir")),
	mcp.WithArray("tags", mcp.Description("Tags in submitted order"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithObject("layers",
		mcp.Description("Precomputed layers"),
		mcp.Properties(map[string]any{
			"narrative":         map[string]any{"type": "string"},
			"somatic":           map[string]any{"type": "string"},
			"attention":         map[string]any{"type": "string"},
			"synesthetic":       map[string]any{"type": "string"},
			"temporal_auditory": map[string]any{"type": "string"},
		}),
	),
	mcp.WithNumber("created_at", mcp.Description("Unix timestamp (default: now)")),
)

var dropFetchToolDef = mcp.NewTool("drop_fetch",
	mcp.WithDescription("Fetch a wisdom drop by id."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Drop id")),
	mcp.WithBoolean("include_content", mcp.Description("Include the narrative body (default: true)")),
)

var dropListToolDef = mcp.NewTool("drop_list",
	mcp.WithDescription("List wisdom drop summaries, newest first."),
	mcp.WithString("category", mcp.Description("Exact-match category filter")),
	mcp.WithString("author_email", mcp.Description("Exact-match author filter")),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var generateToolDef = mcp.NewTool("attribution_generate",
	mcp.WithDescription("Compose and persist the attribution document for a drop. Returns status created, or already_exists with the id of the document holding the same hash."),
	mcp.WithNumber("wisdom_id", mcp.Required(), mcp.Description("Drop id")),
)

var documentFetchToolDef = mcp.NewTool("attribution_fetch",
	mcp.WithDescription("Fetch an attribution document by id. Does not count as a download."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id (ULID)")),
	mcp.WithBoolean("include_content", mcp.Description("Include the canonical content (default: true)")),
)

var documentListToolDef = mcp.NewTool("attribution_list",
	mcp.WithDescription("List the attribution documents of a drop, newest first."),
	mcp.WithNumber("wisdom_id", mcp.Required(), mcp.Description("Drop id")),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var verifyToolDef = mcp.NewTool("attribution_verify",
	mcp.WithDescription("Recompute the hash of a document's stored content and compare it with the stored hash."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id (ULID)")),
)
