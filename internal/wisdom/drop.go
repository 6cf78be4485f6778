package wisdom

// WisdomDrop is a narrative contribution supplied by the ingestion side.
// It is read-only input to attribution.
type WisdomDrop struct {
	// ID is assigned by the store on insert and never changes
	ID int64 `json:"id"`

	// Title is the contributor's headline for the drop
	Title string `json:"title"`

	// Content is the free-text narrative body
	Content string `json:"content"`

	// AuthorEmail identifies the contributor and feeds canonical composition
	AuthorEmail string `json:"author_email"`

	// AuthorID is the contributor's account id in the ingestion system
	AuthorID string `json:"author_id"`

	// Category is a free-form grouping label (e.g. "memoir")
	Category string `json:"category"`

	// Tags keep their submitted order; an empty list is allowed
	Tags []string `json:"tags"`

	// Layers holds precomputed layers. Nil means attribution classifies Content.
	Layers *LayerSet `json:"layers,omitempty"`

	// CreatedAt is the Unix timestamp when the drop was created
	CreatedAt int64 `json:"created_at"`

	// Views is maintained by the serving side
	Views int64 `json:"views"`

	// Downloads is maintained by the serving side
	Downloads int64 `json:"downloads"`
}

// DropSummary is a drop without its body, used by list operations.
type DropSummary struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	AuthorEmail  string   `json:"author_email"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags,omitempty"`
	ContentChars int      `json:"content_chars"`
	CreatedAt    int64    `json:"created_at"`
	Views        int64    `json:"views"`
	Downloads    int64    `json:"downloads"`
}

// ToSummary strips the body and precomputed layers.
func (d *WisdomDrop) ToSummary() DropSummary {
	return DropSummary{
		ID:           d.ID,
		Title:        d.Title,
		AuthorEmail:  d.AuthorEmail,
		Category:     d.Category,
		Tags:         d.Tags,
		ContentChars: CountChars(d.Content),
		CreatedAt:    d.CreatedAt,
		Views:        d.Views,
		Downloads:    d.Downloads,
	}
}
