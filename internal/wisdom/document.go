package wisdom

// AttributionDocument is the immutable, content-addressed record of a drop.
// Content and DocumentHash never change after insert.
type AttributionDocument struct {
	// ID is a ULID assigned at creation
	ID string `json:"id"`

	// WisdomID references the originating drop
	WisdomID int64 `json:"wisdom_id"`

	// DocumentHash is the lowercase hex SHA-256 of Content
	DocumentHash string `json:"document_hash"`

	// Content is the canonical composition, retained verbatim
	Content string `json:"content"`

	// CreatedAt is the Unix timestamp when the document was created
	CreatedAt int64 `json:"created_at"`

	// DownloadCount only ever grows, and only through the download path
	DownloadCount int64 `json:"download_count"`
}

// DocumentSummary is a document without its content.
type DocumentSummary struct {
	ID            string `json:"id"`
	WisdomID      int64  `json:"wisdom_id"`
	DocumentHash  string `json:"document_hash"`
	ContentChars  int    `json:"content_chars"`
	CreatedAt     int64  `json:"created_at"`
	DownloadCount int64  `json:"download_count"`
}

// ToSummary strips the content.
func (d *AttributionDocument) ToSummary() DocumentSummary {
	return DocumentSummary{
		ID:            d.ID,
		WisdomID:      d.WisdomID,
		DocumentHash:  d.DocumentHash,
		ContentChars:  CountChars(d.Content),
		CreatedAt:     d.CreatedAt,
		DownloadCount: d.DownloadCount,
	}
}
