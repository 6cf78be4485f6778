package wisdom

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Compose renders the canonical attribution content for a drop.
//
// The template is fixed and order-preserving: title, author email, category,
// tags in submitted order, creation time (RFC3339, UTC), views, downloads, the
// narrative body verbatim, then the five layers in LayerOrder. The drop ID and
// author ID are not part of the composition, so two drops with identical
// field values compose to identical content.
func Compose(d *WisdomDrop, layers LayerSet) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(d.Title)
	b.WriteString("\n\n")

	writeField(&b, "Author", d.AuthorEmail)
	writeField(&b, "Category", d.Category)
	if len(d.Tags) == 0 {
		writeField(&b, "Tags", "(none)")
	} else {
		b.WriteString("- Tags:\n")
		for _, tag := range d.Tags {
			b.WriteString("  - ")
			b.WriteString(tag)
			b.WriteString("\n")
		}
	}
	writeField(&b, "Created", FormatTimestamp(d.CreatedAt))
	writeField(&b, "Views", strconv.FormatInt(d.Views, 10))
	writeField(&b, "Downloads", strconv.FormatInt(d.Downloads, 10))

	b.WriteString("\n## Contribution\n\n")
	b.WriteString(d.Content)
	b.WriteString("\n\n## Layers\n")

	for _, name := range LayerOrder {
		b.WriteString("\n### ")
		b.WriteString(name.Title())
		b.WriteString("\n\n")
		b.WriteString(layers.Get(name))
		b.WriteString("\n")
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString("- ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// FormatTimestamp renders a Unix timestamp as RFC3339 in UTC.
func FormatTimestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// HashContent returns the lowercase hex SHA-256 digest of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
