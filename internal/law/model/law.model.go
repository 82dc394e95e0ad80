package model

import (
	"regexp"
	"strings"
)

// ItemType distinguishes the three structural kinds of a law's contents.
type ItemType string

const (
	TypeArticle        ItemType = "article"
	TypeHeadingArticle ItemType = "heading_article"
	TypeHeading        ItemType = "heading"
)

// Law is one fully parsed statute, independent of storage.
type Law struct {
	Doknr              string           `json:"doknr"`
	Slug               string           `json:"slug"`
	GiiSlug            string           `json:"gii_slug"`
	Abbreviation       string           `json:"abbreviation"`
	ExtraAbbreviations []string         `json:"extra_abbreviations"`
	FirstPublished     string           `json:"first_published"`
	SourceTimestamp    string           `json:"source_timestamp"`
	TitleLong          string           `json:"title_long"`
	TitleShort         *string          `json:"title_short"`
	PublicationInfo    []PublicationRef `json:"publication_info"`
	StatusInfo         []StatusNote     `json:"status_info"`
	NotesBody          *string          `json:"notes_body"`
	NotesFootnotes     *string          `json:"notes_footnotes"`
	NotesDocFootnotes  *string          `json:"notes_documentary_footnotes"`
	Contents           []ContentItem    `json:"contents"`
	Attachments        []Attachment     `json:"attachments"`
}

// PublicationRef is one entry of a law's official publication trail.
type PublicationRef struct {
	Periodical string `json:"periodical"`
	Reference  string `json:"reference"`
}

// StatusNote is one standangabe entry (e.g. repeal or amendment status).
type StatusNote struct {
	Category string `json:"category"`
	Comment  string `json:"comment"`
}

// ContentItem is one structural unit of a law's body. Parent is an index
// into the owning Law's Contents slice (-1 for a root item); it is only
// resolved to a database reference when the law is persisted, so a parsed
// Law carries no aliasing between items.
type ContentItem struct {
	Doknr             string   `json:"doknr"`
	ItemType          ItemType `json:"item_type"`
	Name              string   `json:"name"`
	Title             *string  `json:"title"`
	Body              *string  `json:"body"`
	Footnotes         *string  `json:"footnotes"`
	DocumentaryFootns *string  `json:"documentary_footnotes"`
	Parent            int      `json:"-"`
	ParentDoknr       *string  `json:"parent"`
	Order             int      `json:"order"`
}

// Attachment is a file shipped alongside a law's XML, stored as a data URI.
type Attachment struct {
	Name    string `json:"name"`
	DataURI string `json:"data_uri"`
}

var (
	nonSlugChars = regexp.MustCompile("[^a-z0-9]")
	multiScore   = regexp.MustCompile("_+")
)

// Slugify derives a URL-safe slug from an abbreviation. German umlauts are
// transcribed rather than dropped so e.g. "BGroßGrdstG" stays readable.
func Slugify(s string) string {
	s = strings.ToLower(s)
	for orig, repl := range map[string]string{"ß": "ss", "ä": "ae", "ö": "oe", "ü": "ue"} {
		s = strings.ReplaceAll(s, orig, repl)
	}
	s = nonSlugChars.ReplaceAllString(s, "_")
	return multiScore.ReplaceAllString(s, "_")
}
