package parser

import "strings"

// Placeholder bodies the source writes for norms without machine-readable
// text. They count as absent content.
var emptyContentPatterns = []string{"<P/>", "<P />", "<P>-</P>"}

// text returns el's trimmed markup-preserving content, or nil when the
// element is absent or effectively empty.
func text(el *inlineText) *string {
	if el == nil {
		return nil
	}
	s := strings.TrimSpace(el.Raw)
	if s == "" {
		return nil
	}
	return &s
}

// contentText is text with the empty-placeholder normalization applied.
func contentText(el *inlineText) *string {
	s := text(el)
	if s == nil {
		return nil
	}
	for _, pat := range emptyContentPatterns {
		if *s == pat {
			return nil
		}
	}
	return s
}
