package parser

import (
	"strings"

	"gesetzebank/internal/law/model"

	"github.com/pkg/errors"
)

const (
	entryMarker = "NE" // a single article / provision
	groupMarker = "NG" // a structural grouping (book, chapter, section)
)

// sectionInfo is the parsed gliederungseinheit of a body norm, nil when
// the norm is not itself a grouping node.
type sectionInfo struct {
	code  string
	name  *string
	title *string
}

func parseSectionInfo(n Norm) *sectionInfo {
	g := n.Metadaten.Gliederung
	if g == nil {
		return nil
	}
	return &sectionInfo{
		code:  strings.TrimSpace(g.Kennzahl),
		name:  text(g.Bez),
		title: text(g.Titel),
	}
}

// assemblyState carries the hierarchy bookkeeping across one law's body
// fragments. One instance is scoped to a single ParseLaw call, so
// concurrent assemblies never interfere.
type assemblyState struct {
	currentParent  int
	sectionsByCode map[string]int
	withChildren   map[string]bool
}

func newAssemblyState() *assemblyState {
	return &assemblyState{
		currentParent:  -1,
		sectionsByCode: map[string]int{"": -1},
		withChildren:   map[string]bool{},
	}
}

// findParent walks the section code back one 3-character segment at a time
// until a registered section matches. Intermediate hierarchy levels may be
// skipped entirely by the source, so the nearest registered prefix is the
// item's real enclosing section. The empty code always matches, yielding
// no parent.
func (st *assemblyState) findParent(code string) int {
	i := len(code)
	for {
		if idx, ok := st.sectionsByCode[code[:i]]; ok {
			return idx
		}
		if i == 0 {
			return -1
		}
		if rem := i % 3; rem != 0 {
			i -= rem
		} else {
			i -= 3
		}
	}
}

// parseTextBlock reads a body norm's textdaten/text into body and
// footnotes. A "decorated" block carries no machine-readable text; "XML"
// is the only other recognized format.
func parseTextBlock(n Norm) (body, footnotes *string, err error) {
	if n.Textdaten == nil || n.Textdaten.Text == nil {
		return nil, nil, nil
	}
	t := n.Textdaten.Text

	switch t.Format {
	case "decorated":
		if strings.TrimSpace(t.Raw) != "" {
			return nil, nil, errors.Wrapf(ErrMalformedField,
				"norm %s: text[@format=decorated] with unexpected content", n.Doknr)
		}
		return nil, nil, nil
	case "XML":
		content := contentText(t.Content)
		toc := text(t.TOC)
		if content != nil && toc != nil {
			return nil, nil, errors.Wrapf(ErrMalformedField,
				"norm %s: text block with both Content and TOC", n.Doknr)
		}
		body = content
		if body == nil {
			body = toc
		}
		return body, text(t.Footnotes), nil
	default:
		return nil, nil, errors.Wrapf(ErrMalformedField,
			"norm %s: unknown text format %q", n.Doknr, t.Format)
	}
}

func parseDocumentaryFootnotes(n Norm) *string {
	if n.Textdaten == nil || n.Textdaten.Fussnoten == nil {
		return nil
	}
	return contentText(n.Textdaten.Fussnoten.Content)
}

// parseFragment builds one ContentItem from a body norm: text fields,
// structural kind, and name/title. Parent and order are assigned by
// ParseContents.
func parseFragment(n Norm) (model.ContentItem, error) {
	item := model.ContentItem{Doknr: n.Doknr, Parent: -1}

	body, footnotes, err := parseTextBlock(n)
	if err != nil {
		return item, err
	}
	item.Body = body
	item.Footnotes = footnotes
	item.DocumentaryFootns = parseDocumentaryFootnotes(n)

	switch {
	case strings.Contains(n.Doknr, entryMarker):
		item.ItemType = model.TypeArticle
		name := strings.TrimSpace(n.Metadaten.Enbez)
		if name == "" {
			return item, errors.Wrapf(ErrMalformedField, "norm %s: entry unit without enbez", n.Doknr)
		}
		item.Name = name
		item.Title = text(n.Metadaten.Titel)
	case strings.Contains(n.Doknr, groupMarker):
		si := parseSectionInfo(n)
		if si == nil {
			return item, errors.Wrapf(ErrMalformedField, "norm %s: group unit without gliederungseinheit", n.Doknr)
		}
		if si.name == nil {
			return item, errors.Wrapf(ErrMalformedField, "norm %s: group unit without gliederungsbez", n.Doknr)
		}
		if item.Body != nil {
			item.ItemType = model.TypeHeadingArticle
		} else {
			item.ItemType = model.TypeHeading
		}
		item.Name = *si.name
		item.Title = si.title
	default:
		return item, errors.Wrapf(ErrUnknownStructure, "norm %s", n.Doknr)
	}

	return item, nil
}

// ParseContents turns a law's body norms into its ordered ContentItem
// list with parents resolved. Grouping norms register their section code
// and become the current parent for code-less entries that follow; coded
// entries attach to the nearest registered code prefix. A heading_article
// that never gained a child is demoted to a plain article afterwards.
func ParseContents(body []Norm) ([]model.ContentItem, error) {
	items := make([]model.ContentItem, 0, len(body))
	st := newAssemblyState()

	for i, n := range body {
		item, err := parseFragment(n)
		if err != nil {
			return nil, err
		}
		item.Order = i

		si := parseSectionInfo(n)
		switch {
		case strings.Contains(n.Doknr, entryMarker):
			if si != nil && si.code != "" {
				item.Parent = st.findParent(si.code)
			} else {
				item.Parent = st.currentParent
			}
		case strings.Contains(n.Doknr, groupMarker):
			if si.code == "" {
				return nil, errors.Wrapf(ErrMalformedField, "norm %s: group unit without gliederungskennzahl", n.Doknr)
			}
			item.Parent = st.findParent(si.code)
			st.sectionsByCode[si.code] = i
			st.currentParent = i
		}

		if item.Parent >= 0 {
			st.withChildren[items[item.Parent].Doknr] = true
		}
		items = append(items, item)
	}

	// A grouping node with text but no descendants is just an article.
	// Running this again is a no-op: demoted items stay articles and the
	// children set is fixed by then.
	for i := range items {
		if items[i].ItemType == model.TypeHeadingArticle && !st.withChildren[items[i].Doknr] {
			items[i].ItemType = model.TypeArticle
		}
		if p := items[i].Parent; p >= 0 {
			items[i].ParentDoknr = &items[p].Doknr
		}
	}

	return items, nil
}
