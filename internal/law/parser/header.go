package parser

import (
	"gesetzebank/internal/law/model"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ParseHeader reads the first norm of a law file into the law's identity
// and descriptive attributes. Contents and attachments are filled in by
// the caller.
func ParseHeader(n Norm) (model.Law, error) {
	law := model.Law{
		Doknr:           n.Doknr,
		SourceTimestamp: n.Builddate,
	}
	if n.Doknr == "" {
		return law, errors.Wrap(ErrMalformedField, "header norm has no doknr attribute")
	}
	if n.Builddate == "" {
		return law, errors.Wrapf(ErrMalformedField, "norm %s: missing builddate attribute", n.Doknr)
	}

	md := n.Metadaten

	// Official abbreviations take precedence over juridical ones; the
	// first unique entry becomes the primary abbreviation.
	abbrs := lo.Uniq(append(append([]string{}, md.Amtabk...), md.Jurabk...))
	if len(abbrs) == 0 {
		return law, errors.Wrapf(ErrMalformedField, "norm %s: no abbreviations", n.Doknr)
	}
	law.Abbreviation = abbrs[0]
	law.ExtraAbbreviations = abbrs[1:]
	law.Slug = model.Slugify(abbrs[0])

	if md.AusfertigungDatum == "" {
		return law, errors.Wrapf(ErrMalformedField, "norm %s: missing ausfertigung-datum", n.Doknr)
	}
	law.FirstPublished = md.AusfertigungDatum

	titleLong := text(md.Langue)
	if titleLong == nil {
		return law, errors.Wrapf(ErrMalformedField, "norm %s: missing langue", n.Doknr)
	}
	law.TitleLong = *titleLong
	law.TitleShort = text(md.Kurzue)

	law.PublicationInfo = make([]model.PublicationRef, 0, len(md.Fundstellen))
	for _, f := range md.Fundstellen {
		law.PublicationInfo = append(law.PublicationInfo, model.PublicationRef{
			Periodical: f.Periodikum,
			Reference:  f.Zitstelle,
		})
	}

	law.StatusInfo = make([]model.StatusNote, 0, len(md.Standangaben))
	for _, s := range md.Standangaben {
		comment := text(s.Standkommentar)
		note := model.StatusNote{Category: s.Standtyp}
		if comment != nil {
			note.Comment = *comment
		}
		law.StatusInfo = append(law.StatusInfo, note)
	}

	if n.Textdaten != nil {
		if t := n.Textdaten.Text; t != nil {
			body := contentText(t.Content)
			if body == nil {
				body = text(t.TOC)
			}
			law.NotesBody = body
			law.NotesFootnotes = text(t.Footnotes)
		}
		if fn := n.Textdaten.Fussnoten; fn != nil {
			law.NotesDocFootnotes = contentText(fn.Content)
		}
	}

	return law, nil
}
