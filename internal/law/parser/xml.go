package parser

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// dokumente is the root element of a gesetze-im-internet law file.
type dokumente struct {
	XMLName xml.Name `xml:"dokumente"`
	Norms   []Norm   `xml:"norm"`
}

// Norm is one structural unit of the source format. The first norm in a
// file carries the law header; every following norm is a body fragment.
type Norm struct {
	Doknr     string     `xml:"doknr,attr"`
	Builddate string     `xml:"builddate,attr"`
	Metadaten metadaten  `xml:"metadaten"`
	Textdaten *textdaten `xml:"textdaten"`
}

type metadaten struct {
	Jurabk            []string      `xml:"jurabk"`
	Amtabk            []string      `xml:"amtabk"`
	AusfertigungDatum string        `xml:"ausfertigung-datum"`
	Langue            *inlineText   `xml:"langue"`
	Kurzue            *inlineText   `xml:"kurzue"`
	Enbez             string        `xml:"enbez"`
	Titel             *inlineText   `xml:"titel"`
	Gliederung        *gliederung   `xml:"gliederungseinheit"`
	Fundstellen       []fundstelle  `xml:"fundstelle"`
	Standangaben      []standangabe `xml:"standangabe"`
}

// gliederung is the structural-grouping block: a fixed-width section code
// plus the section's designator and optional title.
type gliederung struct {
	Kennzahl string      `xml:"gliederungskennzahl"`
	Bez      *inlineText `xml:"gliederungsbez"`
	Titel    *inlineText `xml:"gliederungstitel"`
}

type fundstelle struct {
	Periodikum string `xml:"periodikum"`
	Zitstelle  string `xml:"zitstelle"`
}

type standangabe struct {
	Standtyp       string      `xml:"standtyp"`
	Standkommentar *inlineText `xml:"standkommentar"`
}

type textdaten struct {
	Text      *textBlock `xml:"text"`
	Fussnoten *struct {
		Content *inlineText `xml:"Content"`
	} `xml:"fussnoten"`
}

// textBlock is a textdaten/text element. Raw keeps the full inner XML so a
// "decorated" block can be checked for unexpected content.
type textBlock struct {
	Format    string      `xml:"format,attr"`
	Raw       string      `xml:",innerxml"`
	Content   *inlineText `xml:"Content"`
	TOC       *inlineText `xml:"TOC"`
	Footnotes *inlineText `xml:"Footnotes"`
}

// inlineText captures an element's raw inner XML. Several source fields
// legitimately contain inline formatting tags that must survive verbatim,
// so plain chardata extraction would silently drop markup.
type inlineText struct {
	Raw string `xml:",innerxml"`
}

// LoadNorms decodes a law file into its ordered norm sequence.
func LoadNorms(r io.Reader) ([]Norm, error) {
	dec := xml.NewDecoder(r)
	// Older exports use HTML named entities without declaring them.
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc dokumente
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding law XML")
	}
	if len(doc.Norms) == 0 {
		return nil, errors.Wrap(ErrMalformedField, "law file contains no norm elements")
	}
	return doc.Norms, nil
}
