package parser

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerXML = `<dokumente>
  <norm doknr="BJNR002250951" builddate="20230101120000">
    <metadaten>
      <jurabk>AEG</jurabk>
      <jurabk>AltEisenbahnG</jurabk>
      <amtabk>AEG</amtabk>
      <ausfertigung-datum manuell="ja">1951-08-29</ausfertigung-datum>
      <fundstelle typ="amtlich">
        <periodikum>BGBl I</periodikum>
        <zitstelle>1951, 225</zitstelle>
      </fundstelle>
      <langue>Allgemeines Eisenbahngesetz</langue>
      <kurzue>Eisenbahngesetz</kurzue>
      <standangabe checked="ja">
        <standtyp>Stand</standtyp>
        <standkommentar>Zuletzt geändert durch <B>Art. 2 G v. 9.6.2021</B></standkommentar>
      </standangabe>
    </metadaten>
    <textdaten>
      <text format="XML">
        <TOC>Inhaltsübersicht <B>§§ 1 - 5</B></TOC>
      </text>
      <fussnoten>
        <Content><P>-</P></Content>
      </fussnoten>
    </textdaten>
  </norm>
</dokumente>`

func headerNorm(t *testing.T, doc string) Norm {
	t.Helper()
	norms, err := LoadNorms(strings.NewReader(doc))
	require.NoError(t, err)
	require.NotEmpty(t, norms)
	return norms[0]
}

func TestParseHeader(t *testing.T) {
	law, err := ParseHeader(headerNorm(t, headerXML))
	require.NoError(t, err)

	assert.Equal(t, "BJNR002250951", law.Doknr)
	assert.Equal(t, "20230101120000", law.SourceTimestamp)
	assert.Equal(t, "1951-08-29", law.FirstPublished)
	assert.Equal(t, "Allgemeines Eisenbahngesetz", law.TitleLong)
	require.NotNil(t, law.TitleShort)
	assert.Equal(t, "Eisenbahngesetz", *law.TitleShort)
	assert.Equal(t, "aeg", law.Slug)

	require.Len(t, law.PublicationInfo, 1)
	assert.Equal(t, "BGBl I", law.PublicationInfo[0].Periodical)
	assert.Equal(t, "1951, 225", law.PublicationInfo[0].Reference)

	require.Len(t, law.StatusInfo, 1)
	assert.Equal(t, "Stand", law.StatusInfo[0].Category)
	assert.Equal(t, "Zuletzt geändert durch <B>Art. 2 G v. 9.6.2021</B>", law.StatusInfo[0].Comment)

	// Content is absent, so the TOC text becomes the notes body, markup intact.
	require.NotNil(t, law.NotesBody)
	assert.Equal(t, "Inhaltsübersicht <B>§§ 1 - 5</B>", *law.NotesBody)
	assert.Nil(t, law.NotesFootnotes)

	// The documentary footnotes carry only a placeholder paragraph.
	assert.Nil(t, law.NotesDocFootnotes)
}

func TestParseHeaderAbbreviations(t *testing.T) {
	law, err := ParseHeader(headerNorm(t, headerXML))
	require.NoError(t, err)

	// Official-then-juridical, duplicates removed, first occurrence wins.
	assert.Equal(t, "AEG", law.Abbreviation)
	assert.Equal(t, []string{"AltEisenbahnG"}, law.ExtraAbbreviations)
}

func TestParseHeaderNoAbbreviations(t *testing.T) {
	doc := `<dokumente><norm doknr="BJNR000010000" builddate="20230101120000">
		<metadaten>
			<ausfertigung-datum>2000-01-01</ausfertigung-datum>
			<langue>Testgesetz</langue>
		</metadaten>
	</norm></dokumente>`

	_, err := ParseHeader(headerNorm(t, doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedField))
	assert.Contains(t, err.Error(), "BJNR000010000")
}

func TestParseHeaderMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"no doknr": `<dokumente><norm builddate="20230101120000"><metadaten>
			<jurabk>TG</jurabk><ausfertigung-datum>2000-01-01</ausfertigung-datum><langue>T</langue>
		</metadaten></norm></dokumente>`,
		"no builddate": `<dokumente><norm doknr="BJNR000010000"><metadaten>
			<jurabk>TG</jurabk><ausfertigung-datum>2000-01-01</ausfertigung-datum><langue>T</langue>
		</metadaten></norm></dokumente>`,
		"no ausfertigung-datum": `<dokumente><norm doknr="BJNR000010000" builddate="20230101120000"><metadaten>
			<jurabk>TG</jurabk><langue>T</langue>
		</metadaten></norm></dokumente>`,
		"no langue": `<dokumente><norm doknr="BJNR000010000" builddate="20230101120000"><metadaten>
			<jurabk>TG</jurabk><ausfertigung-datum>2000-01-01</ausfertigung-datum>
		</metadaten></norm></dokumente>`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHeader(headerNorm(t, doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedField))
		})
	}
}

func TestParseHeaderContentWinsOverTOC(t *testing.T) {
	doc := `<dokumente><norm doknr="BJNR000010000" builddate="20230101120000">
		<metadaten>
			<jurabk>TG</jurabk>
			<ausfertigung-datum>2000-01-01</ausfertigung-datum>
			<langue>Testgesetz</langue>
		</metadaten>
		<textdaten>
			<text format="XML">
				<Content><P>Haupttext</P></Content>
				<Footnotes><P>Fußnote</P></Footnotes>
			</text>
		</textdaten>
	</norm></dokumente>`

	law, err := ParseHeader(headerNorm(t, doc))
	require.NoError(t, err)
	require.NotNil(t, law.NotesBody)
	assert.Equal(t, "<P>Haupttext</P>", *law.NotesBody)
	require.NotNil(t, law.NotesFootnotes)
	assert.Equal(t, "<P>Fußnote</P>", *law.NotesFootnotes)
}
