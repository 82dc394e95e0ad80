package parser

import (
	"io"

	"gesetzebank/internal/law/model"
)

// ParseLaw reads one law file into its normalized form: header metadata
// from the first norm, classified and parent-resolved content items from
// the rest. Attachments are attached by the caller.
func ParseLaw(r io.Reader) (*model.Law, error) {
	norms, err := LoadNorms(r)
	if err != nil {
		return nil, err
	}

	law, err := ParseHeader(norms[0])
	if err != nil {
		return nil, err
	}

	contents, err := ParseContents(norms[1:])
	if err != nil {
		return nil, err
	}
	law.Contents = contents

	return &law, nil
}
