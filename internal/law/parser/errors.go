package parser

import "github.com/pkg/errors"

var (
	// ErrMalformedField marks a required field that is missing or has an
	// unexpected shape. Fatal for the enclosing law.
	ErrMalformedField = errors.New("malformed field")

	// ErrUnknownStructure marks a norm whose doknr matches neither the
	// entry nor the group marker. Fatal for the enclosing law.
	ErrUnknownStructure = errors.New("unknown norm structure")
)
