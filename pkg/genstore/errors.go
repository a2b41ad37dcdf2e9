package genstore

import (
	"errors"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/splitter"
)

var (
	// ErrMalformedInput indicates a source document that cannot be tokenized
	// or whose grid cannot be aligned. Match with errors.Is.
	ErrMalformedInput = splitter.ErrMalformedInput

	// ErrSchemaOrdering indicates a grid array that arrived before the grid
	// dimensions. Match with errors.Is.
	ErrSchemaOrdering = splitter.ErrSchemaOrdering

	// ErrClosed is returned by Store methods after Close.
	ErrClosed = errors.New("genstore: store closed")
)

// Error types returned by a split. Match with errors.As.
type (
	MalformedInputError     = splitter.MalformedInputError
	GridOrderingError       = splitter.GridOrderingError
	GridDimensionError      = splitter.GridDimensionError
	GridSchemaConflictError = splitter.GridSchemaConflictError
)
