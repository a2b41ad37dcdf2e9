package splitter

import (
	"errors"
	"fmt"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

var (
	// ErrMalformedInput marks a source document that cannot be tokenized or
	// whose shape makes positional alignment impossible.
	ErrMalformedInput = errors.New("malformed source document")

	// ErrSchemaOrdering marks a grid array seen before all grid dimensions.
	ErrSchemaOrdering = errors.New("grid array before grid dimensions")
)

// MalformedInputError wraps a tokenizer or re-serialization failure.
type MalformedInputError struct {
	Where string
	Err   error
}

func (e *MalformedInputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed source document at %s", e.Where)
	}
	return fmt.Sprintf("malformed source document at %s: %v", e.Where, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// GridOrderingError indicates a grid array arrived before minX, minZ, width and height.
type GridOrderingError struct {
	Field   string
	Missing []string
}

func (e *GridOrderingError) Error() string {
	return fmt.Sprintf("terrainGrid.%s arrived before grid dimensions %v", e.Field, e.Missing)
}

func (e *GridOrderingError) Is(target error) bool { return target == ErrSchemaOrdering }

// GridDimensionError indicates non-positive grid dimensions at the first
// array, or a dimension field (Field, Value) redefined after grid data.
type GridDimensionError struct {
	Width, Height int
	Field         string
	Value         int
}

func (e *GridDimensionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("terrainGrid.%s redefined as %d after grid data (grid is %dx%d)", e.Field, e.Value, e.Width, e.Height)
	}
	return fmt.Sprintf("invalid grid dimensions %dx%d (width and height must be positive)", e.Width, e.Height)
}

func (e *GridDimensionError) Is(target error) bool { return target == ErrMalformedInput }

// GridSchemaConflictError indicates both grid variants in one document.
type GridSchemaConflictError struct {
	First, Second layout.GridSchema
}

func (e *GridSchemaConflictError) Error() string {
	return fmt.Sprintf("terrainGrid mixes %s and %s layouts", e.First, e.Second)
}

func (e *GridSchemaConflictError) Is(target error) bool { return target == ErrMalformedInput }
