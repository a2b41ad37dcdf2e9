package genstore

import (
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// Side-car descriptor types.
type (
	// Index is the index descriptor written once per split.
	Index = layout.Index

	// GridMeta describes the terrain grid columns.
	GridMeta = layout.GridMeta

	// GridSchema names the grid layout of the source document.
	GridSchema = layout.GridSchema

	LatLng = layout.LatLng
	BBox   = layout.BBox
	Anchor = layout.Anchor
)

const (
	SchemaFlat       = layout.SchemaFlat
	SchemaStructured = layout.SchemaStructured

	// WaterSentinel is the stored water value of a cell without water.
	WaterSentinel = layout.WaterSentinel
)
