// Package layout describes the on-disk side-car layout produced by a split and
// the small JSON descriptors stored alongside the binary columns.
//
// Every path in this package is relative to a generation directory:
//
//	index.json
//	features/elements.ndjson
//	terrain/grid.meta.json
//	terrain/groundY.i32
//	terrain/waterY.i16
//	terrain/topBlock.dict.txt
//	terrain/topBlock.i32
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
	jsoniter "github.com/json-iterator/go"
)

// Relative side-car paths. Slash separated, as stored in grid.meta.json.
const (
	IndexFile     = "index.json"
	FeaturesFile  = "features/elements.ndjson"
	GridMetaFile  = "terrain/grid.meta.json"
	GroundFile    = "terrain/groundY.i32"
	WaterFile     = "terrain/waterY.i16"
	MaterialDict  = "terrain/topBlock.dict.txt"
	MaterialFile  = "terrain/topBlock.i32"
	IndexVersion  = 1
	LittleEndian  = "LE"
	WaterSentinel = int16(-32768)
)

// SideCars lists every file a split may produce, index last.
// Commit order follows this slice.
var SideCars = []string{
	FeaturesFile,
	GroundFile,
	WaterFile,
	MaterialDict,
	MaterialFile,
	GridMetaFile,
	IndexFile,
}

// GridSchema names the shape the grid section had in the source document.
type GridSchema string

const (
	// SchemaFlat is a single numeric "data" array holding ground elevation only.
	SchemaFlat GridSchema = "flat"
	// SchemaStructured is a "grids" object with groundY, waterY and topBlock arrays.
	SchemaStructured GridSchema = "structured"
)

// LatLng is a geographic point in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CellToken returns the S2 cell token containing the point at the given level.
func (p LatLng) CellToken(level int) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)).Parent(level).ToToken()
}

// Geohash returns the geohash of the point.
func (p LatLng) Geohash() string {
	return geohash.Encode(p.Lat, p.Lng)
}

// BBox is the geographic bounding box of the generated area.
type BBox struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Contains reports whether the point lies inside the box (edges included).
func (b BBox) Contains(lat, lng float64) bool {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(b.South, b.West))
	rect = rect.AddPoint(s2.LatLngFromDegrees(b.North, b.East))
	return rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lng))
}

// Anchor is the player anchor point in block coordinates.
type Anchor struct {
	X float64  `json:"x"`
	Z float64  `json:"z"`
	Y *float64 `json:"y,omitempty"`
}

// Index is the lightweight descriptor written once per split.
type Index struct {
	Version       int     `json:"version"`
	Source        string  `json:"source"`
	SplitID       string  `json:"splitId"`
	Center        *LatLng `json:"center,omitempty"`
	CenterCell    string  `json:"centerCell,omitempty"`
	CenterGeohash string  `json:"centerGeohash,omitempty"`
	BBox          *BBox   `json:"bbox,omitempty"`
	Player        *Anchor `json:"player,omitempty"`
	SizeMeters    *int    `json:"sizeMeters,omitempty"`
	FeaturesCount int64   `json:"featuresCount"`
}

// GridMeta describes the grid columns. Paths are relative to the generation directory.
type GridMeta struct {
	MinX          int        `json:"minX"`
	MinZ          int        `json:"minZ"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Endianness    string     `json:"endianness"`
	Schema        GridSchema `json:"schema"`
	GroundY       string     `json:"groundY"`
	WaterY        string     `json:"waterY"`
	TopBlockDict  string     `json:"topBlockDict"`
	TopBlockIndex string     `json:"topBlockIndex"`
}

// NewGridMeta returns metadata pointing at the standard column paths.
func NewGridMeta(minX, minZ, width, height int, schema GridSchema) GridMeta {
	return GridMeta{
		MinX:          minX,
		MinZ:          minZ,
		Width:         width,
		Height:        height,
		Endianness:    LittleEndian,
		Schema:        schema,
		GroundY:       GroundFile,
		WaterY:        WaterFile,
		TopBlockDict:  MaterialDict,
		TopBlockIndex: MaterialFile,
	}
}

// Cells returns width*height.
func (m GridMeta) Cells() int64 {
	return int64(m.Width) * int64(m.Height)
}

// Path joins a slash separated side-car path onto a generation directory.
func Path(genDir, rel string) string {
	return filepath.Join(genDir, filepath.FromSlash(rel))
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes v as a single JSON document to path.
func WriteJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadIndex loads the index descriptor of a generation directory.
func ReadIndex(genDir string) (*Index, error) {
	var idx Index
	if err := readJSON(Path(genDir, IndexFile), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// ReadGridMeta loads grid metadata from an explicit path.
func ReadGridMeta(path string) (*GridMeta, error) {
	var m GridMeta
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	if m.Endianness != "" && m.Endianness != LittleEndian {
		return nil, fmt.Errorf("grid meta %s: unsupported endianness %q", path, m.Endianness)
	}
	return &m, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
