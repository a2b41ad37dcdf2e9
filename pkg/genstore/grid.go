package genstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/dictionary"
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// NoGround is returned by GroundElevation when a cell has no data.
const NoGround int32 = math.MinInt32

// GridStore answers point queries over the memory-mapped terrain columns.
//
// Cells are addressed in block coordinates: (x, z) maps to cell
// (z-minZ)*width + (x-minX). Any of the three columns may be absent; queries
// against an absent column report no data.
//
// Queries are safe for concurrent use. Close releases the mappings and must
// be called before the side-cars are rewritten by a new split. A nil
// *GridStore answers every query with no data.
type GridStore struct {
	meta     layout.GridMeta
	ground   *mmap.ReaderAt
	water    *mmap.ReaderAt
	material *mmap.ReaderAt
	dict     []string

	mu     sync.RWMutex
	closed bool
}

// OpenGrid maps the grid side-cars of a generation directory.
//
// Returns an error wrapping os.ErrNotExist when the directory has no grid
// metadata.
func OpenGrid(genDir string) (*GridStore, error) {
	meta, err := layout.ReadGridMeta(layout.Path(genDir, layout.GridMetaFile))
	if err != nil {
		return nil, fmt.Errorf("read grid meta: %w", err)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("grid meta: invalid dimensions %dx%d", meta.Width, meta.Height)
	}

	g := &GridStore{meta: *meta}
	columns := []struct {
		rel string
		dst **mmap.ReaderAt
	}{
		{meta.GroundY, &g.ground},
		{meta.WaterY, &g.water},
		{meta.TopBlockIndex, &g.material},
	}
	for _, c := range columns {
		if c.rel == "" {
			continue
		}
		r, err := mapColumn(layout.Path(genDir, c.rel))
		if err != nil {
			g.Close()
			return nil, err
		}
		*c.dst = r
	}

	if g.material != nil && meta.TopBlockDict != "" {
		dict, err := dictionary.Load(layout.Path(genDir, meta.TopBlockDict))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			g.Close()
			return nil, fmt.Errorf("load material dictionary: %w", err)
		}
		g.dict = dict
	}
	return g, nil
}

// mapColumn maps a column file, returning nil when it does not exist.
func mapColumn(path string) (*mmap.ReaderAt, error) {
	r, err := mmap.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("map column: %w", err)
	}
	return r, nil
}

// Meta returns the grid metadata.
func (g *GridStore) Meta() GridMeta {
	if g == nil {
		return GridMeta{}
	}
	return g.meta
}

// InBounds reports whether (x, z) lies inside [minX, minX+width) x [minZ, minZ+height).
func (g *GridStore) InBounds(x, z int) bool {
	_, ok := g.cell(x, z)
	return ok
}

// HasWater reports whether a water column is mapped.
func (g *GridStore) HasWater() bool { return g != nil && g.water != nil }

// HasMaterial reports whether a surface material column is mapped.
func (g *GridStore) HasMaterial() bool { return g != nil && g.material != nil }

// Materials returns a copy of the material dictionary, code order.
func (g *GridStore) Materials() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.dict...)
}

func (g *GridStore) cell(x, z int) (int64, bool) {
	if g == nil {
		return 0, false
	}
	dx := int64(x) - int64(g.meta.MinX)
	dz := int64(z) - int64(g.meta.MinZ)
	if dx < 0 || dz < 0 || dx >= int64(g.meta.Width) || dz >= int64(g.meta.Height) {
		return 0, false
	}
	return dz*int64(g.meta.Width) + dx, true
}

// read copies the value of cell i from r into buf. Cells past the end of a
// short file report false.
func (g *GridStore) read(r *mmap.ReaderAt, i int64, buf []byte) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed || r == nil {
		return false
	}
	off := i * int64(len(buf))
	if off+int64(len(buf)) > int64(r.Len()) {
		return false
	}
	n, err := r.ReadAt(buf, off)
	return err == nil && n == len(buf)
}

// GroundElevation returns the ground height at (x, z), or NoGround when the
// point is out of bounds or no ground column is mapped.
func (g *GridStore) GroundElevation(x, z int) int32 {
	i, ok := g.cell(x, z)
	if !ok {
		return NoGround
	}
	var buf [4]byte
	if !g.read(g.ground, i, buf[:]) {
		return NoGround
	}
	return int32(binary.LittleEndian.Uint32(buf[:]))
}

// WaterElevation returns the water height at (x, z). ok is false when the
// point is out of bounds, no water column is mapped or the cell has no water.
func (g *GridStore) WaterElevation(x, z int) (level int16, ok bool) {
	i, ok := g.cell(x, z)
	if !ok {
		return 0, false
	}
	var buf [2]byte
	if !g.read(g.water, i, buf[:]) {
		return 0, false
	}
	v := int16(binary.LittleEndian.Uint16(buf[:]))
	if v == layout.WaterSentinel {
		return 0, false
	}
	return v, true
}

// SurfaceMaterial returns the material id at (x, z). ok is false when the
// point is out of bounds, no material column is mapped or the stored code is
// outside the dictionary. An empty id with ok true is a valid material code.
func (g *GridStore) SurfaceMaterial(x, z int) (id string, ok bool) {
	i, ok := g.cell(x, z)
	if !ok {
		return "", false
	}
	var buf [4]byte
	if !g.read(g.material, i, buf[:]) {
		return "", false
	}
	code := int32(binary.LittleEndian.Uint32(buf[:]))
	if code < 0 || int(code) >= len(g.dict) {
		return "", false
	}
	return g.dict[code], true
}

// Close releases every mapping. Subsequent queries report no data.
func (g *GridStore) Close() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for _, r := range []*mmap.ReaderAt{g.ground, g.water, g.material} {
		if r != nil {
			errs = append(errs, r.Close())
		}
	}
	return errors.Join(errs...)
}
