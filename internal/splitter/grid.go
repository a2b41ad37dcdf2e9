package splitter

import (
	"errors"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/column"
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/dictionary"
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// Padding values for columns shorter than width*height.
const (
	groundPad   = int32(math.MinInt32)
	materialPad = int32(-1)
)

// gridSplitter streams the terrainGrid section into the grid columns.
//
// Two layouts are accepted:
//
//	{"minX":..,"minZ":..,"width":..,"height":..,"data":[ground...]}
//	{"minX":..,"minZ":..,"width":..,"height":..,"grids":{"groundY":[..],"waterY":[..],"topBlock":[..]}}
//
// The layout is resolved when "data" or "grids" is first seen.
type gridSplitter struct {
	dir    string // generation (staging) directory
	opts   Options
	logger log.Logger

	minX, minZ, width, height int
	seen                      map[string]bool

	schema   layout.GridSchema
	ground   *column.Writer
	water    *column.Writer
	material *column.Writer
	dict     *dictionary.Encoder
	dropped  map[string]int64
}

func newGridSplitter(dir string, opts Options) *gridSplitter {
	return &gridSplitter{
		dir:     dir,
		opts:    opts,
		logger:  log.With(opts.Logger, "component", "grid"),
		seen:    make(map[string]bool),
		dropped: make(map[string]int64),
	}
}

// split consumes one terrainGrid object.
func (g *gridSplitter) split(it *jsoniter.Iterator) error {
	var err error
	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "minX":
			err = g.dimension(field, &g.minX, int(readIntLoose(it)))
		case "minZ":
			err = g.dimension(field, &g.minZ, int(readIntLoose(it)))
		case "width":
			err = g.dimension(field, &g.width, int(readIntLoose(it)))
		case "height":
			err = g.dimension(field, &g.height, int(readIntLoose(it)))
		case "data":
			if it.WhatIsNext() != jsoniter.ArrayValue {
				it.Skip()
				break
			}
			if err = g.resolve(layout.SchemaFlat); err != nil {
				return false
			}
			err = g.groundArray(it, "data")
		case "grids":
			if it.WhatIsNext() != jsoniter.ObjectValue {
				it.Skip()
				break
			}
			if err = g.resolve(layout.SchemaStructured); err != nil {
				return false
			}
			err = g.structured(it)
		default:
			it.Skip()
		}
		return err == nil && it.Error == nil
	})
	return err
}

func (g *gridSplitter) structured(it *jsoniter.Iterator) error {
	var err error
	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if it.WhatIsNext() != jsoniter.ArrayValue {
			it.Skip()
			return it.Error == nil
		}
		switch field {
		case "groundY":
			err = g.groundArray(it, "grids.groundY")
		case "waterY":
			err = g.waterArray(it)
		case "topBlock":
			err = g.materialArray(it)
		default:
			it.Skip()
		}
		return err == nil && it.Error == nil
	})
	return err
}

// resolve fixes the grid layout on first sight and rejects a second layout.
func (g *gridSplitter) resolve(schema layout.GridSchema) error {
	if g.schema == "" {
		g.schema = schema
		return nil
	}
	if g.schema != schema {
		return &GridSchemaConflictError{First: g.schema, Second: schema}
	}
	return nil
}

// dimension records one of minX, minZ, width or height. Once a column has
// been written the grid shape is fixed; a differing value is rejected.
func (g *gridSplitter) dimension(field string, dst *int, v int) error {
	if g.started() && *dst != v {
		return &GridDimensionError{Width: g.width, Height: g.height, Field: field, Value: v}
	}
	*dst = v
	g.seen[field] = true
	return nil
}

func (g *gridSplitter) started() bool {
	return g.ground != nil || g.water != nil || g.material != nil
}

// ready checks that the dimensions are known and usable before an array.
func (g *gridSplitter) ready(field string) error {
	var missing []string
	for _, name := range []string{"minX", "minZ", "width", "height"} {
		if !g.seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &GridOrderingError{Field: field, Missing: missing}
	}
	if g.width <= 0 || g.height <= 0 {
		return &GridDimensionError{Width: g.width, Height: g.height}
	}
	return nil
}

func (g *gridSplitter) cells() int64 {
	return int64(g.width) * int64(g.height)
}

func (g *gridSplitter) open(w **column.Writer, rel string, width column.Width) error {
	if *w != nil {
		return nil
	}
	cw, err := column.Create(layout.Path(g.dir, rel), width, g.opts.ColumnBufferCells)
	if err != nil {
		return err
	}
	*w = cw
	return nil
}

func (g *gridSplitter) groundArray(it *jsoniter.Iterator, field string) error {
	if err := g.ready(field); err != nil {
		return err
	}
	if err := g.open(&g.ground, layout.GroundFile, column.Int32); err != nil {
		return err
	}
	cells := g.cells()
	var err error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v := int32(readIntLoose(it))
		if g.ground.Count() >= cells {
			g.dropped["groundY"]++
			return it.Error == nil
		}
		err = g.ground.PutInt32(v)
		return err == nil && it.Error == nil
	})
	return err
}

func (g *gridSplitter) waterArray(it *jsoniter.Iterator) error {
	if err := g.ready("grids.waterY"); err != nil {
		return err
	}
	if err := g.open(&g.water, layout.WaterFile, column.Int16); err != nil {
		return err
	}
	cells := g.cells()
	var err error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v := layout.WaterSentinel
		if it.WhatIsNext() == jsoniter.NilValue {
			it.ReadNil()
		} else {
			v = int16(readIntLoose(it))
		}
		if g.water.Count() >= cells {
			g.dropped["waterY"]++
			return it.Error == nil
		}
		err = g.water.PutInt16(v)
		return err == nil && it.Error == nil
	})
	return err
}

func (g *gridSplitter) materialArray(it *jsoniter.Iterator) error {
	if err := g.ready("grids.topBlock"); err != nil {
		return err
	}
	if err := g.open(&g.material, layout.MaterialFile, column.Int32); err != nil {
		return err
	}
	if g.dict == nil {
		dict, err := dictionary.Create(layout.Path(g.dir, layout.MaterialDict))
		if err != nil {
			return err
		}
		g.dict = dict
	}
	cells := g.cells()
	var err error
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		id := readMaterial(it)
		if g.material.Count() >= cells {
			g.dropped["topBlock"]++
			return it.Error == nil
		}
		var code int32
		if code, err = g.dict.CodeFor(id); err != nil {
			return false
		}
		err = g.material.PutInt32(code)
		return err == nil && it.Error == nil
	})
	return err
}

// finish pads short columns, closes every writer and reports the metadata
// when at least one column was written.
func (g *gridSplitter) finish() (*layout.GridMeta, int64, error) {
	var written int64
	pad := func(w *column.Writer, name string, put func() error) error {
		if w == nil {
			return nil
		}
		short := g.cells() - w.Count()
		if short > 0 {
			level.Warn(g.logger).Log("msg", "grid column shorter than width*height, padding", "column", name, "have", w.Count(), "want", g.cells())
		}
		for ; short > 0; short-- {
			if err := put(); err != nil {
				return err
			}
		}
		written += w.Count()
		return nil
	}

	errs := []error{
		pad(g.ground, "groundY", func() error { return g.ground.PutInt32(groundPad) }),
		pad(g.water, "waterY", func() error { return g.water.PutInt16(layout.WaterSentinel) }),
		pad(g.material, "topBlock", func() error { return g.material.PutInt32(materialPad) }),
	}
	for name, n := range g.dropped {
		level.Warn(g.logger).Log("msg", "grid column longer than width*height, extra cells dropped", "column", name, "dropped", n)
	}
	errs = append(errs, g.close())
	if err := errors.Join(errs...); err != nil {
		return nil, 0, err
	}

	if !g.started() {
		return nil, 0, nil
	}
	meta := layout.NewGridMeta(g.minX, g.minZ, g.width, g.height, g.schema)
	return &meta, written, nil
}

// close releases every open writer; safe to call on error paths.
func (g *gridSplitter) close() error {
	var errs []error
	for _, w := range []*column.Writer{g.ground, g.water, g.material} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	if g.dict != nil {
		errs = append(errs, g.dict.Close())
	}
	return errors.Join(errs...)
}
