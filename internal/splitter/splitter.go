// Package splitter converts one large generation document into side-car files
// in a single streaming pass.
//
// The document is read with a pull tokenizer. Small top-level values (center,
// bbox, player, sizeMeters) are materialized into the index descriptor, the
// terrain grid is written as fixed-width columns and every feature element is
// re-serialized as one line of an NDJSON file. Memory use is bounded by the
// largest single feature and the column buffers.
//
// Output is written to a private staging directory and moved into place when
// the pass succeeds, index descriptor last.
package splitter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// stagingPrefix names in-progress split directories inside a generation directory.
const stagingPrefix = ".split-"

var cfg = jsoniter.ConfigCompatibleWithStandardLibrary

// Split reads source and (re)creates the side-cars of genDir.
//
// Any previous index descriptor is removed before work starts, so a failed
// split leaves a directory that reads as stale.
func Split(source, genDir string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	logger := log.With(opts.Logger, "source", source, "dir", genDir)

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", source)
	}
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return nil, fmt.Errorf("create generation dir: %w", err)
	}
	if err := removeIfExists(layout.Path(genDir, layout.IndexFile)); err != nil {
		return nil, fmt.Errorf("remove previous index: %w", err)
	}
	cleanStaging(genDir, logger)

	id := uuid.NewString()
	stage := filepath.Join(genDir, stagingPrefix+id)
	for _, sub := range []string{"features", "terrain"} {
		if err := os.MkdirAll(filepath.Join(stage, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
	}
	defer os.RemoveAll(stage)

	level.Debug(logger).Log("msg", "split started", "split_id", id, "size", info.Size())

	d := &docSplitter{
		opts:   opts,
		logger: logger,
		dir:    stage,
		index: &layout.Index{
			Version: layout.IndexVersion,
			Source:  filepath.Base(source),
			SplitID: id,
		},
	}
	res, err := d.run(source)
	if err != nil {
		level.Error(logger).Log("msg", "split failed", "split_id", id, "err", err)
		return nil, err
	}

	if err := commit(stage, genDir); err != nil {
		return nil, fmt.Errorf("commit side-cars: %w", err)
	}
	if err := notOlderThan(layout.Path(genDir, layout.IndexFile), info.ModTime()); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	level.Info(logger).Log(
		"msg", "split complete",
		"split_id", id,
		"features", res.Index.FeaturesCount,
		"grid_cells", res.GridCells,
		"duration", res.Duration,
	)
	return res, nil
}

// docSplitter holds the state of one pass over the document.
type docSplitter struct {
	opts   Options
	logger log.Logger
	dir    string
	index  *layout.Index
	grid   *gridSplitter

	features *bufio.Writer
	line     bytes.Buffer
	where    string
}

func (d *docSplitter) run(source string) (*Result, error) {
	r, closeSource, err := openSource(source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer closeSource()

	f, err := os.Create(layout.Path(d.dir, layout.FeaturesFile))
	if err != nil {
		return nil, fmt.Errorf("create feature file: %w", err)
	}
	defer f.Close()
	d.features = bufio.NewWriterSize(f, d.opts.FeatureBufferSize)
	d.grid = newGridSplitter(d.dir, d.opts)
	defer d.grid.close()

	if err := d.parse(r); err != nil {
		return nil, err
	}

	d.checkCenter()

	if err := d.features.Flush(); err != nil {
		return nil, fmt.Errorf("write feature file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync feature file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close feature file: %w", err)
	}

	meta, cells, err := d.grid.finish()
	if err != nil {
		return nil, fmt.Errorf("finish grid: %w", err)
	}
	if meta != nil {
		if err := layout.WriteJSON(layout.Path(d.dir, layout.GridMetaFile), meta); err != nil {
			return nil, fmt.Errorf("write grid meta: %w", err)
		}
	}
	if err := layout.WriteJSON(layout.Path(d.dir, layout.IndexFile), d.index); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	return &Result{Index: d.index, Grid: meta, GridCells: cells}, nil
}

func (d *docSplitter) parse(r io.Reader) error {
	it := jsoniter.Parse(cfg, r, d.opts.ReadBufferSize)

	d.where = "document"
	if it.WhatIsNext() != jsoniter.ObjectValue {
		return d.malformed(it, errors.New("top-level value is not an object"))
	}

	var err error
	ok := it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		d.where = field
		switch field {
		case "center":
			d.index.Center = readObject[layout.LatLng](d, it)
			if c := d.index.Center; c != nil {
				d.index.CenterCell = c.CellToken(d.opts.CenterCellLevel)
				d.index.CenterGeohash = c.Geohash()
			}
		case "bbox":
			d.index.BBox = readObject[layout.BBox](d, it)
		case "player":
			d.index.Player = readObject[layout.Anchor](d, it)
		case "sizeMeters":
			n := int(readIntLoose(it))
			d.index.SizeMeters = &n
		case "terrainGrid":
			if it.WhatIsNext() != jsoniter.ObjectValue {
				level.Warn(d.logger).Log("msg", "terrainGrid is not an object, skipped")
				it.Skip()
				break
			}
			err = d.grid.split(it)
		case "features":
			if it.WhatIsNext() != jsoniter.ObjectValue {
				it.Skip()
				break
			}
			err = d.featureCollection(it)
		default:
			it.Skip()
		}
		return err == nil && it.Error == nil
	})
	if err != nil {
		return err
	}
	if !ok || (it.Error != nil && it.Error != io.EOF) {
		return d.malformed(it, it.Error)
	}

	d.where = "document"
	if it.WhatIsNext() != jsoniter.InvalidValue || it.Error != io.EOF {
		return d.malformed(it, errors.New("unexpected content after top-level object"))
	}
	return nil
}

// checkCenter warns when the center point lies outside the bounding box.
func (d *docSplitter) checkCenter() {
	c, b := d.index.Center, d.index.BBox
	if c == nil || b == nil || b.Contains(c.Lat, c.Lng) {
		return
	}
	level.Warn(d.logger).Log("msg", "center outside bbox", "lat", c.Lat, "lng", c.Lng,
		"south", b.South, "north", b.North, "west", b.West, "east", b.East)
}

func (d *docSplitter) malformed(it *jsoniter.Iterator, err error) error {
	if err == nil && it.Error != nil {
		err = it.Error
	}
	return &MalformedInputError{Where: d.where, Err: err}
}

// featureCollection streams features.elements, one line per element.
func (d *docSplitter) featureCollection(it *jsoniter.Iterator) error {
	var err error
	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if field != "elements" || it.WhatIsNext() != jsoniter.ArrayValue {
			it.Skip()
			return it.Error == nil
		}
		d.where = "features.elements"
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			err = d.writeFeature(it)
			return err == nil && it.Error == nil
		})
		return err == nil && it.Error == nil
	})
	return err
}

// writeFeature re-serializes one element onto a single line. Non-object
// elements are written as {} so that line N stays element N.
func (d *docSplitter) writeFeature(it *jsoniter.Iterator) error {
	d.line.Reset()
	if it.WhatIsNext() == jsoniter.ObjectValue {
		raw := it.SkipAndReturnBytes()
		if it.Error != nil {
			return nil
		}
		if err := json.Compact(&d.line, raw); err != nil {
			return &MalformedInputError{Where: fmt.Sprintf("features.elements[%d]", d.index.FeaturesCount), Err: err}
		}
	} else {
		it.Skip()
		d.line.WriteString("{}")
	}
	d.line.WriteByte('\n')
	if _, err := d.features.Write(d.line.Bytes()); err != nil {
		return fmt.Errorf("write feature file: %w", err)
	}
	d.index.FeaturesCount++
	if d.index.FeaturesCount%100000 == 0 {
		level.Debug(d.logger).Log("msg", "features written", "count", d.index.FeaturesCount)
	}
	return nil
}

// readObject decodes a small object value into T. Anything that is not an
// object, or does not fit T, is skipped and reported as absent.
func readObject[T any](d *docSplitter, it *jsoniter.Iterator) *T {
	if it.WhatIsNext() != jsoniter.ObjectValue {
		it.Skip()
		level.Warn(d.logger).Log("msg", "expected an object, value ignored", "field", d.where)
		return nil
	}
	raw := it.SkipAndReturnBytes()
	if it.Error != nil {
		return nil
	}
	var v T
	if err := cfg.Unmarshal(raw, &v); err != nil {
		level.Warn(d.logger).Log("msg", "cannot decode value, ignored", "field", d.where, "err", err)
		return nil
	}
	return &v
}

// commit moves staged side-cars into genDir in layout.SideCars order and
// removes side-cars the new split did not produce.
func commit(stage, genDir string) error {
	for _, rel := range layout.SideCars {
		src := layout.Path(stage, rel)
		dst := layout.Path(genDir, rel)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			if err := removeIfExists(dst); err != nil {
				return err
			}
			continue
		} else if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// notOlderThan pushes the modification time of path forward to t when the
// file system clock left it behind, so the fresh index never reads as stale.
func notOlderThan(path string, t time.Time) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat index: %w", err)
	}
	if !info.ModTime().Before(t) {
		return nil
	}
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("touch index: %w", err)
	}
	return nil
}

// cleanStaging removes staging directories left behind by interrupted splits.
func cleanStaging(genDir string, logger log.Logger) {
	leftovers, _ := filepath.Glob(filepath.Join(genDir, stagingPrefix+"*"))
	for _, dir := range leftovers {
		if err := os.RemoveAll(dir); err != nil {
			level.Warn(logger).Log("msg", "cannot remove stale staging dir", "path", dir, "err", err)
		}
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
