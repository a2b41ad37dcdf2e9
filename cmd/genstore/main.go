// Command genstore splits a world-generation document into side-car files
// and inspects existing generation directories.
//
// Usage:
//
//	genstore split    -dir gen/ -source coords.json
//	genstore info     -dir gen/ [-source coords.json]
//	genstore cell     -dir gen/ -x 10 -z -4
//	genstore features -dir gen/ [-bbox minLon,minLat,maxLon,maxLat] [-limit 20]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheAndreyZakharov/Cartopia-sub004/pkg/genstore"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: genstore <split|info|cell|features> [flags]\n")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "split":
		err = runSplit(args, logger)
	case "info":
		err = runInfo(args, logger)
	case "cell":
		err = runCell(args)
	case "features":
		err = runFeatures(args)
	default:
		usage()
	}
	if err != nil {
		level.Error(logger).Log("msg", cmd+" failed", "err", err)
		os.Exit(1)
	}
}

func runSplit(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	var (
		dir       = fs.String("dir", "", "Generation directory")
		source    = fs.String("source", "", "Source document (.json or .json.zst)")
		force     = fs.Bool("force", false, "Split even when the directory is fresh")
		cellLevel = fs.Int("cell-level", genstore.DefaultSplitOptions().CenterCellLevel, "S2 level of the center cell token")
		debug     = fs.Bool("debug", false, "Log split progress")
	)
	fs.Parse(args)
	if *dir == "" || *source == "" {
		fs.Usage()
		return errors.New("-dir and -source are required")
	}

	if *debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	reg := prometheus.NewRegistry()
	opts := genstore.DefaultManagerOptions()
	opts.Logger = logger
	opts.Registerer = reg
	opts.Split.CenterCellLevel = *cellLevel
	mgr, err := genstore.NewManager(opts)
	if err != nil {
		return err
	}

	if *force {
		res, err := mgr.Split(*dir, *source)
		if err != nil {
			return err
		}
		level.Info(logger).Log("msg", "split complete", "split_id", res.Index.SplitID, "features", res.Index.FeaturesCount, "grid_cells", res.GridCells)
		return nil
	}

	store, err := mgr.Prepare(*dir, *source)
	if err != nil {
		return err
	}
	defer store.Close()
	level.Info(logger).Log("msg", "generation ready", "dir", store.Dir(), "split_id", store.Index().SplitID, "features", store.Index().FeaturesCount)
	return nil
}

func runInfo(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var (
		dir    = fs.String("dir", "", "Generation directory")
		source = fs.String("source", "", "Source document, to report staleness")
	)
	fs.Parse(args)
	if *dir == "" {
		fs.Usage()
		return errors.New("-dir is required")
	}

	if *source != "" {
		stale, err := genstore.IsStale(*dir, *source)
		if err != nil {
			return err
		}
		level.Info(logger).Log("msg", "freshness", "source", *source, "stale", stale)
	}

	store, err := genstore.Open(*dir)
	if err != nil {
		return err
	}
	defer store.Close()

	idx := store.Index()
	fmt.Printf("Source:    %s\n", idx.Source)
	fmt.Printf("Split:     %s\n", idx.SplitID)
	fmt.Printf("Features:  %d\n", idx.FeaturesCount)
	if idx.Center != nil {
		fmt.Printf("Center:    %.6f,%.6f (cell %s, geohash %s)\n", idx.Center.Lat, idx.Center.Lng, idx.CenterCell, idx.CenterGeohash)
	}
	if idx.BBox != nil {
		fmt.Printf("BBox:      S %.6f N %.6f W %.6f E %.6f\n", idx.BBox.South, idx.BBox.North, idx.BBox.West, idx.BBox.East)
	}
	if idx.Player != nil {
		fmt.Printf("Player:    x=%g z=%g\n", idx.Player.X, idx.Player.Z)
	}
	if idx.SizeMeters != nil {
		fmt.Printf("Size:      %d m\n", *idx.SizeMeters)
	}

	g := store.Grid()
	if g == nil {
		fmt.Println("Grid:      none")
		return nil
	}
	meta := g.Meta()
	fmt.Printf("Grid:      %dx%d at (%d,%d), %s\n", meta.Width, meta.Height, meta.MinX, meta.MinZ, meta.Schema)
	fmt.Printf("Water:     %v\n", g.HasWater())
	if g.HasMaterial() {
		fmt.Printf("Materials: %d\n", len(g.Materials()))
	}
	return nil
}

func runCell(args []string) error {
	fs := flag.NewFlagSet("cell", flag.ExitOnError)
	var (
		dir = fs.String("dir", "", "Generation directory")
		x   = fs.Int("x", 0, "Block X")
		z   = fs.Int("z", 0, "Block Z")
	)
	fs.Parse(args)
	if *dir == "" {
		fs.Usage()
		return errors.New("-dir is required")
	}

	g, err := genstore.OpenGrid(*dir)
	if err != nil {
		return err
	}
	defer g.Close()
	if !g.InBounds(*x, *z) {
		return fmt.Errorf("cell (%d,%d) outside grid", *x, *z)
	}

	fmt.Printf("ground: %d\n", g.GroundElevation(*x, *z))
	if y, ok := g.WaterElevation(*x, *z); ok {
		fmt.Printf("water:  %d\n", y)
	} else {
		fmt.Println("water:  -")
	}
	if id, ok := g.SurfaceMaterial(*x, *z); ok {
		fmt.Printf("top:    %q\n", id)
	} else {
		fmt.Println("top:    -")
	}
	return nil
}

func runFeatures(args []string) error {
	fs := flag.NewFlagSet("features", flag.ExitOnError)
	var (
		dir   = fs.String("dir", "", "Generation directory")
		bbox  = fs.String("bbox", "", "Viewport minLon,minLat,maxLon,maxLat")
		limit = fs.Int("limit", 20, "Maximum features to print (0 for all)")
	)
	fs.Parse(args)
	if *dir == "" {
		fs.Usage()
		return errors.New("-dir is required")
	}

	store, err := genstore.Open(*dir)
	if err != nil {
		return err
	}
	defer store.Close()

	if *bbox != "" {
		b, err := parseBound(*bbox)
		if err != nil {
			return err
		}
		feats, err := store.FeaturesIn(b)
		if err != nil {
			return err
		}
		for i, f := range feats {
			if *limit > 0 && i >= *limit {
				break
			}
			printFeature(f)
		}
		fmt.Printf("%d features in viewport\n", len(feats))
		return nil
	}

	r, err := store.Features()
	if err != nil {
		return err
	}
	defer r.Close()
	n := 0
	for i, f := range r.All() {
		if *limit > 0 && i >= *limit {
			break
		}
		printFeature(f)
		n++
	}
	if err := r.Err(); err != nil {
		return err
	}
	fmt.Printf("%d features shown\n", n)
	return nil
}

func printFeature(f genstore.Feature) {
	if f.Empty() {
		fmt.Println("-")
		return
	}
	name := f.Tag("name")
	if name == "" {
		name = f.Tag("building")
	}
	fmt.Printf("%-20s %s\n", f.Key(), name)
}

func parseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
