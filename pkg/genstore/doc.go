// Package genstore prepares and reads the side-car representation of a
// generation document.
//
// A generation document is one large JSON file describing a generated area:
// center and bounding box, player anchor, a rectangular terrain grid and an
// arbitrarily long list of OSM-style features. Splitting it once produces
// small files that can be used without holding the document in memory:
//
//	index.json                 index descriptor (Index)
//	features/elements.ndjson   one feature per line (FeatureReader)
//	terrain/grid.meta.json     grid dimensions and column paths (GridMeta)
//	terrain/groundY.i32        ground elevation per cell (GridStore)
//	terrain/waterY.i16         water elevation per cell, -32768 = none
//	terrain/topBlock.dict.txt  surface material dictionary
//	terrain/topBlock.i32       surface material code per cell
//
// Most callers use a Manager, which re-splits the document when it is newer
// than the index descriptor and opens a Store over the result:
//
//	mgr, err := genstore.NewManager(genstore.DefaultManagerOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := mgr.Prepare("/data/world/gen", "/data/world/coords.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	ground := store.Grid().GroundElevation(120, -45)
//	water, hasWater := store.Grid().WaterElevation(120, -45)
//
// Grid queries are safe for concurrent use. Each FeatureReader is a single
// forward cursor; create one per consumer with Store.Features.
package genstore
