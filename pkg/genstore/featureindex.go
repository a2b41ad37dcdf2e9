package genstore

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// FeatureIndex answers bounding box queries over the feature file without
// keeping the features in memory. It stores one bound and FeatureRef per
// feature in an R-tree.
type FeatureIndex struct {
	tree    *rtreego.Rtree
	bound   orb.Bound
	count   int
	skipped int
}

// indexedFeature wraps a feature location for R-tree storage.
type indexedFeature struct {
	ref   FeatureRef
	bound orb.Bound
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return rectFromBound(f.bound)
}

// rectFromBound converts lon/lat bounds into an R-tree rectangle. Points and
// lines get a small extent because the tree requires non-zero sides.
func rectFromBound(b orb.Bound) rtreego.Rect {
	const epsilon = 0.0001
	lon := b.Max[0] - b.Min[0]
	lat := b.Max[1] - b.Min[1]
	if lon < epsilon {
		lon = epsilon
	}
	if lat < epsilon {
		lat = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{lon, lat})
	return rect
}

// BuildFeatureIndex consumes r and indexes every feature that has a
// position. The reader is not closed.
func BuildFeatureIndex(r *FeatureReader) (*FeatureIndex, error) {
	idx := &FeatureIndex{tree: rtreego.NewTree(2, 25, 50)}
	for r.Next() {
		b, ok := r.Feature().Bound()
		if !ok {
			idx.skipped++
			continue
		}
		idx.tree.Insert(&indexedFeature{ref: r.Ref(), bound: b})
		if idx.count == 0 {
			idx.bound = b
		} else {
			idx.bound = idx.bound.Union(b)
		}
		idx.count++
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Query returns the features whose bounds intersect b, in file order.
func (x *FeatureIndex) Query(b orb.Bound) []FeatureRef {
	if x.count == 0 {
		return nil
	}
	hits := x.tree.SearchIntersect(rectFromBound(b))
	refs := make([]FeatureRef, 0, len(hits))
	for _, h := range hits {
		refs = append(refs, h.(*indexedFeature).ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Line < refs[j].Line })
	return refs
}

// Len returns the number of indexed features.
func (x *FeatureIndex) Len() int { return x.count }

// Skipped returns the number of features without a position.
func (x *FeatureIndex) Skipped() int { return x.skipped }

// Bound returns the union of all indexed bounds.
func (x *FeatureIndex) Bound() orb.Bound { return x.bound }
