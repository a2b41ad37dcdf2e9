package genstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/splitter"
)

func TestIsStale(t *testing.T) {
	f := fixture{minX: 0, minZ: 0, width: 2, height: 2}
	src := f.write(t)
	dir := filepath.Join(t.TempDir(), "gen")

	stale, err := IsStale(dir, src)
	require.NoError(t, err)
	require.True(t, stale, "no index yet")

	mgr, err := NewManager(DefaultManagerOptions())
	require.NoError(t, err)
	store, err := mgr.Prepare(dir, src)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	stale, err = IsStale(dir, src)
	require.NoError(t, err)
	require.False(t, stale)

	info, err := os.Stat(layout.Path(dir, layout.IndexFile))
	require.NoError(t, err)
	later := info.ModTime().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))

	stale, err = IsStale(dir, src)
	require.NoError(t, err)
	require.True(t, stale)

	_, err = IsStale(dir, filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenStore(t *testing.T) {
	f := fixture{minX: 5, minZ: 5, width: 3, height: 3, features: sampleFeatures}
	store, err := Open(f.split(t))
	require.NoError(t, err)
	defer store.Close()

	idx := store.Index()
	require.Equal(t, layout.IndexVersion, idx.Version)
	require.Equal(t, "coords.json", idx.Source)
	require.Equal(t, int64(len(sampleFeatures)), idx.FeaturesCount)
	require.NotNil(t, idx.SizeMeters)
	require.Equal(t, 500, *idx.SizeMeters)
	require.True(t, idx.BBox.Contains(idx.Center.Lat, idx.Center.Lng))

	require.NotNil(t, store.Grid())
	require.Equal(t, f.cell(4).ground, store.Grid().GroundElevation(6, 6))

	r, err := store.Features()
	require.NoError(t, err)
	defer r.Close()
	var refs []FeatureRef
	for r.Next() {
		refs = append(refs, r.Ref())
	}
	require.NoError(t, r.Err())
	require.Len(t, refs, len(sampleFeatures))

	for i := len(refs) - 1; i >= 0; i-- {
		feat, err := store.FeatureAt(refs[i])
		require.NoError(t, err)
		require.JSONEq(t, sampleFeatures[i], string(feat.Raw))
	}
}

// TestOpenStoreWithoutGrid: no grid section means no GridStore, not an error.
func TestOpenStoreWithoutGrid(t *testing.T) {
	f := fixture{noGrid: true, features: sampleFeatures[:2]}
	store, err := Open(f.split(t))
	require.NoError(t, err)
	defer store.Close()

	require.Nil(t, store.Grid())
	require.Equal(t, NoGround, store.Grid().GroundElevation(0, 0))
	_, ok := store.Grid().WaterElevation(0, 0)
	require.False(t, ok)
	require.Equal(t, int64(2), store.Index().FeaturesCount)
}

func TestOpenStoreMissingIndex(t *testing.T) {
	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreFeaturesIn(t *testing.T) {
	f := fixture{noGrid: true, features: sampleFeatures}
	store, err := Open(f.split(t))
	require.NoError(t, err)
	defer store.Close()

	feats, err := store.FeaturesIn(orb.Bound{Min: orb.Point{13.379, 52.499}, Max: orb.Point{13.382, 52.502}})
	require.NoError(t, err)
	require.Len(t, feats, 1)
	require.Equal(t, "way/4", feats[0].Key())
	require.Equal(t, "yes", feats[0].Tag("building"))

	idx, err := store.FeatureIndex()
	require.NoError(t, err)
	again, err := store.FeatureIndex()
	require.NoError(t, err)
	require.Same(t, idx, again)
}

// TestStoreKeepsItsGeneration re-splits the directory under an open store.
func TestStoreKeepsItsGeneration(t *testing.T) {
	f := fixture{minX: 0, minZ: 0, width: 2, height: 2, features: sampleFeatures}
	dir := f.split(t)
	old, err := Open(dir)
	require.NoError(t, err)
	defer old.Close()

	extra := `{"type":"node","id":99,"lat":10.0,"lon":10.0,"tags":{"name":"elsewhere with a long name"}}`
	next := fixture{noGrid: true, features: append([]string{extra}, sampleFeatures...)}
	_, err = splitter.Split(next.write(t), dir, splitter.Options{})
	require.NoError(t, err)

	cafe := orb.Bound{Min: orb.Point{13.399, 52.519}, Max: orb.Point{13.401, 52.521}}
	feats, err := old.FeaturesIn(cafe)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	require.Equal(t, "node/1", feats[0].Key())
	require.Equal(t, "Kaffee", feats[0].Tag("name"))

	r, err := old.Features()
	require.NoError(t, err)
	n := 0
	for r.Next() {
		require.JSONEq(t, sampleFeatures[n], string(r.Feature().Raw))
		n++
	}
	require.NoError(t, r.Err())
	require.NoError(t, r.Close())
	require.Equal(t, len(sampleFeatures), n)

	require.Equal(t, int64(len(sampleFeatures)), old.Index().FeaturesCount)
	require.Equal(t, f.cell(3).ground, old.Grid().GroundElevation(1, 1))

	current, err := Open(dir)
	require.NoError(t, err)
	defer current.Close()
	require.Nil(t, current.Grid())
	feats, err = current.FeaturesIn(cafe)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	require.Equal(t, "node/1", feats[0].Key())
	require.Equal(t, int64(len(sampleFeatures)+1), current.Index().FeaturesCount)
}

func TestStoreClose(t *testing.T) {
	f := fixture{minX: 0, minZ: 0, width: 2, height: 2, features: sampleFeatures[:1]}
	store, err := Open(f.split(t))
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Features()
	require.ErrorIs(t, err, ErrClosed)
	_, err = store.FeatureAt(FeatureRef{})
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, NoGround, store.Grid().GroundElevation(0, 0))
}
