package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/require"
)

func TestIndexFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	size := 750
	idx := &Index{
		Version:       IndexVersion,
		Source:        "coords.json",
		SplitID:       "abc",
		Center:        &LatLng{Lat: 48.8566, Lng: 2.3522},
		BBox:          &BBox{South: 48.85, North: 48.86, West: 2.34, East: 2.36},
		SizeMeters:    &size,
		FeaturesCount: 12,
	}
	require.NoError(t, WriteJSON(Path(dir, IndexFile), idx))

	got, err := ReadIndex(dir)
	require.NoError(t, err)
	require.Equal(t, idx, got)

	_, err = ReadIndex(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGridMeta(t *testing.T) {
	meta := NewGridMeta(-10, 4, 30, 20, SchemaStructured)
	require.Equal(t, int64(600), meta.Cells())
	require.Equal(t, LittleEndian, meta.Endianness)
	require.Equal(t, GroundFile, meta.GroundY)
	require.Equal(t, MaterialDict, meta.TopBlockDict)

	path := Path(t.TempDir(), GridMetaFile)
	require.NoError(t, WriteJSON(path, meta))
	got, err := ReadGridMeta(path)
	require.NoError(t, err)
	require.Equal(t, meta, *got)

	require.NoError(t, os.WriteFile(path, []byte(`{"width":1,"height":1,"endianness":"BE"}`), 0o644))
	_, err = ReadGridMeta(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"width":`), 0o644))
	_, err = ReadGridMeta(path)
	require.Error(t, err)
}

func TestPath(t *testing.T) {
	require.Equal(t, filepath.Join("gen", "terrain", "groundY.i32"), Path("gen", GroundFile))
	require.Equal(t, IndexFile, SideCars[len(SideCars)-1])
}

func TestCenterKeys(t *testing.T) {
	p := LatLng{Lat: 52.52, Lng: 13.405}
	require.True(t, strings.HasPrefix(p.Geohash(), "u33d"))

	token := p.CellToken(13)
	id := s2.CellIDFromToken(token)
	require.True(t, id.IsValid())
	require.Equal(t, 13, id.Level())
	require.True(t, id.Contains(s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))))
}

func TestBBoxContains(t *testing.T) {
	b := BBox{South: 52.5, North: 52.54, West: 13.38, East: 13.43}
	require.True(t, b.Contains(52.52, 13.40))
	require.True(t, b.Contains(52.5, 13.38))
	require.False(t, b.Contains(52.6, 13.40))
	require.False(t, b.Contains(52.52, 13.5))
}
