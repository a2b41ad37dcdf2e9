package genstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/splitter"
)

var materials = []string{"minecraft:grass_block", "minecraft:sand", "", "minecraft:water"}

// cell is the expected content of one grid cell.
type cell struct {
	ground   int32
	water    int16 // WaterSentinel when the cell has no water
	material string
	hasMat   bool
}

// fixture builds a synthetic generation document.
type fixture struct {
	minX, minZ    int
	width, height int
	flat          bool // write the grid as a single "data" array
	noGrid        bool
	features      []string
}

func (f fixture) cell(i int) cell {
	c := cell{
		ground: int32((i*31)%200 - 50),
		water:  WaterSentinel,
	}
	if f.flat {
		return c
	}
	if i%3 != 0 && i%5 != 0 {
		c.water = int16(60 + i%4)
	}
	c.hasMat = true
	if i%4 != 0 {
		c.material = materials[i%len(materials)]
	}
	return c
}

// doc renders the fixture as JSON. Every third water cell is null and every
// fifth is the sentinel; every fourth material is null.
func (f fixture) doc() string {
	var b strings.Builder
	b.WriteString(`{"center":{"lat":52.52,"lng":13.405},"bbox":{"south":52.5,"north":52.54,"west":13.38,"east":13.43},`)
	b.WriteString(`"player":{"x":0,"z":0},"sizeMeters":500,`)

	if !f.noGrid {
		n := f.width * f.height
		fmt.Fprintf(&b, `"terrainGrid":{"minX":%d,"minZ":%d,"width":%d,"height":%d,`, f.minX, f.minZ, f.width, f.height)
		ground := make([]string, n)
		water := make([]string, n)
		top := make([]string, n)
		for i := 0; i < n; i++ {
			c := f.cell(i)
			ground[i] = fmt.Sprint(c.ground)
			switch {
			case i%3 == 0:
				water[i] = "null"
			case i%5 == 0:
				water[i] = "-32768"
			default:
				water[i] = fmt.Sprint(c.water)
			}
			if i%4 == 0 {
				top[i] = "null"
			} else {
				top[i] = fmt.Sprintf("%q", c.material)
			}
		}
		if f.flat {
			fmt.Fprintf(&b, `"data":[%s]},`, strings.Join(ground, ","))
		} else {
			fmt.Fprintf(&b, `"grids":{"groundY":[%s],"waterY":[%s],"topBlock":[%s]}},`,
				strings.Join(ground, ","), strings.Join(water, ","), strings.Join(top, ","))
		}
	}

	fmt.Fprintf(&b, `"features":{"elements":[%s]}}`, strings.Join(f.features, ","))
	return b.String()
}

// write stores the document in a new temp dir and returns its path.
func (f fixture) write(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coords.json")
	require.NoError(t, os.WriteFile(path, []byte(f.doc()), 0o644))
	return path
}

// split writes and splits the fixture, returning the generation directory.
func (f fixture) split(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "gen")
	_, err := splitter.Split(f.write(t), dir, splitter.Options{})
	require.NoError(t, err)
	return dir
}

var sampleFeatures = []string{
	`{"type":"node","id":1,"lat":52.52,"lon":13.40,"tags":{"amenity":"cafe","name":"Kaffee"}}`,
	`{"type":"way","id":2,"nodes":[10,11,12],"geometry":[{"lat":52.51,"lon":13.39},{"lat":52.515,"lon":13.395},{"lat":52.512,"lon":13.41}],"tags":{"highway":"residential"}}`,
	`{"type":"relation","id":3,"members":[{"type":"way","ref":2,"role":"outer","geometry":[{"lat":52.53,"lon":13.42},{"lat":52.535,"lon":13.425}]}],"tags":{"type":"multipolygon","landuse":"forest"}}`,
	`{"type":"way","id":4,"bounds":{"minlat":52.50,"minlon":13.38,"maxlat":52.501,"maxlon":13.381},"tags":{"building":"yes"}}`,
	`{"type":"node","id":5,"tags":{"note":"no position"}}`,
}
