package genstore

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// emptyRecord is the raw form of a feature line that could not be decoded.
var emptyRecord = []byte("{}")

// Feature is one record of the feature file.
//
// Raw holds the compact JSON line exactly as stored. The remaining fields are
// a typed view of the common Overpass element keys; they stay zero when the
// record does not carry them or carries them with unexpected types.
type Feature struct {
	Raw []byte `json:"-"`

	Type     osm.Type      `json:"type"`
	ID       int64         `json:"id"`
	Lat      *float64      `json:"lat,omitempty"`
	Lon      *float64      `json:"lon,omitempty"`
	Tags     osm.Tags      `json:"tags,omitempty"`
	Nodes    []osm.NodeID  `json:"nodes,omitempty"`
	Geometry []Coordinate  `json:"geometry,omitempty"`
	Bounds   *FeatureBound `json:"bounds,omitempty"`
	Center   *Coordinate   `json:"center,omitempty"`
	Members  []Member      `json:"members,omitempty"`
}

// Coordinate is a lat/lon pair as used in Overpass geometry output.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the coordinate as an orb point (lon, lat).
func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// FeatureBound is the Overpass "bounds" object.
type FeatureBound struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

// Member is one relation member.
type Member struct {
	Type     osm.Type     `json:"type"`
	Ref      int64        `json:"ref"`
	Role     string       `json:"role"`
	Geometry []Coordinate `json:"geometry,omitempty"`
}

// decodeFeature decodes one line. Lines that are not a JSON object yield an
// empty Feature whose Raw is {}.
func decodeFeature(line []byte) Feature {
	if len(line) == 0 || line[0] != '{' || !jsonAPI.Valid(line) {
		return Feature{Raw: emptyRecord}
	}
	raw := append([]byte(nil), line...)
	var f Feature
	if err := jsonAPI.Unmarshal(raw, &f); err != nil {
		f = Feature{}
	}
	f.Raw = raw
	return f
}

// Empty reports whether the record has no content.
func (f Feature) Empty() bool {
	return len(f.Raw) == 0 || string(f.Raw) == "{}"
}

// Key identifies the element as "type/id", for example "way/123".
// Empty when the record has no type.
func (f Feature) Key() string {
	if f.Type == "" {
		return ""
	}
	return string(f.Type) + "/" + strconv.FormatInt(f.ID, 10)
}

// Tag returns the value of tag k, or "".
func (f Feature) Tag(k string) string {
	return f.Tags.Find(k)
}

// Decode unmarshals the raw record into v.
func (f Feature) Decode(v any) error {
	raw := f.Raw
	if len(raw) == 0 {
		raw = emptyRecord
	}
	return jsonAPI.Unmarshal(raw, v)
}

// Bound returns the geographic extent of the feature. Explicit bounds win,
// then geometry, node position, center and member geometry in that order.
func (f Feature) Bound() (orb.Bound, bool) {
	if b := f.Bounds; b != nil {
		return orb.Bound{
			Min: orb.Point{b.MinLon, b.MinLat},
			Max: orb.Point{b.MaxLon, b.MaxLat},
		}, true
	}
	if len(f.Geometry) > 0 {
		return coordinatesBound(f.Geometry), true
	}
	if f.Lat != nil && f.Lon != nil {
		p := orb.Point{*f.Lon, *f.Lat}
		return p.Bound(), true
	}
	if f.Center != nil {
		return f.Center.Point().Bound(), true
	}

	var pts orb.MultiPoint
	for _, m := range f.Members {
		for _, c := range m.Geometry {
			pts = append(pts, c.Point())
		}
	}
	if len(pts) > 0 {
		return pts.Bound(), true
	}
	return orb.Bound{}, false
}

func coordinatesBound(cs []Coordinate) orb.Bound {
	pts := make(orb.MultiPoint, len(cs))
	for i, c := range cs {
		pts[i] = c.Point()
	}
	return pts.Bound()
}
