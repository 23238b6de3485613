package overpass

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// OutputMode selects the Overpass "out" verbosity.
type OutputMode string

const (
	// ModeTags returns element ids and tags only.
	ModeTags OutputMode = "tags"
	// ModeGeom also returns the coordinates of every way node.
	ModeGeom OutputMode = "geom"
)

// ParseOutputMode parses "tags" or "geom". Empty means ModeTags.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTags:
		return ModeTags, nil
	case ModeGeom:
		return ModeGeom, nil
	default:
		return "", eris.Errorf("overpass: unknown output mode %q", s)
	}
}

// DefaultTagKey is the OSM key that classifies roads.
const DefaultTagKey = "highway"

// DefaultQueryTimeoutSecs is the server-side evaluation budget declared in
// the query header.
const DefaultQueryTimeoutSecs = 25

// Query is a road search around a point. Lat and Lon are passed through as
// text and are not validated.
type Query struct {
	Lat         string
	Lon         string
	Radius      int // meters
	TimeoutSecs int
	TagKey      string
	Mode        OutputMode
}

// String renders q in Overpass QL, e.g.
//
//	[out:json][timeout:25];way(around:20,47.6,-122.3)[highway];out tags;
func (q Query) String() string {
	timeout := q.TimeoutSecs
	if timeout <= 0 {
		timeout = DefaultQueryTimeoutSecs
	}
	key := q.TagKey
	if key == "" {
		key = DefaultTagKey
	}
	out := "out tags;"
	if q.Mode == ModeGeom {
		out = "out geom;"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];", timeout)
	fmt.Fprintf(&b, "way(around:%d,%s,%s)[%s];", q.Radius, q.Lat, q.Lon, key)
	b.WriteString(out)
	return b.String()
}
