package enrich

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultLatitudeColumns are the header names accepted for latitude.
var DefaultLatitudeColumns = []string{"latitude", "lat"}

// DefaultLongitudeColumns are the header names accepted for longitude.
var DefaultLongitudeColumns = []string{"longitude", "lon", "lng"}

// Columns holds the resolved coordinate positions in a header.
type Columns struct {
	Lat int
	Lon int
}

// Found reports whether both positions were resolved.
func (c Columns) Found() bool {
	return c.Lat >= 0 && c.Lon >= 0
}

// fits reports whether a row is long enough to hold both coordinates.
func (c Columns) fits(row []string) bool {
	return c.Lat < len(row) && c.Lon < len(row)
}

// FindColumns locates the coordinate columns by caseless exact name match.
// When several columns match, the last one wins. Unresolved positions are -1.
func FindColumns(header, latNames, lonNames []string) Columns {
	cols := Columns{Lat: -1, Lon: -1}
	if m := MatchingColumns(header, latNames); len(m) > 0 {
		cols.Lat = m[len(m)-1]
	}
	if m := MatchingColumns(header, lonNames); len(m) > 0 {
		cols.Lon = m[len(m)-1]
	}
	return cols
}

// MatchingColumns returns the positions of every header field whose trimmed,
// case-folded name is in names, in header order.
func MatchingColumns(header, names []string) []int {
	fold := cases.Fold()
	normalize := func(s string) string {
		return fold.String(strings.TrimSpace(s))
	}
	set := nameSet(names, normalize)

	var idx []int
	for i, name := range header {
		if set[normalize(name)] {
			idx = append(idx, i)
		}
	}
	return idx
}

func nameSet(names []string, normalize func(string) string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = normalize(n); n != "" {
			set[n] = true
		}
	}
	return set
}
