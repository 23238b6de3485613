package overpass

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Response is the JSON document returned by the interpreter endpoint.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	Remark    string    `json:"remark,omitempty"` // set when the server aborts evaluation
	Elements  []Element `json:"elements"`
}

// Element is a matched OSM object. Geometry is only filled for "out geom".
type Element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags,omitempty"`
	Nodes    []int64           `json:"nodes,omitempty"`
	Geometry []Point           `json:"geometry,omitempty"`
}

// Point is one node position in an element's geometry.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DecodeResponse parses an interpreter response body. A document without an
// "elements" list decodes to a Response with no elements.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}
	return &resp, nil
}

// Tag returns the non-empty value of key.
func (e Element) Tag(key string) (string, bool) {
	v, ok := e.Tags[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// FirstTagged returns the first element, in server order, that carries key.
func (r *Response) FirstTagged(key string) (Element, bool) {
	if r == nil {
		return Element{}, false
	}
	for _, el := range r.Elements {
		if _, ok := el.Tag(key); ok {
			return el, true
		}
	}
	return Element{}, false
}

// LineString converts the element geometry to a WGS84 line string
// (x = longitude, y = latitude). It returns false when fewer than two
// points are present.
func (e Element) LineString() (*geom.LineString, bool) {
	if len(e.Geometry) < 2 {
		return nil, false
	}
	flat := make([]float64, 0, 2*len(e.Geometry))
	for _, p := range e.Geometry {
		flat = append(flat, p.Lon, p.Lat)
	}
	return geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326), true
}

// WKT renders the element geometry as well-known text, or "" without geometry.
func (e Element) WKT() (string, error) {
	ls, ok := e.LineString()
	if !ok {
		return "", nil
	}
	s, err := wkt.Marshal(ls)
	if err != nil {
		return "", eris.Wrapf(err, "overpass: encode way %d", e.ID)
	}
	return s, nil
}
