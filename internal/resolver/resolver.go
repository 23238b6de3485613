// Package resolver classifies a coordinate by the road-type tag of a nearby
// OSM way, widening the search radius when nothing is found.
package resolver

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/roadtype-cli/internal/resilience"
	"github.com/sells-group/roadtype-cli/pkg/overpass"
)

// NotFound is the default classification when a lookup was attempted but no
// tagged way was found at any radius.
const NotFound = "NA"

// DefaultRadii are the search radii in meters, tried in order.
var DefaultRadii = []int{20, 50}

// Resolver turns coordinate text into a classification. Implementations
// never fail: every problem collapses into the not-found value.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon string) string
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, lat, lon string) string

// Resolve implements Resolver.
func (f Func) Resolve(ctx context.Context, lat, lon string) string {
	return f(ctx, lat, lon)
}

// Options configures a RoadResolver. Zero values take the defaults.
type Options struct {
	Radii       []int
	TagKey      string
	Mode        overpass.OutputMode
	TimeoutSecs int
	NotFound    string
	Policy      resilience.Policy
}

// Match describes a successful lookup.
type Match struct {
	Value   string
	Radius  int
	Element overpass.Element
}

// RoadResolver resolves coordinates through the Overpass API.
type RoadResolver struct {
	client overpass.Client
	opts   Options
}

// New creates a RoadResolver. Radii are sorted ascending and non-positive
// values are dropped.
func New(client overpass.Client, opts Options) *RoadResolver {
	radii := make([]int, 0, len(opts.Radii))
	for _, r := range opts.Radii {
		if r > 0 {
			radii = append(radii, r)
		}
	}
	if len(radii) == 0 {
		radii = slices.Clone(DefaultRadii)
	}
	slices.Sort(radii)
	opts.Radii = slices.Compact(radii)

	if opts.TagKey == "" {
		opts.TagKey = overpass.DefaultTagKey
	}
	if opts.Mode == "" {
		opts.Mode = overpass.ModeTags
	}
	if opts.TimeoutSecs <= 0 {
		opts.TimeoutSecs = overpass.DefaultQueryTimeoutSecs
	}
	if opts.NotFound == "" {
		opts.NotFound = NotFound
	}
	return &RoadResolver{client: client, opts: opts}
}

// Radii returns the radii tried, in order.
func (r *RoadResolver) Radii() []int {
	return slices.Clone(r.opts.Radii)
}

// Resolve implements Resolver.
func (r *RoadResolver) Resolve(ctx context.Context, lat, lon string) string {
	if m, ok := r.Lookup(ctx, lat, lon); ok {
		return m.Value
	}
	return r.opts.NotFound
}

// Lookup tries each radius in turn and returns the first element, in server
// order, that carries the tag. A failed request, an unparseable body or a
// response without a tagged element moves on to the next radius.
func (r *RoadResolver) Lookup(ctx context.Context, lat, lon string) (Match, bool) {
	log := zap.L().With(zap.String("lat", lat), zap.String("lon", lon))

	for _, radius := range r.opts.Radii {
		if ctx.Err() != nil {
			return Match{}, false
		}

		q := overpass.Query{
			Lat:         lat,
			Lon:         lon,
			Radius:      radius,
			TimeoutSecs: r.opts.TimeoutSecs,
			TagKey:      r.opts.TagKey,
			Mode:        r.opts.Mode,
		}
		resp, err := resilience.Call(ctx, r.opts.Policy, func(ctx context.Context) (*overpass.Response, error) {
			return r.client.Interpreter(ctx, q)
		})
		if err != nil {
			log.Debug("resolver: query failed", zap.Int("radius", radius), zap.Error(err))
			continue
		}

		el, ok := resp.FirstTagged(r.opts.TagKey)
		if !ok {
			log.Debug("resolver: no tagged way",
				zap.Int("radius", radius),
				zap.Int("elements", len(resp.Elements)),
				zap.String("remark", resp.Remark),
			)
			continue
		}

		value, _ := el.Tag(r.opts.TagKey)
		return Match{Value: value, Radius: radius, Element: el}, true
	}
	return Match{}, false
}
