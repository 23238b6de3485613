package overpass

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roadtype-cli/internal/resilience"
)

const twoWays = `{
	"version": 0.6,
	"generator": "Overpass API 0.7.62",
	"elements": [
		{"type": "way", "id": 1, "nodes": [10, 11]},
		{"type": "way", "id": 2, "tags": {"highway": "residential", "name": "Pine St"}},
		{"type": "way", "id": 3, "tags": {"highway": "motorway"}}
	]
}`

func TestQueryString(t *testing.T) {
	q := Query{Lat: "47.6", Lon: "-122.3", Radius: 20, TimeoutSecs: 25, TagKey: "highway", Mode: ModeTags}
	assert.Equal(t, "[out:json][timeout:25];way(around:20,47.6,-122.3)[highway];out tags;", q.String())

	q.Mode = ModeGeom
	q.Radius = 50
	assert.Equal(t, "[out:json][timeout:25];way(around:50,47.6,-122.3)[highway];out geom;", q.String())
}

func TestQueryString_Defaults(t *testing.T) {
	q := Query{Lat: "1", Lon: "2", Radius: 5}
	assert.Equal(t, "[out:json][timeout:25];way(around:5,1,2)[highway];out tags;", q.String())
}

func TestParseOutputMode(t *testing.T) {
	for in, want := range map[string]OutputMode{"": ModeTags, "tags": ModeTags, " GEOM ": ModeGeom} {
		got, err := ParseOutputMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputMode("skel")
	assert.Error(t, err)
}

func TestDecodeResponse_FirstTagged(t *testing.T) {
	resp, err := DecodeResponse([]byte(twoWays))
	require.NoError(t, err)
	require.Len(t, resp.Elements, 3)

	el, ok := resp.FirstTagged("highway")
	require.True(t, ok)
	assert.Equal(t, int64(2), el.ID)
	v, _ := el.Tag("highway")
	assert.Equal(t, "residential", v)
}

func TestDecodeResponse_NoElements(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"version":0.6,"remark":"runtime error: Query timed out"}`))
	require.NoError(t, err)
	assert.Empty(t, resp.Elements)
	assert.Contains(t, resp.Remark, "timed out")

	_, ok := resp.FirstTagged("highway")
	assert.False(t, ok)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	_, err := DecodeResponse([]byte(`<?xml version="1.0"?><osm/>`))
	assert.Error(t, err)

	_, err = DecodeResponse([]byte(`{"elements": {"not": "a list"}}`))
	assert.Error(t, err)
}

func TestElementTag_EmptyValueSkipped(t *testing.T) {
	resp := &Response{Elements: []Element{
		{ID: 1, Tags: map[string]string{"highway": ""}},
		{ID: 2, Tags: map[string]string{"highway": "service"}},
	}}
	el, ok := resp.FirstTagged("highway")
	require.True(t, ok)
	assert.Equal(t, int64(2), el.ID)

	var nilResp *Response
	_, ok = nilResp.FirstTagged("highway")
	assert.False(t, ok)
}

func TestElementLineString(t *testing.T) {
	el := Element{ID: 7, Geometry: []Point{{Lat: 47.6, Lon: -122.3}, {Lat: 47.61, Lon: -122.31}}}
	ls, ok := el.LineString()
	require.True(t, ok)
	assert.Equal(t, 2, ls.NumCoords())
	assert.Equal(t, 4326, ls.SRID())
	assert.InDelta(t, -122.3, ls.Coord(0).X(), 1e-9)
	assert.InDelta(t, 47.6, ls.Coord(0).Y(), 1e-9)

	s, err := el.WKT()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "LINESTRING"), s)

	_, ok = Element{Geometry: []Point{{Lat: 1, Lon: 2}}}.LineString()
	assert.False(t, ok)
	s, err = Element{}.WKT()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestInterpreter_Success(t *testing.T) {
	var gotBody, gotUA, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotUA = r.Header.Get("User-Agent")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, twoWays)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	resp, err := c.Interpreter(context.Background(), Query{Lat: "47.6", Lon: "-122.3", Radius: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Elements, 3)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "[out:json][timeout:25];way(around:20,47.6,-122.3)[highway];out tags;", gotBody)
}

func TestInterpreter_CustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, `{"elements":[]}`)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL), WithUserAgent("roadtype-test/0.1"), WithRateLimit(100))
	_, err := c.Interpreter(context.Background(), Query{Lat: "1", Lon: "2", Radius: 20})
	require.NoError(t, err)
	assert.Equal(t, "roadtype-test/0.1", gotUA)
}

func TestInterpreter_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Interpreter(context.Background(), Query{Lat: "1", Lon: "2", Radius: 20})
	assert.True(t, errors.Is(err, ErrEmptyResponse), "got %v", err)
}

func TestInterpreter_TooManyRequestsIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate_limited")
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Interpreter(context.Background(), Query{Lat: "1", Lon: "2", Radius: 20})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "429")
}

func TestInterpreter_BadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "parse error: line 1")
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Interpreter(context.Background(), Query{Lat: "x", Lon: "y", Radius: 20})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestInterpreter_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, twoWays)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := c.Interpreter(context.Background(), Query{Lat: "1", Lon: "2", Radius: 20})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestInterpreter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithEndpoint(url)).Interpreter(context.Background(), Query{Lat: "1", Lon: "2", Radius: 20})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "refused connection should not be retried")
}

func TestInterpreter_CancelledIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient(WithEndpoint(srv.URL)).Interpreter(ctx, Query{Lat: "1", Lon: "2", Radius: 20})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
