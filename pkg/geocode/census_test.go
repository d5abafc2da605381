package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-cli/internal/resilience"
)

func TestCensusSingleGeocode_Success(t *testing.T) {
	var gotAddress string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"result": {
				"addressMatches": [{
					"coordinates": {"x": -122.3149, "y": 47.5991},
					"matchedAddress": "1314 S JACKSON ST, SEATTLE, WA, 98144"
				}]
			}
		}`)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(map[string]string{censusOneLineURL: srv.URL}),
		limiter:    newTestLimiter(),
	}

	result, err := g.geocodeCensus(context.Background(), "1314 S JACKSON ST Seattle, WA 98144")
	require.NoError(t, err)
	assert.Equal(t, "1314 S JACKSON ST Seattle, WA 98144", gotAddress)
	assert.True(t, result.Matched)
	assert.InDelta(t, 47.5991, result.Latitude, 0.0001)
	assert.InDelta(t, -122.3149, result.Longitude, 0.0001)
	assert.Equal(t, "1314 S JACKSON ST, SEATTLE, WA, 98144", result.MatchedAddress)
	assert.Equal(t, "census", result.Source)
	assert.Equal(t, "rooftop", result.Quality)
}

func TestCensusSingleGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"result": {"addressMatches": []}}`)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(map[string]string{censusOneLineURL: srv.URL}),
		limiter:    newTestLimiter(),
	}

	result, err := g.geocodeCensus(context.Background(), "123 Nowhere St Faketown")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCensusSingleGeocode_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(map[string]string{censusOneLineURL: srv.URL}),
		limiter:    newTestLimiter(),
	}

	_, err := g.geocodeCensus(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestCensusSingleGeocode_BadRequestNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(map[string]string{censusOneLineURL: srv.URL}),
		limiter:    newTestLimiter(),
	}

	_, err := g.geocodeCensus(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestCensusSingleGeocode_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(map[string]string{censusOneLineURL: srv.URL}),
		limiter:    newTestLimiter(),
	}

	_, err := g.geocodeCensus(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census parse response")
}
