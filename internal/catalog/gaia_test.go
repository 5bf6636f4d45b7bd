package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGaiaClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client, err := NewGaiaClient(Config{})
		require.NoError(t, err)

		assert.Equal(t, "gaia", client.Name())
		assert.InDelta(t, 2016.0, client.Epoch(), 1e-9)
		assert.Equal(t, "minpm=100.000", client.Params())
	})

	t.Run("proper motion floor override", func(t *testing.T) {
		client, err := NewGaiaClient(Config{MinProperMotion: 150})
		require.NoError(t, err)
		assert.Equal(t, "minpm=150.000", client.Params())
	})
}

func TestGaiaClientMatches(t *testing.T) {
	client, err := NewGaiaClient(Config{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		pmra  float64
		pmdec float64
		want  bool
	}{
		{"fast mover", 300, 400, true},
		{"single axis at the floor", 100, 0, true},
		{"components combine to the floor", 60, 80, true},
		{"just under the floor", 99.9, 0, false},
		{"negative components count by magnitude", -80, -60, true},
		{"missing astrometry", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.Matches(Source{ID: "x", PMRA: tt.pmra, PMDec: tt.pmdec})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGaiaClientSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostFormValue("QUERY")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"metadata": [
				{"name": "source_id", "datatype": "long"},
				{"name": "ra", "datatype": "double"},
				{"name": "dec", "datatype": "double"},
				{"name": "pmra", "datatype": "double"},
				{"name": "pmdec", "datatype": "double"}
			],
			"data": [
				[4295806720, 280.3, -30.1, 120.5, -80.25],
				[4295806721, 280.31, -30.11, null, null]
			]
		}`))
	}))
	defer server.Close()

	client, err := NewGaiaClient(Config{BaseURL: server.URL, Timeout: time.Second})
	require.NoError(t, err)

	cone := Cone{RA: 280.3, Dec: -30.1, Radius: unit.AngleFromSec(90)}
	sources, err := client.Search(context.Background(), cone)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "FROM gaiadr3.gaia_source")
	assert.Contains(t, gotQuery, "CIRCLE('ICRS', 280.30000000, -30.10000000, 0.02500000)")

	require.Len(t, sources, 2)
	assert.Equal(t, "4295806720", sources[0].ID)
	assert.InDelta(t, 120.5, sources[0].PMRA, 1e-9)
	assert.InDelta(t, -80.25, sources[0].PMDec, 1e-9)
	assert.True(t, client.Matches(sources[0]))

	// Null proper motions read as zero and never match.
	assert.InDelta(t, 0, sources[1].TotalProperMotion(), 1e-9)
	assert.False(t, client.Matches(sources[1]))
}
