package cube

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casdaget/internal/schemas"
)

func TestDefaultDimensions(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)
	require.Len(t, dims.Axes, 4)
	require.Len(t, dims.Corners, 4)

	ra, err := dims.Axis("RA")
	require.NoError(t, err)
	pixels, err := ra.Pixels()
	require.NoError(t, err)
	assert.Equal(t, 4096, pixels)

	size, err := ra.Size()
	require.NoError(t, err)
	assert.InDelta(t, 5.5555555555560e-04, size, 1e-15)

	freq, err := dims.Axis("FREQ")
	require.NoError(t, err)
	min, err := freq.MinValue()
	require.NoError(t, err)
	assert.InDelta(t, 1.2699999995000e+09, min, 1)

	_, err = dims.Axis("VELOCITY")
	assert.Error(t, err)
}

func TestParseDimensions_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing corners", `{"axes": [{"name": "RA", "numPixels": "10", "pixelSize": "0.1"}], "centre": {"RA": "1", "DEC": "2"}}`},
		{"numeric numPixels", `{"axes": [{"name": "RA", "numPixels": 10, "pixelSize": "0.1"}], "corners": [], "centre": {"RA": "1", "DEC": "2"}}`},
		{"too few corners", `{"axes": [{"name": "RA", "numPixels": "10", "pixelSize": "0.1"}],
			"corners": [{"RA": "1", "DEC": "2"}], "centre": {"RA": "1", "DEC": "2"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDimensions([]byte(tc.doc))
			require.Error(t, err)

			var validationErr *schemas.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestParseDimensions_MalformedJSON(t *testing.T) {
	_, err := ParseDimensions([]byte("not json at all"))
	assert.Error(t, err)
}

func TestLoadDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dims.json")
	require.NoError(t, os.WriteFile(path, []byte(defaultDimensionsJSON), 0o644))

	dims, err := LoadDimensions(path)
	require.NoError(t, err)
	assert.Len(t, dims.Axes, 4)

	_, err = LoadDimensions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRandomCutouts(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	pos, bands, err := RandomCutouts(dims, 3, 2, rng)
	require.NoError(t, err)
	require.Len(t, pos, 5)
	require.Len(t, bands, 2)

	raSize := 5.5555555555560e-04
	for i, circle := range pos {
		parts := strings.Fields(circle)
		require.Len(t, parts, 4)
		require.Equal(t, "CIRCLE", parts[0])

		radius, err := strconv.ParseFloat(parts[3], 64)
		require.NoError(t, err)
		if i < 2 {
			assert.InDelta(t, largeSpatialPixels*raSize, radius, 1e-12, "circle %d should be large", i)
		} else {
			assert.InDelta(t, smallSpatialPixels*raSize, radius, 1e-12, "circle %d should be small", i)
		}
	}

	// Both spectral ranges must lie on the cube's frequency axis. One Hz of
	// slack covers the wavelength round trip.
	freqStart := 1.2699999995000e+09
	freqEnd := freqStart + 16416
	for i, band := range bands {
		lower, upper := parseBand(t, band)
		assert.Less(t, lower, upper, "band %d bounds must be ascending", i)
		assert.GreaterOrEqual(t, SpeedOfLight/upper, freqStart-1, "band %d", i)
		assert.LessOrEqual(t, SpeedOfLight/lower, freqEnd+1, "band %d", i)
	}

	// The first band is the wide one.
	lower0, upper0 := parseBand(t, bands[0])
	lower1, upper1 := parseBand(t, bands[1])
	width0 := SpeedOfLight/lower0 - SpeedOfLight/upper0
	width1 := SpeedOfLight/lower1 - SpeedOfLight/upper1
	assert.InEpsilon(t, float64(largeSpectralPixels-1), width0, 1e-6)
	assert.InEpsilon(t, float64(smallSpectralPixels-1), width1, 1e-6)
}

func TestRandomCutouts_Deterministic(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)

	pos1, bands1, err := RandomCutouts(dims, 2, 2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	pos2, bands2, err := RandomCutouts(dims, 2, 2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, pos1, pos2)
	assert.Equal(t, bands1, bands2)
}

func TestRandomCutouts_Invalid(t *testing.T) {
	dims, err := DefaultDimensions()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	_, _, err = RandomCutouts(dims, 0, 0, rng)
	assert.Error(t, err)

	smallCube := &Dimensions{
		Axes: []Axis{
			{Name: "RA", NumPixels: "64", PixelSize: "0.001"},
			{Name: "DEC", NumPixels: "64", PixelSize: "0.001"},
			{Name: "FREQ", NumPixels: "16416", PixelSize: "1.0", Min: "1.27e+09"},
		},
		Corners: []Corner{{RA: "10", DEC: "10"}, {RA: "11", DEC: "11"}},
		Centre:  Corner{RA: "10.5", DEC: "10.5"},
	}
	_, _, err = RandomCutouts(smallCube, 1, 1, rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
