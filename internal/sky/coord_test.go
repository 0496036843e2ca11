package sky

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoord_DecimalDegrees(t *testing.T) {
	c, err := ParseCoord("320.20", "-43.5")
	require.NoError(t, err)
	assert.InDelta(t, 320.20, c.RA, 1e-9)
	assert.InDelta(t, -43.5, c.Dec, 1e-9)
}

func TestParseCoord_Sexagesimal(t *testing.T) {
	// 1h34m56s = (1 + 34/60 + 56/3600) * 15 degrees
	c, err := ParseCoord("1:34:56", "-45:12:30")
	require.NoError(t, err)
	assert.InDelta(t, (1.0+34.0/60+56.0/3600)*15, c.RA, 1e-9)
	assert.InDelta(t, -(45.0+12.0/60+30.0/3600), c.Dec, 1e-9)
}

func TestParseCoord_HourMarkers(t *testing.T) {
	c, err := ParseCoord("1h34m56.7s", "+45d12m30s")
	require.NoError(t, err)
	assert.InDelta(t, (1.0+34.0/60+56.7/3600)*15, c.RA, 1e-9)
	assert.InDelta(t, 45.0+12.0/60+30.0/3600, c.Dec, 1e-9)
}

func TestParseCoord_TwoComponentSexagesimal(t *testing.T) {
	c, err := ParseCoord("12:30", "-10:15")
	require.NoError(t, err)
	assert.InDelta(t, 12.5*15, c.RA, 1e-9)
	assert.InDelta(t, -10.25, c.Dec, 1e-9)
}

func TestParseCoord_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		ra, dec string
	}{
		{"garbage ra", "not-a-number", "10"},
		{"garbage dec", "10", "not-a-number"},
		{"dec out of range", "10", "95"},
		{"dec below range sexagesimal", "1:30:00", "-95:00:00"},
		{"too many components", "1:2:3:4", "5:6:7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCoord(tc.ra, tc.dec)
			assert.Error(t, err)
		})
	}
}

func TestCircle(t *testing.T) {
	c := Coord{RA: 187.5, Dec: -55.0}
	assert.Equal(t, "CIRCLE 187.5 -55 0.1", c.Circle(0.1))
}

func TestCircles(t *testing.T) {
	coords := []Coord{{RA: 10, Dec: -5}, {RA: 20.5, Dec: 3.25}}
	criteria := Circles(coords, 1.0)
	require.Len(t, criteria, 2)
	assert.Equal(t, "CIRCLE 10 -5 1", criteria[0])
	assert.Equal(t, "CIRCLE 20.5 3.25 1", criteria[1])
}

func TestParseSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.txt")
	content := "# comment line\n" +
		"1:34:56 -45:12:30\n" +
		"\n" +
		"320.20 -43.5\n" +
		"only-one-field\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sources, err := ParseSourceFile(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.InDelta(t, (1.0+34.0/60+56.0/3600)*15, sources[0].RA, 1e-9)
	assert.InDelta(t, -43.5, sources[1].Dec, 1e-9)
}

func TestParseSourceFile_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc def\n"), 0o644))

	_, err := ParseSourceFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParseSourceFile_Missing(t *testing.T) {
	_, err := ParseSourceFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
