// Package sky provides sky coordinate parsing and the POS criteria strings
// used by SIA2 and SODA requests.
package sky

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is a sky position in the ICRS frame, in decimal degrees.
type Coord struct {
	RA  float64
	Dec float64
}

// ParseCoord parses a right ascension / declination pair. Values containing
// ':' or 'h' are treated as sexagesimal, with the right ascension read in
// hours; anything else is read as decimal degrees.
func ParseCoord(ra, dec string) (Coord, error) {
	var c Coord
	var err error

	if strings.ContainsAny(ra, ":h") {
		hours, err := parseSexagesimal(ra)
		if err != nil {
			return Coord{}, fmt.Errorf("invalid right ascension %q: %w", ra, err)
		}
		c.RA = hours * 15
		c.Dec, err = parseSexagesimal(dec)
		if err != nil {
			return Coord{}, fmt.Errorf("invalid declination %q: %w", dec, err)
		}
	} else {
		c.RA, err = strconv.ParseFloat(ra, 64)
		if err != nil {
			return Coord{}, fmt.Errorf("invalid right ascension %q: %w", ra, err)
		}
		c.Dec, err = strconv.ParseFloat(dec, 64)
		if err != nil {
			return Coord{}, fmt.Errorf("invalid declination %q: %w", dec, err)
		}
	}

	if c.Dec < -90 || c.Dec > 90 {
		return Coord{}, fmt.Errorf("declination %v out of range [-90, 90]", c.Dec)
	}
	return c, nil
}

// Circle returns the POS criterion selecting a circle of the given radius
// (in degrees) around the coordinate, e.g. "CIRCLE 320.2 -43.5 0.1".
func (c Coord) Circle(radiusDeg float64) string {
	return fmt.Sprintf("CIRCLE %v %v %v", c.RA, c.Dec, radiusDeg)
}

// Circles builds one CIRCLE criterion per coordinate, all with the same
// radius. The result is usable as POS values for both SIA2 (restricting the
// search region) and SODA (selecting cutout regions).
func Circles(coords []Coord, radiusDeg float64) []string {
	criteria := make([]string, 0, len(coords))
	for _, c := range coords {
		criteria = append(criteria, c.Circle(radiusDeg))
	}
	return criteria
}

// parseSexagesimal reads a colon- or letter-separated angle such as
// "1:34:56.7", "-45:12:30" or "1h34m56s". The unit of the leading component
// (hours or degrees) is the caller's concern.
func parseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	// Normalize letter markers to colons: 1h34m56.7s -> 1:34:56.7
	replacer := strings.NewReplacer("h", ":", "d", ":", "m", ":", "s", "")
	s = strings.Trim(replacer.Replace(s), ":")

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected 2 or 3 components, got %d", len(parts))
	}

	value := 0.0
	divisor := 1.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, fmt.Errorf("bad component %q: %w", part, err)
		}
		if v < 0 {
			return 0, fmt.Errorf("component %q must not be signed", part)
		}
		value += v / divisor
		divisor *= 60
	}

	if negative {
		value = -value
	}
	return value, nil
}
