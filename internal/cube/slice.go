// Package cube holds image cube metadata and the spectral arithmetic used to
// cut large cubes into channel blocks and random test cutouts.
package cube

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SpeedOfLight is the conversion constant between frequency and wavelength,
// in m/s.
const SpeedOfLight = 2.9979e8

// Info identifies an image cube and its spectral axis, as reported by the
// ivoa.obscore table.
type Info struct {
	ID       string  `validate:"required"`      // obs_publisher_did
	Channels int     `validate:"min=1"`         // em_xel
	EmMin    float64 `validate:"gt=0"`          // shortest wavelength, metres
	EmMax    float64 `validate:"gtfield=EmMin"` // longest wavelength, metres
}

// Validate validates the cube metadata using the validator.
func (c *Info) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// SliceCount returns the number of blocks produced when a spectral axis of
// the given channel count is sliced into groups of groupSize channels.
func SliceCount(channels, groupSize int) int {
	return (channels + groupSize - 1) / groupSize
}

// SliceBands splits the cube's spectral axis into blocks of at most
// groupSize channels, returning one BAND criterion "λ1 λ2" (wavelengths in
// metres, ascending) per block. The axis is walked from the last channel
// down, skipping one channel between blocks so adjacent output cubes do not
// overlap. The final block may reach past the start of the axis; the
// service clips it to the cube's actual coverage.
func (c *Info) SliceBands(groupSize int) ([]string, error) {
	if groupSize < 1 {
		return nil, fmt.Errorf("channel group size must be at least 1, got %d", groupSize)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cube metadata for %s: %w", c.ID, err)
	}

	minFreq := SpeedOfLight / c.EmMax
	maxFreq := SpeedOfLight / c.EmMin
	hzPerChannel := (maxFreq - minFreq) / float64(c.Channels)

	step := groupSize
	if step > c.Channels {
		step = c.Channels
	}

	blocks := SliceCount(c.Channels, groupSize)
	bands := make([]string, 0, blocks)
	pos := c.Channels
	for i := 0; i < blocks; i++ {
		f1 := minFreq + hzPerChannel*float64(pos)
		pos -= step
		f2 := minFreq + hzPerChannel*float64(pos)
		pos--
		bands = append(bands, fmt.Sprintf("%v %v", SpeedOfLight/f1, SpeedOfLight/f2))
	}
	return bands, nil
}

// Band returns a single BAND criterion covering the wavelength range
// [lower, upper] in metres.
func Band(lower, upper float64) (string, error) {
	if lower <= 0 || upper <= lower {
		return "", fmt.Errorf("invalid wavelength range [%v, %v]", lower, upper)
	}
	return fmt.Sprintf("%v %v", lower, upper), nil
}
