package cube

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"casdaget/internal/schemas"
)

// dimensionsSchema is the JSON Schema every cube dimensions document must
// satisfy. Numeric values are carried as strings, matching the format the
// archive uses for cube metadata.
const dimensionsSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["axes", "corners", "centre"],
	"properties": {
		"axes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "numPixels", "pixelSize"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"numPixels": {"type": "string", "pattern": "^[0-9]+$"},
					"pixelSize": {"type": "string", "minLength": 1},
					"pixelUnit": {"type": "string"},
					"min": {"type": "string"},
					"max": {"type": "string"},
					"centre": {"type": "string"}
				}
			}
		},
		"corners": {
			"type": "array",
			"minItems": 4,
			"items": {
				"type": "object",
				"required": ["RA", "DEC"],
				"properties": {
					"RA": {"type": "string"},
					"DEC": {"type": "string"}
				}
			}
		},
		"centre": {
			"type": "object",
			"required": ["RA", "DEC"],
			"properties": {
				"RA": {"type": "string"},
				"DEC": {"type": "string"}
			}
		}
	}
}`

// defaultDimensionsJSON describes a 4096x4096 pixel, 16416 channel test cube.
const defaultDimensionsJSON = `{
	"axes": [
		{"name": "RA", "numPixels": "4096", "pixelSize": "5.5555555555560e-04", "pixelUnit": "deg"},
		{"name": "DEC", "numPixels": "4096", "pixelSize": "5.5555555555560e-04", "pixelUnit": "deg"},
		{"name": "STOKES", "numPixels": "1", "pixelSize": "1.0000000000000e+00", "pixelUnit": " ",
		 "min": "5.0000000000000e-01", "max": "1.5000000000000e+00", "centre": "1.0000000000000e+00"},
		{"name": "FREQ", "numPixels": "16416", "pixelSize": "1.0000000000000e+00", "pixelUnit": "Hz",
		 "min": "1.2699999995000e+09", "max": "1.2700164155000e+09", "centre": "1.2700082075000e+09"}
	],
	"corners": [
		{"RA": "1.8942941872444e+02", "DEC": "5.3846168509499e+01"},
		{"RA": "1.8557152279432e+02", "DEC": "5.3846183833748e+01"},
		{"RA": "1.8545899454910e+02", "DEC": "5.6120973603008e+01"},
		{"RA": "1.8954200183991e+02", "DEC": "5.6120957384947e+01"}
	],
	"centre": {"RA": "1.8750048428742e+02", "DEC": "5.4999722221261e+01"}
}`

// Axis is one axis of an image cube. Numeric fields are strings in the wire
// format and parsed on access.
type Axis struct {
	Name      string `json:"name"`
	NumPixels string `json:"numPixels"`
	PixelSize string `json:"pixelSize"`
	PixelUnit string `json:"pixelUnit"`
	Min       string `json:"min,omitempty"`
	Max       string `json:"max,omitempty"`
	Centre    string `json:"centre,omitempty"`
}

// Corner is a spatial position on the cube footprint.
type Corner struct {
	RA  string `json:"RA"`
	DEC string `json:"DEC"`
}

// Dimensions describes the axes and spatial footprint of an image cube.
type Dimensions struct {
	Axes    []Axis   `json:"axes"`
	Corners []Corner `json:"corners"`
	Centre  Corner   `json:"centre"`
}

// ParseDimensions validates a cube dimensions document against the embedded
// schema and decodes it.
func ParseDimensions(data []byte) (*Dimensions, error) {
	if err := schemas.ValidateJSONString(dimensionsSchema, string(data)); err != nil {
		return nil, fmt.Errorf("invalid cube dimensions document: %w", err)
	}
	var dims Dimensions
	if err := json.Unmarshal(data, &dims); err != nil {
		return nil, fmt.Errorf("failed to decode cube dimensions: %w", err)
	}
	return &dims, nil
}

// LoadDimensions reads and parses a cube dimensions document from a file.
func LoadDimensions(path string) (*Dimensions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cube dimensions %s: %w", path, err)
	}
	return ParseDimensions(data)
}

// DefaultDimensions returns the embedded test cube dimensions, used when no
// dimensions file is supplied.
func DefaultDimensions() (*Dimensions, error) {
	return ParseDimensions([]byte(defaultDimensionsJSON))
}

// Axis returns the named axis.
func (d *Dimensions) Axis(name string) (*Axis, error) {
	for i := range d.Axes {
		if d.Axes[i].Name == name {
			return &d.Axes[i], nil
		}
	}
	return nil, fmt.Errorf("cube dimensions have no %s axis", name)
}

// Pixels returns the axis length in pixels.
func (a *Axis) Pixels() (int, error) {
	v, err := strconv.Atoi(a.NumPixels)
	if err != nil {
		return 0, fmt.Errorf("axis %s: bad numPixels: %w", a.Name, err)
	}
	return v, nil
}

// Size returns the pixel size in the axis unit.
func (a *Axis) Size() (float64, error) {
	v, err := strconv.ParseFloat(a.PixelSize, 64)
	if err != nil {
		return 0, fmt.Errorf("axis %s: bad pixelSize: %w", a.Name, err)
	}
	return v, nil
}

// MinValue returns the lowest axis value covered by the cube.
func (a *Axis) MinValue() (float64, error) {
	v, err := strconv.ParseFloat(a.Min, 64)
	if err != nil {
		return 0, fmt.Errorf("axis %s: bad min: %w", a.Name, err)
	}
	return v, nil
}

// Cutout extents used by the random generator, in pixels.
const (
	largeSpatialPixels  = 100
	smallSpatialPixels  = 20
	largeSpectralPixels = 60
	smallSpectralPixels = 10
)

// RandomCutouts generates random cutout criteria inside the cube: numLarge
// large then numSmall small POS circles at random spatial positions, plus
// one wide and one narrow BAND range at random spectral positions. Circle
// centres keep clear of the cube edges so even large cutouts fit.
func RandomCutouts(dims *Dimensions, numSmall, numLarge int, rng *rand.Rand) (pos, bands []string, err error) {
	if numSmall < 0 || numLarge < 0 || numSmall+numLarge == 0 {
		return nil, nil, fmt.Errorf("cutout counts must be non-negative and sum to at least 1")
	}
	if len(dims.Corners) < 2 {
		return nil, nil, fmt.Errorf("cube dimensions carry no corner positions")
	}

	raAxis, err := dims.Axis("RA")
	if err != nil {
		return nil, nil, err
	}
	decAxis, err := dims.Axis("DEC")
	if err != nil {
		return nil, nil, err
	}
	freqAxis, err := dims.Axis("FREQ")
	if err != nil {
		return nil, nil, err
	}

	raStart, err := strconv.ParseFloat(dims.Corners[1].RA, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("bad corner RA: %w", err)
	}
	decStart, err := strconv.ParseFloat(dims.Corners[1].DEC, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("bad corner DEC: %w", err)
	}

	raSize, err := raAxis.Size()
	if err != nil {
		return nil, nil, err
	}
	decSize, err := decAxis.Size()
	if err != nil {
		return nil, nil, err
	}

	total := numSmall + numLarge
	raPixel, err := spatialRange(raAxis)
	if err != nil {
		return nil, nil, err
	}
	decPixel, err := spatialRange(decAxis)
	if err != nil {
		return nil, nil, err
	}

	pos = make([]string, 0, total)
	for i := 0; i < total; i++ {
		ra := float64(randBetween(rng, 10, raPixel))*raSize + raStart
		dec := float64(randBetween(rng, 10, decPixel))*decSize + decStart
		radiusPixels := smallSpatialPixels
		if i < numLarge {
			radiusPixels = largeSpatialPixels
		}
		radius := float64(radiusPixels) * raSize
		pos = append(pos, fmt.Sprintf("CIRCLE %v %v %v", ra, dec, radius))
	}

	freqPixels, err := freqAxis.Pixels()
	if err != nil {
		return nil, nil, err
	}
	freqSize, err := freqAxis.Size()
	if err != nil {
		return nil, nil, err
	}
	freqStart, err := freqAxis.MinValue()
	if err != nil {
		return nil, nil, err
	}
	maxOffset := freqPixels - largeSpectralPixels - 1
	if maxOffset < 0 {
		return nil, nil, fmt.Errorf("spectral axis too short for a %d channel cutout", largeSpectralPixels)
	}

	bands = make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		fMin := float64(randBetween(rng, 0, maxOffset))*freqSize + freqStart
		channels := smallSpectralPixels
		if i == 0 {
			channels = largeSpectralPixels
		}
		fMax := fMin + float64(channels-1)*freqSize
		bands = append(bands, fmt.Sprintf("%v %v", SpeedOfLight/fMax, SpeedOfLight/fMin))
	}

	return pos, bands, nil
}

// spatialRange returns the highest pixel index a cutout centre may use on a
// spatial axis, keeping a margin for the largest cutout.
func spatialRange(a *Axis) (int, error) {
	pixels, err := a.Pixels()
	if err != nil {
		return 0, err
	}
	max := pixels - largeSpatialPixels - 10
	if max < 10 {
		return 0, fmt.Errorf("axis %s too short for a %d pixel cutout", a.Name, largeSpatialPixels)
	}
	return max, nil
}

// randBetween returns a uniform random int in [low, high], inclusive of both
// bounds.
func randBetween(rng *rand.Rand, low, high int) int {
	return low + rng.Intn(high-low+1)
}
