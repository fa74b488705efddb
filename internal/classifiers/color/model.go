// Package color tags photos with the dominant colours of the image.
package color

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// Version is stored with classified photos so results can be recomputed
// when the model changes.
const Version = 20181130

const (
	DefaultImageSize = 32
	DefaultMinScore  = 0.005
	smoothingSize    = 1000
)

// Swatch is one named palette colour
type Swatch struct {
	Name     string
	RGB      [3]uint8
	Ordering int
}

// Palette is the fixed set of colours photos are matched against
var Palette = []Swatch{
	{"Red", [3]uint8{120, 4, 20}, 1},
	{"Dark orange", [3]uint8{162, 70, 21}, 2},
	{"Orange", [3]uint8{255, 124, 0}, 3},
	{"Pale pink", [3]uint8{255, 159, 156}, 4},
	{"Lemon yellow", [3]uint8{255, 250, 0}, 5},
	{"School bus yellow", [3]uint8{255, 207, 0}, 6},
	{"Green", [3]uint8{144, 226, 0}, 7},
	{"Dark lime green", [3]uint8{0, 171, 0}, 8},
	{"Cyan", [3]uint8{0, 178, 212}, 9},
	{"Blue", [3]uint8{0, 98, 198}, 10},
	{"Violet", [3]uint8{140, 32, 186}, 11},
	{"Pink", [3]uint8{245, 35, 148}, 12},
	{"White", [3]uint8{255, 255, 255}, 13},
	{"Gray", [3]uint8{124, 124, 124}, 14},
	{"Black", [3]uint8{0, 0, 0}, 15},
}

// Result is the share of the image closest to one palette colour
type Result struct {
	Name     string
	Ordering int
	Score    float64
}

// Model classifies images against Palette
type Model struct {
	ImageSize int
	MinScore  float64
	palette   []hsv
}

type hsv struct {
	h, s, v float64
}

func toHSV(r, g, b uint8) hsv {
	h, s, v := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
	return hsv{h: h / 360, s: s, v: v}
}

// NewModel returns a model using the default sample size and threshold
func NewModel() *Model {
	m := &Model{
		ImageSize: DefaultImageSize,
		MinScore:  DefaultMinScore,
		palette:   make([]hsv, len(Palette)),
	}
	for i, sw := range Palette {
		m.palette[i] = toHSV(sw.RGB[0], sw.RGB[1], sw.RGB[2])
	}
	return m
}

// distance scores how close two colours are, 1 meaning identical
func distance(a, b hsv) float64 {
	dh := 1 - abs(a.h-b.h)
	ds := 1 - abs(a.s-b.s)*0.5
	dv := 1 - abs(a.v-b.v)*0.25
	return dh * ds * dv
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// PredictReader decodes an image and classifies it
func (m *Model) PredictReader(r io.Reader) ([]Result, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return m.Predict(img), nil
}

// Predict returns the palette colours covering at least MinScore of the
// image, largest share first.
func (m *Model) Predict(img image.Image) []Result {
	size := m.ImageSize
	if size <= 0 {
		size = DefaultImageSize
	}

	// smooth away sensor noise, then sample without blending colours
	smooth := image.NewRGBA(image.Rect(0, 0, smoothingSize, smoothingSize))
	draw.CatmullRom.Scale(smooth, smooth.Bounds(), img, img.Bounds(), draw.Src, nil)
	small := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(small, small.Bounds(), smooth, smooth.Bounds(), draw.Src, nil)

	counts := make([]int, len(Palette))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBAModel.Convert(small.At(x, y)).(color.RGBA)
			if best := m.closest(toHSV(c.R, c.G, c.B)); best >= 0 {
				counts[best]++
			}
		}
	}

	total := float64(size * size)
	var results []Result
	for i, n := range counts {
		if n == 0 {
			continue
		}
		score := float64(n) / total
		if score >= m.MinScore {
			results = append(results, Result{Name: Palette[i].Name, Ordering: Palette[i].Ordering, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func (m *Model) closest(px hsv) int {
	best, bestScore := -1, 0.0
	for i, target := range m.palette {
		if score := distance(px, target); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
