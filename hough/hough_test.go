package hough

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cvlab/geom"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestParamsValidate(t *testing.T) {

	require.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"canny order", func(p *Params) { p.CannyHigh = 10 }},
		{"rho", func(p *Params) { p.Rho = 0 }},
		{"line threshold", func(p *Params) { p.LineThreshold = 0 }},
		{"even median", func(p *Params) { p.MedianKsize = 4 }},
		{"circle dp", func(p *Params) { p.CircleDP = 0 }},
		{"radius range", func(p *Params) { p.MinRadius = 20 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.modify(&p)
			assert.Error(t, p.Validate())
		})
	}
}

// lineThrough returns the normal form line through a and b
func lineThrough(a, b geom.Point) geom.Line {

	theta := math.Atan2(b.X-a.X, -(b.Y - a.Y))
	rho := a.X*math.Cos(theta) + a.Y*math.Sin(theta)

	return geom.Line{Rho: rho, Theta: theta}
}

func TestLane(t *testing.T) {

	size := image.Pt(400, 301)

	// two lines meeting at (200, 100) and reaching the bottom row at x = 100
	// and x = 300
	left := lineThrough(geom.Pt(200, 100), geom.Pt(100, 300))
	right := lineThrough(geom.Pt(200, 100), geom.Pt(300, 300))

	tri, err := Lane([]geom.Line{left, right}, size)
	require.NoError(t, err)
	require.Len(t, tri, 3)

	want := []geom.Point{{200, 100}, {100, 300}, {300, 300}}

	for _, w := range want {
		found := false
		for _, p := range tri {
			if p.Dist(w) < 0.01 {
				found = true
			}
		}
		assert.True(t, found, "missing corner %v in %v", w, tri)
	}
}

func TestLaneClipped(t *testing.T) {

	size := image.Pt(400, 301)

	// apex above the image
	left := lineThrough(geom.Pt(200, -100), geom.Pt(100, 300))
	right := lineThrough(geom.Pt(200, -100), geom.Pt(300, 300))

	poly, err := Lane([]geom.Line{left, right}, size)
	require.NoError(t, err)

	// the tip is cut off leaving a quadrilateral inside the image
	assert.Len(t, poly, 4)

	for _, p := range poly {
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 300.0)
	}
}

func TestLaneErrors(t *testing.T) {

	size := image.Pt(100, 100)

	_, err := Lane(nil, size)
	assert.ErrorIs(t, err, ErrNoLane)

	_, err = Lane([]geom.Line{{Rho: 10, Theta: 0}}, size)
	assert.ErrorIs(t, err, ErrNoLane)

	// parallel
	_, err = Lane([]geom.Line{{Rho: 10, Theta: 0}, {Rho: 50, Theta: 0}}, size)
	assert.ErrorIs(t, err, ErrNoLane)

	// horizontal line never reaches the bottom row
	_, err = Lane([]geom.Line{{Rho: 10, Theta: math.Pi / 2}, {Rho: 50, Theta: 0}}, size)
	assert.ErrorIs(t, err, ErrNoLane)

	// crossing well off to the side of the image
	far := lineThrough(geom.Pt(-1000, -1000), geom.Pt(-900, 99))
	far2 := lineThrough(geom.Pt(-1000, -1000), geom.Pt(-1100, 99))
	_, err = Lane([]geom.Line{far, far2}, size)
	assert.ErrorIs(t, err, ErrNoLane)
}

func TestDetect(t *testing.T) {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Line(&img, image.Pt(0, 0), image.Pt(199, 199), white, 3)
	gocv.Circle(&img, image.Pt(150, 50), 8, white, -1)

	res, err := Detect(img, DefaultParams())
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, 200, res.Edges.Rows())
	require.NotEmpty(t, res.Lines)

	// the strongest line runs along the diagonal
	l := res.Lines[0]
	for _, p := range []geom.Point{{50, 50}, {150, 150}} {
		d := p.X*math.Cos(l.Theta) + p.Y*math.Sin(l.Theta) - l.Rho
		assert.Less(t, math.Abs(d), 4.0, "line %+v misses %v", l, p)
	}

	require.NotEmpty(t, res.Circles)

	found := false
	for _, c := range res.Circles {
		if c.Center.Dist(geom.Pt(150, 50)) < 3 {
			found = true
		}
	}
	assert.True(t, found, "circle not found in %v", res.Circles)
}

func TestDetectEmpty(t *testing.T) {

	img := gocv.NewMat()
	defer img.Close()

	_, err := Detect(img, DefaultParams())
	assert.Error(t, err)
}
