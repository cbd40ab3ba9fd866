package hough

import (
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"gocv.io/x/gocv"
	"image"
	"math"
)

// ErrNoLane is returned when the detected lines do not form a lane
var ErrNoLane = errors.New("no lane found")

// Params configures edge, line and circle detection
type Params struct {
	// CannyLow and CannyHigh are the hysteresis thresholds of the Canny edge
	// detector
	CannyLow  float32
	CannyHigh float32
	// Rho is the distance resolution of the line accumulator in pixels
	Rho float32
	// Theta is the angle resolution of the line accumulator in radians
	Theta float32
	// LineThreshold is the minimum number of accumulator votes for a line
	LineThreshold int
	// MedianKsize is the aperture of the median blur applied before circle
	// detection, it must be odd
	MedianKsize int
	// CircleDP is the inverse ratio of the circle accumulator resolution
	CircleDP float64
	// CircleMinDist is the minimum distance between circle centers
	CircleMinDist float64
	// CircleParam1 is the upper Canny threshold used by circle detection
	CircleParam1 float64
	// CircleParam2 is the accumulator threshold for circle centers
	CircleParam2 float64
	MinRadius    int
	MaxRadius    int
}

// DefaultParams returns the thresholds tuned for the road sample image
func DefaultParams() Params {
	return Params{
		CannyLow:      350,
		CannyHigh:     850,
		Rho:           1,
		Theta:         math.Pi / 180,
		LineThreshold: 130,
		MedianKsize:   3,
		CircleDP:      1,
		CircleMinDist: 1,
		CircleParam1:  100,
		CircleParam2:  25,
		MinRadius:     0,
		MaxRadius:     10,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {

	if p.CannyLow < 0 || p.CannyHigh < p.CannyLow {
		return fmt.Errorf("canny thresholds %.0f, %.0f out of order", p.CannyLow, p.CannyHigh)
	}

	if p.Rho <= 0 || p.Theta <= 0 {
		return errors.New("line accumulator resolution must be positive")
	}

	if p.LineThreshold < 1 {
		return errors.New("line threshold must be at least 1")
	}

	if p.MedianKsize < 1 || p.MedianKsize%2 == 0 {
		return fmt.Errorf("median aperture must be odd, got %d", p.MedianKsize)
	}

	if p.CircleDP <= 0 || p.CircleMinDist <= 0 {
		return errors.New("circle accumulator ratio and minimum distance must be positive")
	}

	if p.MinRadius < 0 || (p.MaxRadius > 0 && p.MaxRadius < p.MinRadius) {
		return fmt.Errorf("circle radius range %d..%d invalid", p.MinRadius, p.MaxRadius)
	}

	return nil
}

// Result holds the output of a detection run
type Result struct {
	// Edges is the Canny edge map
	Edges gocv.Mat
	// Lines are in detection order, strongest first
	Lines   []geom.Line
	Circles []geom.Circle
}

// Close frees the edge map
func (r *Result) Close() error {
	return r.Edges.Close()
}

// Detect finds edges and lines in img and circles in a median blurred copy of
// it.  img may be BGR or grayscale.  The caller must Close the Result.
func Detect(img gocv.Mat, p Params) (*Result, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if img.Empty() {
		return nil, errors.New("image is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	res := &Result{Edges: gocv.NewMat()}

	gocv.Canny(gray, &res.Edges, p.CannyLow, p.CannyHigh)

	lines := gocv.NewMat()
	defer lines.Close()

	gocv.HoughLines(res.Edges, &lines, p.Rho, p.Theta, p.LineThreshold)

	// one (rho, theta) pair per row
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVecfAt(i, 0)
		res.Lines = append(res.Lines, geom.Line{Rho: float64(v[0]), Theta: float64(v[1])})
	}

	blurred := gocv.NewMat()
	defer blurred.Close()

	gocv.MedianBlur(gray, &blurred, p.MedianKsize)

	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient, p.CircleDP,
		p.CircleMinDist, p.CircleParam1, p.CircleParam2, p.MinRadius, p.MaxRadius)

	// one (x, y, radius) triple per column
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		res.Circles = append(res.Circles, geom.Circle{
			Center: geom.Pt(float64(v[0]), float64(v[1])),
			Radius: float64(v[2]),
		})
	}

	return res, nil
}

// Lane returns the triangle formed by the first two lines and the bottom row
// of an image of the given size, clipped to the image.  The apex is where
// the lines cross and the base is where each line meets the bottom row.
func Lane(lines []geom.Line, size image.Point) ([]geom.Point, error) {

	if len(lines) < 2 {
		return nil, fmt.Errorf("need 2 lines, have %d: %w", len(lines), ErrNoLane)
	}

	apex, err := lines[0].Intersect(lines[1])

	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrNoLane)
	}

	bottom := float64(size.Y - 1)

	x1, ok1 := lines[0].XAtY(bottom)
	x2, ok2 := lines[1].XAtY(bottom)

	if !ok1 || !ok2 {
		return nil, fmt.Errorf("horizontal line never meets bottom row: %w", ErrNoLane)
	}

	tri := []geom.Point{apex, geom.Pt(x1, bottom), geom.Pt(x2, bottom)}

	clipped := geom.ClipPolygon(tri, image.Rect(0, 0, size.X, size.Y))

	if len(clipped) < 3 {
		return nil, fmt.Errorf("lane lies outside the image: %w", ErrNoLane)
	}

	return clipped, nil
}
