package preprocess

import (
	"fmt"
	"gocv.io/x/gocv"
	"image"
)

// Scaler defines the struct used for scaling video frames and reference
// images by a fixed factor before processing
type Scaler struct {
	// factor is the multiplier applied to both width and height
	factor float64
	// interp is the interpolation used, area for shrinking and linear for
	// enlarging
	interp gocv.InterpolationFlags
}

// NewScaler returns a scaler that multiplies the image dimensions by factor.
// A factor of 0.5 halves each frame.
func NewScaler(factor float64) (*Scaler, error) {

	if factor <= 0 {
		return nil, fmt.Errorf("scale factor must be positive, got %v", factor)
	}

	s := &Scaler{
		factor: factor,
		interp: gocv.InterpolationLinear,
	}

	if factor < 1 {
		s.interp = gocv.InterpolationArea
	}

	return s, nil
}

// Factor returns the scale factor
func (s *Scaler) Factor() float64 {
	return s.factor
}

// Size returns the dimensions a src sized image is scaled to.  Fractional
// pixels are truncated and each side is kept at least 1 pixel.
func (s *Scaler) Size(src image.Point) image.Point {

	w := int(float64(src.X) * s.factor)
	h := int(float64(src.Y) * s.factor)

	if w < 1 {
		w = 1
	}

	if h < 1 {
		h = 1
	}

	return image.Pt(w, h)
}

// Scale resizes src into dest.  With a factor of 1 the image is copied
// unchanged.
func (s *Scaler) Scale(src gocv.Mat, dest *gocv.Mat) {

	if s.factor == 1 {
		src.CopyTo(dest)
		return
	}

	gocv.Resize(src, dest, s.Size(image.Pt(src.Cols(), src.Rows())),
		0, 0, s.interp)
}

// ScaleInPlace resizes img, replacing its contents
func (s *Scaler) ScaleInPlace(img *gocv.Mat) {

	if s.factor == 1 {
		return
	}

	tmp := gocv.NewMat()
	s.Scale(*img, &tmp)

	img.Close()
	*img = tmp
}
