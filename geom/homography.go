package geom

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
	"math"
)

var (
	// ErrTooFewPoints is returned when fewer than four correspondences are
	// given to the homography estimator
	ErrTooFewPoints = errors.New("at least 4 point correspondences required")
	// ErrDegenerate is returned when the correspondences do not determine a
	// unique projective transform, eg: collinear or coincident points
	ErrDegenerate = errors.New("degenerate point configuration")
)

// rankTolerance is the smallest ratio allowed between the 8th and the
// largest singular value of the DLT design matrix
const rankTolerance = 1e-9

// Homography is a 3x3 projective transform stored row major
type Homography [9]float64

// Identity returns the identity homography
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation returns a homography translating points by dx, dy
func Translation(dx, dy float64) Homography {
	return Homography{1, 0, dx, 0, 1, dy, 0, 0, 1}
}

// At returns the element at row r, column c
func (h Homography) At(r, c int) float64 {
	return h[r*3+c]
}

// Dense returns the homography as a gonum matrix
func (h Homography) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

// Normalize scales the homography so that h[2][2] is 1
func (h Homography) Normalize() (Homography, error) {

	if math.Abs(h[8]) < 1e-12 {
		return h, ErrDegenerate
	}

	var out Homography

	for i := range h {
		out[i] = h[i] / h[8]
	}

	return out, nil
}

// Apply maps a single point through the homography.  False is returned when
// the point maps to infinity.
func (h Homography) Apply(p Point) (Point, bool) {

	w := h[6]*p.X + h[7]*p.Y + h[8]

	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}

	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Transform maps every point through the homography
func (h Homography) Transform(pts []Point) ([]Point, error) {

	out := make([]Point, len(pts))

	for i, p := range pts {
		q, ok := h.Apply(p)

		if !ok {
			return nil, fmt.Errorf("point %d (%.2f, %.2f) maps to infinity: %w",
				i, p.X, p.Y, ErrDegenerate)
		}

		out[i] = q
	}

	return out, nil
}

// TransformQuad maps the four corners of q through the homography
func (h Homography) TransformQuad(q Quad) (Quad, error) {

	pts, err := h.Transform(q[:])

	if err != nil {
		return q, err
	}

	var out Quad
	copy(out[:], pts)

	return out, nil
}

// EstimateHomography computes the least squares homography mapping src onto
// dst using the normalised Direct Linear Transform.  It uses every
// correspondence and performs no outlier rejection.
func EstimateHomography(src, dst []Point) (Homography, error) {

	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("mismatched correspondences, %d src and %d dst points",
			len(src), len(dst))
	}

	n := len(src)

	if n < 4 {
		return Homography{}, fmt.Errorf("got %d: %w", n, ErrTooFewPoints)
	}

	// condition both point sets so the design matrix is well scaled
	tSrc, err := normalisation(src)

	if err != nil {
		return Homography{}, err
	}

	tDst, err := normalisation(dst)

	if err != nil {
		return Homography{}, err
	}

	// build the 2n x 9 design matrix
	a := mat.NewDense(2*n, 9, nil)

	for i := 0; i < n; i++ {
		s, _ := tSrc.Apply(src[i])
		d, _ := tDst.Apply(dst[i])

		a.SetRow(2*i, []float64{
			-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X,
		})
		a.SetRow(2*i+1, []float64{
			0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y,
		})
	}

	var svd mat.SVD

	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Homography{}, fmt.Errorf("SVD factorisation failed: %w", ErrDegenerate)
	}

	// the solution is unique only when the design matrix has rank 8
	values := svd.Values(nil)

	if values[0] == 0 || values[7]/values[0] < rankTolerance {
		return Homography{}, ErrDegenerate
	}

	// right singular vector of the smallest singular value spans the null
	// space
	var v mat.Dense
	svd.VTo(&v)

	var hn Homography

	for i := 0; i < 9; i++ {
		hn[i] = v.At(i, 8)
	}

	// undo the normalisation, H = inv(Tdst) * Hn * Tsrc
	var tDstInv mat.Dense

	if err := tDstInv.Inverse(tDst.Dense()); err != nil {
		return Homography{}, fmt.Errorf("inverting normalisation: %w", ErrDegenerate)
	}

	var tmp, res mat.Dense
	tmp.Mul(&tDstInv, hn.Dense())
	res.Mul(&tmp, tSrc.Dense())

	var h Homography

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = res.At(r, c)
		}
	}

	if math.Abs(mat.Det(&res)) < 1e-12 {
		return Homography{}, ErrDegenerate
	}

	return h.Normalize()
}

// normalisation returns the similarity transform that moves the centroid of
// pts to the origin and scales their mean distance from it to sqrt(2)
func normalisation(pts []Point) (Homography, error) {

	var cx, cy float64

	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}

	n := float64(len(pts))
	cx /= n
	cy /= n

	var meanDist float64

	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}

	meanDist /= n

	if meanDist < 1e-12 || math.IsNaN(meanDist) {
		return Homography{}, fmt.Errorf("coincident points: %w", ErrDegenerate)
	}

	s := math.Sqrt2 / meanDist

	return Homography{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	}, nil
}
