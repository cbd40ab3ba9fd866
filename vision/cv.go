package vision

import (
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/preprocess"
	"gocv.io/x/gocv"
	"image"
)

// CVFrame is a Frame backed by a gocv Mat
type CVFrame struct {
	Mat gocv.Mat
}

// NewCVFrame wraps mat as a Frame, the frame takes ownership of mat
func NewCVFrame(mat gocv.Mat) *CVFrame {
	return &CVFrame{Mat: mat}
}

// Dims returns the width and height of the Mat
func (f *CVFrame) Dims() image.Point {
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Close frees the Mat
func (f *CVFrame) Close() error {
	return f.Mat.Close()
}

// FlowParams are the pyramidal Lucas-Kanade settings
type FlowParams struct {
	// WinSize is the search window at each pyramid level
	WinSize image.Point
	// MaxLevel is the number of pyramid levels above the base image
	MaxLevel int
	// MaxCount is the termination iteration limit
	MaxCount int
	// Epsilon is the termination search window movement
	Epsilon float64
	// MinEigThreshold filters out points in flat regions
	MinEigThreshold float64
}

// DefaultFlowParams returns a 7x7 window over 3 pyramid levels terminating
// after 10 iterations or 0.03 pixel movement
func DefaultFlowParams() FlowParams {
	return FlowParams{
		WinSize:         image.Pt(7, 7),
		MaxLevel:        3,
		MaxCount:        10,
		Epsilon:         0.03,
		MinEigThreshold: 1e-4,
	}
}

// CVParams configures the OpenCV backend
type CVParams struct {
	Flow FlowParams
	// RansacThreshold is the maximum reprojection error in pixels for a
	// correspondence to count as a RANSAC inlier
	RansacThreshold float64
	// RansacMaxIters is the maximum number of RANSAC iterations
	RansacMaxIters int
	// RansacConfidence is the RANSAC confidence level between 0 and 1
	RansacConfidence float64
}

// DefaultCVParams returns the default backend settings
func DefaultCVParams() CVParams {
	return CVParams{
		Flow:             DefaultFlowParams(),
		RansacThreshold:  3,
		RansacMaxIters:   2000,
		RansacConfidence: 0.995,
	}
}

// CV is the Backend implemented with OpenCV through gocv.  SIFT keypoints
// are matched with a cross checked L2 brute force matcher.
type CV struct {
	params  CVParams
	sift    gocv.SIFT
	matcher gocv.BFMatcher
}

// NewCV creates the OpenCV backend.  Call Close to release the detector and
// matcher.
func NewCV(params CVParams) *CV {
	return &CV{
		params:  params,
		sift:    gocv.NewSIFT(),
		matcher: gocv.NewBFMatcherWithParams(gocv.NormL2, true),
	}
}

// Close frees the OpenCV objects held by the backend
func (c *CV) Close() error {
	if err := c.sift.Close(); err != nil {
		return err
	}
	return c.matcher.Close()
}

// Decode loads an image file as a BGR frame
func (c *CV) Decode(path string) (Frame, error) {

	img, err := preprocess.LoadImage(path)

	if err != nil {
		return nil, err
	}

	return NewCVFrame(img), nil
}

// DetectAndCompute runs SIFT on the image
func (c *CV) DetectAndCompute(img Frame) ([]Keypoint, Descriptors, error) {

	mat, err := asMat(img)

	if err != nil {
		return nil, nil, err
	}

	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := c.sift.DetectAndCompute(mat, mask)

	return FromCVKeypoints(kps), &desc, nil
}

// Match finds the mutual nearest neighbour of each query descriptor
func (c *CV) Match(query, train Descriptors) ([]Match, error) {

	q, ok := query.(*gocv.Mat)

	if !ok {
		return nil, fmt.Errorf("query descriptors: %w", ErrForeignFrame)
	}

	tr, ok := train.(*gocv.Mat)

	if !ok {
		return nil, fmt.Errorf("train descriptors: %w", ErrForeignFrame)
	}

	if q.Empty() || tr.Empty() {
		return nil, nil
	}

	dmatches := c.matcher.Match(*q, *tr)
	matches := make([]Match, len(dmatches))

	for i, m := range dmatches {
		matches[i] = Match{
			QueryIdx: m.QueryIdx,
			TrainIdx: m.TrainIdx,
			Distance: m.Distance,
		}
	}

	return matches, nil
}

// FindHomography fits a homography with OpenCV.  Fewer than four
// correspondences are rejected before reaching OpenCV.
func (c *CV) FindHomography(src, dst []geom.Point,
	method Method) (geom.Homography, []bool, error) {

	if len(src) != len(dst) {
		return geom.Homography{}, nil, fmt.Errorf("mismatched correspondences, %d src and %d dst points",
			len(src), len(dst))
	}

	if len(src) < 4 {
		return geom.Homography{}, nil, fmt.Errorf("got %d: %w", len(src), geom.ErrTooFewPoints)
	}

	srcMat := pointsToMat(src)
	defer srcMat.Close()

	dstMat := pointsToMat(dst)
	defer dstMat.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	cvMethod := gocv.HomographyMethodAllPoints

	if method == RANSAC {
		cvMethod = gocv.HomographyMethodRANSAC
	}

	hMat := gocv.FindHomography(srcMat, dstMat, cvMethod, c.params.RansacThreshold,
		&mask, c.params.RansacMaxIters, c.params.RansacConfidence)
	defer hMat.Close()

	// OpenCV returns an empty matrix when no model could be fitted
	if hMat.Empty() || hMat.Rows() != 3 || hMat.Cols() != 3 {
		return geom.Homography{}, nil, fmt.Errorf("opencv %s: %w", method, geom.ErrDegenerate)
	}

	var h geom.Homography

	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			h[r*3+col] = hMat.GetDoubleAt(r, col)
		}
	}

	inliers := make([]bool, len(src))

	for i := range inliers {
		if mask.Empty() {
			inliers[i] = true
			continue
		}
		inliers[i] = mask.GetUCharAt(i, 0) != 0
	}

	return h, inliers, nil
}

// PerspectiveTransform maps pts through h with OpenCV
func (c *CV) PerspectiveTransform(pts []geom.Point,
	h geom.Homography) ([]geom.Point, error) {

	if len(pts) == 0 {
		return nil, nil
	}

	src := pointsToMat(pts)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	tm := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer tm.Close()

	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			tm.SetDoubleAt(r, col, h.At(r, col))
		}
	}

	gocv.PerspectiveTransform(src, &dst, tm)

	if dst.Rows() != len(pts) {
		return nil, fmt.Errorf("perspective transform returned %d points for %d inputs",
			dst.Rows(), len(pts))
	}

	return matToPoints(dst), nil
}

// OpticalFlow tracks pts from prev to next with pyramidal Lucas-Kanade
func (c *CV) OpticalFlow(prev, next Frame, pts []geom.Point) (FlowResult, error) {

	if len(pts) == 0 {
		return FlowResult{}, nil
	}

	prevMat, err := asMat(prev)

	if err != nil {
		return FlowResult{}, err
	}

	nextMat, err := asMat(next)

	if err != nil {
		return FlowResult{}, err
	}

	prevPts := pointsToMat(pts)
	defer prevPts.Close()

	nextPts := gocv.NewMat()
	defer nextPts.Close()

	status := gocv.NewMat()
	defer status.Close()

	errMat := gocv.NewMat()
	defer errMat.Close()

	fp := c.params.Flow
	criteria := gocv.NewTermCriteria(gocv.Count+gocv.EPS, fp.MaxCount, fp.Epsilon)

	gocv.CalcOpticalFlowPyrLKWithParams(prevMat, nextMat, prevPts, nextPts,
		&status, &errMat, fp.WinSize, fp.MaxLevel, criteria, 0, fp.MinEigThreshold)

	if nextPts.Rows() != len(pts) || status.Rows() != len(pts) {
		return FlowResult{}, fmt.Errorf("optical flow returned %d points and %d flags for %d inputs",
			nextPts.Rows(), status.Rows(), len(pts))
	}

	res := FlowResult{
		Points: matToPoints(nextPts),
		Status: make([]bool, len(pts)),
		Errors: make([]float32, len(pts)),
	}

	for i := range pts {
		res.Status[i] = status.GetUCharAt(i, 0) == 1

		if !errMat.Empty() {
			res.Errors[i] = errMat.GetFloatAt(i, 0)
		}
	}

	return res, nil
}

// asMat unwraps a CVFrame
func asMat(f Frame) (gocv.Mat, error) {

	cf, ok := f.(*CVFrame)

	if !ok {
		return gocv.Mat{}, ErrForeignFrame
	}

	return cf.Mat, nil
}

// pointsToMat converts points to an Nx1 CV_32FC2 Mat as expected by the
// OpenCV point functions
func pointsToMat(pts []geom.Point) gocv.Mat {

	cvPts := make([]gocv.Point2f, len(pts))

	for i, p := range pts {
		cvPts[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}

	vec := gocv.NewPoint2fVectorFromPoints(cvPts)
	defer vec.Close()

	return gocv.NewMatFromPoint2fVector(vec, true)
}

// matToPoints reads an Nx1 CV_32FC2 Mat into points
func matToPoints(m gocv.Mat) []geom.Point {

	pts := make([]geom.Point, m.Rows())

	for i := range pts {
		v := m.GetVecfAt(i, 0)
		pts[i] = geom.Point{X: float64(v[0]), Y: float64(v[1])}
	}

	return pts
}

// FromCVKeypoints converts gocv keypoints
func FromCVKeypoints(kps []gocv.KeyPoint) []Keypoint {

	out := make([]Keypoint, len(kps))

	for i, kp := range kps {
		out[i] = Keypoint{
			Pt:       geom.Point{X: kp.X, Y: kp.Y},
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}

	return out
}

// ToCVKeypoints converts keypoints back to gocv for drawing
func ToCVKeypoints(kps []Keypoint) []gocv.KeyPoint {

	out := make([]gocv.KeyPoint, len(kps))

	for i, kp := range kps {
		out[i] = gocv.KeyPoint{
			X:        kp.Pt.X,
			Y:        kp.Pt.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
			ClassID:  -1,
		}
	}

	return out
}

// ToCVMatches converts matches to gocv for drawing
func ToCVMatches(matches []Match) []gocv.DMatch {

	out := make([]gocv.DMatch, len(matches))

	for i, m := range matches {
		out[i] = gocv.DMatch{
			QueryIdx: m.QueryIdx,
			TrainIdx: m.TrainIdx,
			Distance: m.Distance,
		}
	}

	return out
}
