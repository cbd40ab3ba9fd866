package calib

import (
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/preprocess"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
	"image"
	"log"
)

// ErrNoCorners is returned when no image yields a complete set of board
// corners
var ErrNoCorners = errors.New("no checkerboard corners found")

// View is a calibration image in which the board was found
type View struct {
	File    string
	Corners []geom.Point
}

// ViewResult is the calibrated pose and reprojection error of one view
type ViewResult struct {
	File string
	Pose Pose
	// Error is the mean reprojection error of the view's corners in pixels
	Error float64
}

// Result is the outcome of a camera calibration
type Result struct {
	// RMS is the overall reprojection error reported by the solver
	RMS    float64
	Camera *Camera
	Views  []ViewResult
	// MeanError is the mean of the per view errors
	MeanError float64
	// Best and Worst index the views with the lowest and highest error
	Best  int
	Worst int
}

// FindCorners locates the inner board corners in a grayscale image.  False
// is returned when the full set of corners was not found.
func FindCorners(gray gocv.Mat, board Board) ([]geom.Point, bool) {

	corners := gocv.NewMat()
	defer corners.Close()

	found := gocv.FindChessboardCorners(gray, image.Pt(board.Cols, board.Rows), &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)

	if !found || corners.Rows()*corners.Cols() != board.Corners() {
		return nil, false
	}

	pts := make([]geom.Point, 0, board.Corners())

	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		pts = append(pts, geom.Pt(float64(v[0]), float64(v[1])))
	}

	return pts, true
}

// DetectViews searches each image file for the board.  Images that can not
// be read, have no complete board or differ in size from the first usable
// image are skipped and logged.  The size of the usable images is returned.
func DetectViews(files []string, board Board, logger *log.Logger) ([]View, image.Point, error) {

	var size image.Point
	views := make([]View, 0, len(files))

	for _, file := range files {
		gray, err := preprocess.LoadGray(file)

		if err != nil {
			logf(logger, "skipping %s: %v", file, err)
			continue
		}

		dims := image.Pt(gray.Cols(), gray.Rows())
		corners, found := FindCorners(gray, board)
		gray.Close()

		if !found {
			logf(logger, "skipping %s: board not found", file)
			continue
		}

		if size == (image.Point{}) {
			size = dims
		} else if dims != size {
			logf(logger, "skipping %s: size %v differs from %v", file, dims, size)
			continue
		}

		views = append(views, View{File: file, Corners: corners})
	}

	if len(views) == 0 {
		return nil, size, fmt.Errorf("searched %d images: %w", len(files), ErrNoCorners)
	}

	return views, size, nil
}

// Calibrate solves for the camera intrinsics and distortion from the views
// and evaluates the reprojection error of each one
func Calibrate(views []View, board Board, size image.Point) (*Result, error) {

	if len(views) == 0 {
		return nil, ErrNoCorners
	}

	objPts := board.ObjectPoints()

	obj3f := make([]gocv.Point3f, len(objPts))
	for i, p := range objPts {
		obj3f[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}

	objVec := gocv.NewPoints3fVector()
	defer objVec.Close()

	imgVec := gocv.NewPoints2fVector()
	defer imgVec.Close()

	for _, v := range views {
		if len(v.Corners) != len(objPts) {
			return nil, fmt.Errorf("view %s has %d corners, board has %d",
				v.File, len(v.Corners), len(objPts))
		}

		ov := gocv.NewPoint3fVectorFromPoints(obj3f)
		objVec.Append(ov)
		ov.Close()

		pts := make([]gocv.Point2f, len(v.Corners))
		for i, c := range v.Corners {
			pts[i] = gocv.Point2f{X: float32(c.X), Y: float32(c.Y)}
		}

		iv := gocv.NewPoint2fVectorFromPoints(pts)
		imgVec.Append(iv)
		iv.Close()
	}

	camMat := gocv.NewMat()
	defer camMat.Close()

	distMat := gocv.NewMat()
	defer distMat.Close()

	rvecs := gocv.NewMat()
	defer rvecs.Close()

	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objVec, imgVec, size, &camMat, &distMat,
		&rvecs, &tvecs, gocv.CalibFlag(0))

	if camMat.Empty() || rvecs.Rows() != len(views) || tvecs.Rows() != len(views) {
		return nil, fmt.Errorf("calibration returned no solution for %d views", len(views))
	}

	cam := &Camera{
		Matrix: matToDense(camMat),
		Dist:   matToSlice(distMat),
	}

	poses := make([]Pose, len(views))

	for i := range views {
		r := rvecs.GetVecdAt(i, 0)
		t := tvecs.GetVecdAt(i, 0)
		poses[i] = Pose{
			Rvec: [3]float64{r[0], r[1], r[2]},
			Tvec: [3]float64{t[0], t[1], t[2]},
		}
	}

	res, err := Evaluate(cam, board, views, poses)

	if err != nil {
		return nil, err
	}

	res.RMS = rms

	return res, nil
}

// Evaluate projects the board for each view pose and measures the mean
// reprojection error per view, overall and the best and worst views
func Evaluate(cam *Camera, board Board, views []View, poses []Pose) (*Result, error) {

	if len(views) != len(poses) {
		return nil, fmt.Errorf("have %d views and %d poses", len(views), len(poses))
	}

	if len(views) == 0 {
		return nil, ErrNoCorners
	}

	objPts := board.ObjectPoints()
	res := &Result{
		Camera: cam,
		Views:  make([]ViewResult, len(views)),
	}

	sum := 0.0

	for i, v := range views {
		proj, err := cam.Project(objPts, poses[i])

		if err != nil {
			return nil, fmt.Errorf("projecting view %s: %w", v.File, err)
		}

		e, err := ReprojectionError(v.Corners, proj)

		if err != nil {
			return nil, fmt.Errorf("view %s: %w", v.File, err)
		}

		res.Views[i] = ViewResult{File: v.File, Pose: poses[i], Error: e}
		sum += e

		if e < res.Views[res.Best].Error {
			res.Best = i
		}

		if e > res.Views[res.Worst].Error {
			res.Worst = i
		}
	}

	res.MeanError = sum / float64(len(views))

	return res, nil
}

// Undistort returns a copy of img with the lens distortion removed.  The
// caller must Close the returned Mat.
func Undistort(img gocv.Mat, cam *Camera) gocv.Mat {

	camMat := denseToMat(cam.Matrix)
	defer camMat.Close()

	distMat := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	defer distMat.Close()

	for i := 0; i < 5; i++ {
		distMat.SetDoubleAt(0, i, cam.coeff(i))
	}

	out := gocv.NewMat()
	gocv.Undistort(img, &out, camMat, distMat, camMat)

	return out
}

func matToDense(m gocv.Mat) *mat.Dense {
	d := mat.NewDense(m.Rows(), m.Cols(), nil)

	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			d.Set(r, c, m.GetDoubleAt(r, c))
		}
	}

	return d
}

func denseToMat(d *mat.Dense) gocv.Mat {
	rows, cols := d.Dims()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.SetDoubleAt(r, c, d.At(r, c))
		}
	}

	return m
}

// matToSlice flattens a single row or column Mat of doubles
func matToSlice(m gocv.Mat) []float64 {
	out := make([]float64, 0, m.Rows()*m.Cols())

	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			out = append(out, m.GetDoubleAt(r, c))
		}
	}

	return out
}

func logf(logger *log.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
