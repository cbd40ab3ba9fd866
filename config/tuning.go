package config

import (
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/calib"
	"github.com/swdee/go-cvlab/hough"
	"github.com/swdee/go-cvlab/tracker"
	"github.com/swdee/go-cvlab/vision"
	"image"
	"math"
)

// Homography backends selectable for tracking
const (
	HomographyCV  = "cv"
	HomographyDLT = "dlt"
)

// Flow holds the pyramidal Lucas-Kanade settings
type Flow struct {
	WinSize         int     `json:"win_size"`
	MaxLevel        int     `json:"max_level"`
	MaxCount        int     `json:"max_count"`
	Epsilon         float64 `json:"epsilon"`
	MinEigThreshold float64 `json:"min_eig_threshold"`
}

// Tracking holds the settings of the multi object tracker program
type Tracking struct {
	// Scale resizes every frame before processing
	Scale float64 `json:"scale"`
	// Workers is the number of objects updated concurrently
	Workers int `json:"workers"`
	// Homography selects the estimator used between frames, "cv" or "dlt"
	Homography string `json:"homography"`
	// MinInliers is the RANSAC inlier count needed to seed an object
	MinInliers int `json:"min_inliers"`
	// MinQuadArea is the smallest accepted boundary area in square pixels
	MinQuadArea float64 `json:"min_quad_area"`
	// RansacThreshold is the inlier reprojection distance in pixels
	RansacThreshold float64 `json:"ransac_threshold"`
	// TrailLength is the number of boundary centers drawn, 0 disables it
	TrailLength int `json:"trail_length"`
	// WaitMillis is the display delay between frames
	WaitMillis int `json:"wait_millis"`
	// MatchScale resizes the match visualisation windows
	MatchScale float64 `json:"match_scale"`
	Flow       Flow    `json:"flow"`
}

// DefaultTracking returns the default tracker settings
func DefaultTracking() *Tracking {
	fp := vision.DefaultFlowParams()
	cp := vision.DefaultCVParams()

	return &Tracking{
		Scale:           0.5,
		Workers:         1,
		Homography:      HomographyCV,
		MinInliers:      4,
		MinQuadArea:     1,
		RansacThreshold: cp.RansacThreshold,
		TrailLength:     0,
		WaitMillis:      10,
		MatchScale:      0.5,
		Flow: Flow{
			WinSize:         fp.WinSize.X,
			MaxLevel:        fp.MaxLevel,
			MaxCount:        fp.MaxCount,
			Epsilon:         fp.Epsilon,
			MinEigThreshold: fp.MinEigThreshold,
		},
	}
}

// Validate checks the tracker settings
func (t *Tracking) Validate() error {

	if t.Scale <= 0 || t.Scale > 4 {
		return fmt.Errorf("scale %g out of range (0, 4]", t.Scale)
	}

	if t.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if t.Homography != HomographyCV && t.Homography != HomographyDLT {
		return fmt.Errorf("unknown homography backend %q, use %q or %q",
			t.Homography, HomographyCV, HomographyDLT)
	}

	if t.MinInliers < 4 {
		return fmt.Errorf("min inliers must be at least 4, got %d", t.MinInliers)
	}

	if t.MinQuadArea < 0 || t.RansacThreshold <= 0 {
		return errors.New("min quad area and ransac threshold must not be negative")
	}

	if t.TrailLength < 0 || t.WaitMillis < 0 || t.MatchScale <= 0 {
		return errors.New("trail length, wait and match scale must be positive")
	}

	if t.Flow.WinSize < 3 || t.Flow.MaxLevel < 0 || t.Flow.MaxCount < 1 || t.Flow.Epsilon <= 0 {
		return errors.New("invalid optical flow settings")
	}

	return nil
}

// CVParams returns the OpenCV backend settings
func (t *Tracking) CVParams() vision.CVParams {
	p := vision.DefaultCVParams()
	p.RansacThreshold = t.RansacThreshold
	p.Flow = vision.FlowParams{
		WinSize:         image.Pt(t.Flow.WinSize, t.Flow.WinSize),
		MaxLevel:        t.Flow.MaxLevel,
		MaxCount:        t.Flow.MaxCount,
		Epsilon:         t.Flow.Epsilon,
		MinEigThreshold: t.Flow.MinEigThreshold,
	}
	return p
}

// TrackerParams returns the per frame update settings
func (t *Tracking) TrackerParams() tracker.Params {
	return tracker.Params{
		MinQuadArea: t.MinQuadArea,
		Workers:     t.Workers,
	}
}

// SeedParams returns the first frame seeding settings
func (t *Tracking) SeedParams() tracker.SeedParams {
	return tracker.SeedParams{
		MinInliers:  t.MinInliers,
		MinQuadArea: t.MinQuadArea,
	}
}

// Calibration holds the settings of the camera calibration program
type Calibration struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	SquareSize float64 `json:"square_size"`
	// DisplayScale resizes the best, worst and test image windows
	DisplayScale float64 `json:"display_scale"`
	// TestImage is undistorted with the calibration result
	TestImage string `json:"test_image"`
}

// DefaultCalibration returns the default calibration settings
func DefaultCalibration() *Calibration {
	b := calib.DefaultBoard()

	return &Calibration{
		Cols:         b.Cols,
		Rows:         b.Rows,
		SquareSize:   b.SquareSize,
		DisplayScale: 1.0 / 3,
		TestImage:    "../data/test_image.png",
	}
}

// Board returns the calibration target description
func (c *Calibration) Board() calib.Board {
	return calib.Board{Cols: c.Cols, Rows: c.Rows, SquareSize: c.SquareSize}
}

// Validate checks the calibration settings
func (c *Calibration) Validate() error {

	if err := c.Board().Validate(); err != nil {
		return err
	}

	if c.DisplayScale <= 0 {
		return errors.New("display scale must be positive")
	}

	return nil
}

// Hough holds the settings of the edge, line and circle detection program
type Hough struct {
	CannyLow      float64 `json:"canny_low"`
	CannyHigh     float64 `json:"canny_high"`
	Rho           float64 `json:"rho"`
	ThetaDegrees  float64 `json:"theta_degrees"`
	LineThreshold int     `json:"line_threshold"`
	MedianKsize   int     `json:"median_ksize"`
	CircleDP      float64 `json:"circle_dp"`
	CircleMinDist float64 `json:"circle_min_dist"`
	CircleParam1  float64 `json:"circle_param1"`
	CircleParam2  float64 `json:"circle_param2"`
	MinRadius     int     `json:"min_radius"`
	MaxRadius     int     `json:"max_radius"`
	// LaneAlpha is the opacity of the lane overlay between 0 and 1
	LaneAlpha float64 `json:"lane_alpha"`
}

// DefaultHough returns the default detection settings
func DefaultHough() *Hough {
	p := hough.DefaultParams()

	return &Hough{
		CannyLow:      float64(p.CannyLow),
		CannyHigh:     float64(p.CannyHigh),
		Rho:           float64(p.Rho),
		ThetaDegrees:  1,
		LineThreshold: p.LineThreshold,
		MedianKsize:   p.MedianKsize,
		CircleDP:      p.CircleDP,
		CircleMinDist: p.CircleMinDist,
		CircleParam1:  p.CircleParam1,
		CircleParam2:  p.CircleParam2,
		MinRadius:     p.MinRadius,
		MaxRadius:     p.MaxRadius,
		LaneAlpha:     1,
	}
}

// Params returns the detection parameters
func (h *Hough) Params() hough.Params {
	return hough.Params{
		CannyLow:      float32(h.CannyLow),
		CannyHigh:     float32(h.CannyHigh),
		Rho:           float32(h.Rho),
		Theta:         float32(h.ThetaDegrees * math.Pi / 180),
		LineThreshold: h.LineThreshold,
		MedianKsize:   h.MedianKsize,
		CircleDP:      h.CircleDP,
		CircleMinDist: h.CircleMinDist,
		CircleParam1:  h.CircleParam1,
		CircleParam2:  h.CircleParam2,
		MinRadius:     h.MinRadius,
		MaxRadius:     h.MaxRadius,
	}
}

// Validate checks the detection settings
func (h *Hough) Validate() error {

	if h.LaneAlpha < 0 || h.LaneAlpha > 1 {
		return fmt.Errorf("lane alpha %g out of range [0, 1]", h.LaneAlpha)
	}

	return h.Params().Validate()
}
