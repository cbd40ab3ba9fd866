package vision

import (
	"errors"
	"github.com/swdee/go-cvlab/geom"
	"image"
)

// ErrForeignFrame is returned when a backend is handed a Frame or
// Descriptors created by a different backend
var ErrForeignFrame = errors.New("frame or descriptors not created by this backend")

// Frame is an image buffer handle.  The creator of a Frame owns it and is
// responsible for calling Close.
type Frame interface {
	// Dims returns the width and height of the frame in pixels
	Dims() image.Point
	Close() error
}

// Descriptors is an opaque block of feature descriptors, one row per
// keypoint
type Descriptors interface {
	Rows() int
	Close() error
}

// Keypoint is a detected feature location
type Keypoint struct {
	Pt       geom.Point
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Match pairs the descriptor at QueryIdx of the query set with the one at
// TrainIdx of the train set
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Method selects how a homography is fitted
type Method int

const (
	// AllPoints fits a least squares homography to every correspondence
	AllPoints Method = iota
	// RANSAC fits a homography robust to outlier correspondences and reports
	// the inlier mask
	RANSAC
)

func (m Method) String() string {
	switch m {
	case AllPoints:
		return "all-points"
	case RANSAC:
		return "ransac"
	}
	return "unknown"
}

// FlowResult holds the outcome of tracking a set of points between frames.
// All slices have the same length as the input points.
type FlowResult struct {
	// Points are the predicted positions in the next frame
	Points []geom.Point
	// Status is true where the point was tracked successfully
	Status []bool
	// Errors is the per point tracking error reported by the tracker
	Errors []float32
}

// FeatureExtractor detects keypoints in an image and computes their
// descriptors
type FeatureExtractor interface {
	DetectAndCompute(img Frame) ([]Keypoint, Descriptors, error)
}

// Matcher finds mutual nearest neighbour matches between two descriptor
// sets
type Matcher interface {
	Match(query, train Descriptors) ([]Match, error)
}

// HomographyEstimator fits a projective transform mapping src onto dst.  The
// returned mask reports which correspondences were used as inliers.  Fewer
// than four correspondences or a degenerate configuration must return an
// error rather than a transform.
type HomographyEstimator interface {
	FindHomography(src, dst []geom.Point, method Method) (geom.Homography, []bool, error)
}

// PointTransformer applies a projective transform to a set of points
type PointTransformer interface {
	PerspectiveTransform(pts []geom.Point, h geom.Homography) ([]geom.Point, error)
}

// FlowTracker tracks points from one frame to the next.  An empty point set
// must yield an empty result.
type FlowTracker interface {
	OpticalFlow(prev, next Frame, pts []geom.Point) (FlowResult, error)
}

// Decoder loads an image file into a Frame
type Decoder interface {
	Decode(path string) (Frame, error)
}

// Backend is the complete set of vision capabilities used by the programs
type Backend interface {
	FeatureExtractor
	Matcher
	HomographyEstimator
	PointTransformer
	FlowTracker
	Decoder
}
