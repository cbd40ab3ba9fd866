package tracker

import (
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/vision"
)

// ErrObjectNotFound is returned for a reference object that could not be
// located in the first frame
var ErrObjectNotFound = errors.New("object not found in first frame")

// Reference is a reference image of an object to find and track
type Reference struct {
	Name  string
	Image vision.Frame
}

// SeedBackend is the set of vision operations needed to locate reference
// objects in the first frame
type SeedBackend interface {
	vision.FeatureExtractor
	vision.Matcher
	vision.HomographyEstimator
	vision.PointTransformer
}

// SeedParams configures locating objects in the first frame
type SeedParams struct {
	// MinInliers is the minimum number of RANSAC inliers for an object to be
	// considered found
	MinInliers int
	// MinQuadArea is the smallest initial boundary area in square pixels
	MinQuadArea float64
}

// DefaultSeedParams returns the default seeding parameters
func DefaultSeedParams() SeedParams {
	return SeedParams{
		MinInliers:  minPoints,
		MinQuadArea: 1,
	}
}

// Miss records a reference object excluded from tracking
type Miss struct {
	// Index of the reference the miss refers to
	Index int
	Name  string
	// Err wraps ErrObjectNotFound with the cause
	Err error
}

// Seeding holds the match details of a found object for visualisation
type Seeding struct {
	// RefKeypoints are the keypoints detected on the reference image
	RefKeypoints []vision.Keypoint
	// Matches are the RANSAC inlier matches from the reference keypoints
	// to the first frame keypoints
	Matches []vision.Match
	// Homography maps the reference image onto the first frame
	Homography geom.Homography
}

// SeedResult is the outcome of locating the reference objects in the first
// frame
type SeedResult struct {
	// Objects are the found objects, ordered by reference index
	Objects []*Object
	// Seedings holds the match details keyed by object ID
	Seedings map[int]Seeding
	// FrameKeypoints are the keypoints detected on the first frame
	FrameKeypoints []vision.Keypoint
	// Misses are the objects excluded from tracking
	Misses []Miss
}

// Seed locates each reference object in the first frame by matching SIFT
// features and fitting a RANSAC homography.  The RANSAC inliers become the
// object's tracked points and the reference image outline transformed by the
// homography becomes its boundary.  Objects that can not be located are
// reported in Misses and left out of Objects.  An error is only returned
// when the first frame itself can not be processed.
func Seed(b SeedBackend, refs []Reference, first vision.Frame,
	params SeedParams) (*SeedResult, error) {

	frameKps, frameDesc, err := b.DetectAndCompute(first)

	if err != nil {
		return nil, fmt.Errorf("error computing features of first frame: %w", err)
	}

	defer frameDesc.Close()

	res := &SeedResult{
		Objects:        make([]*Object, 0, len(refs)),
		Seedings:       make(map[int]Seeding, len(refs)),
		FrameKeypoints: frameKps,
	}

	for i, ref := range refs {
		obj, seeding, err := seedObject(b, i, ref, frameKps, frameDesc, params)

		if err != nil {
			res.Misses = append(res.Misses, Miss{
				Index: i,
				Name:  ref.Name,
				Err:   err,
			})
			continue
		}

		res.Objects = append(res.Objects, obj)
		res.Seedings[obj.ID] = seeding
	}

	return res, nil
}

// seedObject locates a single reference object in the first frame
func seedObject(b SeedBackend, id int, ref Reference, frameKps []vision.Keypoint,
	frameDesc vision.Descriptors, params SeedParams) (*Object, Seeding, error) {

	notFound := func(format string, args ...interface{}) (*Object, Seeding, error) {
		return nil, Seeding{}, fmt.Errorf("%w: %s", ErrObjectNotFound, fmt.Sprintf(format, args...))
	}

	if ref.Image == nil {
		return notFound("no reference image")
	}

	refKps, refDesc, err := b.DetectAndCompute(ref.Image)

	if err != nil {
		return notFound("error computing reference features: %v", err)
	}

	defer refDesc.Close()

	if len(refKps) == 0 || len(frameKps) == 0 {
		return notFound("no keypoints")
	}

	matches, err := b.Match(refDesc, frameDesc)

	if err != nil {
		return notFound("error matching features: %v", err)
	}

	if len(matches) < minPoints {
		return notFound("%d matches", len(matches))
	}

	src := make([]geom.Point, len(matches))
	dst := make([]geom.Point, len(matches))

	for j, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(refKps) ||
			m.TrainIdx < 0 || m.TrainIdx >= len(frameKps) {
			return notFound("match %d index out of range", j)
		}

		src[j] = refKps[m.QueryIdx].Pt
		dst[j] = frameKps[m.TrainIdx].Pt
	}

	h, mask, err := b.FindHomography(src, dst, vision.RANSAC)

	if err != nil {
		return notFound("error fitting homography: %v", err)
	}

	points := make([]geom.Point, 0, len(matches))
	good := make([]vision.Match, 0, len(matches))

	for j, inlier := range mask {
		if inlier && j < len(matches) {
			points = append(points, dst[j])
			good = append(good, matches[j])
		}
	}

	minInliers := params.MinInliers

	if minInliers < 1 {
		minInliers = 1
	}

	if len(points) < minInliers {
		return notFound("%d inliers of %d matches", len(points), len(matches))
	}

	dims := ref.Image.Dims()
	outline := geom.RectQuad(float64(dims.X), float64(dims.Y))

	corners, err := b.PerspectiveTransform(outline.Points(), h)

	if err != nil {
		return notFound("error transforming outline: %v", err)
	}

	if len(corners) != 4 {
		return notFound("outline transformed to %d corners", len(corners))
	}

	var quad geom.Quad
	copy(quad[:], corners)

	if err := ValidQuad(quad, params.MinQuadArea); err != nil {
		return notFound("%v", err)
	}

	obj := NewObject(id, ref.Name, points, quad)

	return obj, Seeding{
		RefKeypoints: refKps,
		Matches:      good,
		Homography:   h,
	}, nil
}
