package vision

import (
	"fmt"
	"github.com/swdee/go-cvlab/geom"
)

// Pure is a homography estimator and point transformer written in Go on top
// of package geom.  It needs no OpenCV and is used for the -homography=dlt
// option and in tests.
type Pure struct {
	// Threshold is the reprojection distance in pixels below which a
	// correspondence is reported as an inlier
	Threshold float64
}

// NewPure returns a Pure backend with the given inlier threshold
func NewPure(threshold float64) *Pure {
	return &Pure{Threshold: threshold}
}

// FindHomography fits a least squares homography to all correspondences.
// Pure has no robust estimator, for the RANSAC method the same fit is used
// and the mask marks the correspondences within Threshold of it.
func (p *Pure) FindHomography(src, dst []geom.Point,
	method Method) (geom.Homography, []bool, error) {

	h, err := geom.EstimateHomography(src, dst)

	if err != nil {
		return geom.Homography{}, nil, fmt.Errorf("dlt %s: %w", method, err)
	}

	mask := make([]bool, len(src))

	for i := range src {
		if method == AllPoints {
			mask[i] = true
			continue
		}

		q, ok := h.Apply(src[i])
		mask[i] = ok && q.Dist(dst[i]) <= p.Threshold
	}

	return h, mask, nil
}

// PerspectiveTransform maps pts through h
func (p *Pure) PerspectiveTransform(pts []geom.Point,
	h geom.Homography) ([]geom.Point, error) {
	return h.Transform(pts)
}
