package render

import (
	"github.com/swdee/go-cvlab/vision"
	"gocv.io/x/gocv"
	"image"
)

// Matches returns a side by side image of the reference and frame with lines
// joining each matched keypoint pair, resized by scale.  The caller must
// Close the returned Mat.
func Matches(ref gocv.Mat, refKps []vision.Keypoint, frame gocv.Mat,
	frameKps []vision.Keypoint, matches []vision.Match, scale float64) gocv.Mat {

	out := gocv.NewMat()

	gocv.DrawMatches(ref, vision.ToCVKeypoints(refKps), frame,
		vision.ToCVKeypoints(frameKps), vision.ToCVMatches(matches), &out,
		Green, Blue, nil, gocv.DrawDefault)

	if scale > 0 && scale != 1 && !out.Empty() {
		gocv.Resize(out, &out, image.Point{}, scale, scale, gocv.InterpolationArea)
	}

	return out
}
