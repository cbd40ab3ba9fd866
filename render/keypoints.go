package render

import (
	"github.com/swdee/go-cvlab/vision"
	"gocv.io/x/gocv"
	"image/color"
)

// Keypoints renders detected features as open circles.  When scaled is true
// the circle radius follows the keypoint size, otherwise radius is used.
func Keypoints(img *gocv.Mat, kps []vision.Keypoint, clr color.RGBA,
	radius int, scaled bool) {

	for _, kp := range kps {
		r := radius

		if scaled && kp.Size > 0 {
			r = int(kp.Size/2 + 0.5)
		}

		if r < 1 {
			r = 1
		}

		gocv.Circle(img, kp.Pt.Image(), r, clr, 1)
	}
}
