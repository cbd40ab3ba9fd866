package render

import (
	"github.com/swdee/go-cvlab/tracker"
	"gocv.io/x/gocv"
	"image/color"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the object boundary.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the center circle should be the
	// same color as that of the object boundary.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// Trail draws the path of each object's boundary center on the source image
func Trail(img *gocv.Mat, objs []*tracker.Object, trail *tracker.Trail,
	style TrailStyle) {

	for _, obj := range objs {

		objClr := ObjectColor(obj.ID)

		// determine style colors to use
		lineClr := objClr
		circleClr := objClr

		if !style.LineSame {
			lineClr = style.LineColor
		}

		if !style.CircleSame {
			circleClr = style.CircleColor
		}

		points := trail.GetPoints(obj.ID)

		if len(points) < 2 {
			continue
		}

		for i := 1; i < len(points); i++ {
			gocv.Line(img, points[i-1].Image(), points[i].Image(),
				lineClr, style.LineThickness)
		}

		// draw center point circle on current boundary
		gocv.Circle(img, points[len(points)-1].Image(), style.CircleRadius, circleClr, -1)
	}
}
