package render

import (
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/tracker"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// ObjectStyle defines how tracked objects are drawn
type ObjectStyle struct {
	// PointRadius is the radius of the filled circle drawn at each tracked
	// point, zero hides the points
	PointRadius int
	// LineThickness of the boundary edges
	LineThickness int
	// Labels renders the object name above its boundary
	Labels bool
	Font   Font
}

// DefaultObjectStyle returns default object style settings
func DefaultObjectStyle() ObjectStyle {
	return ObjectStyle{
		PointRadius:   3,
		LineThickness: 4,
		Labels:        true,
		Font:          DefaultFont(),
	}
}

// Objects renders the tracked points and boundary of each object in its own
// color
func Objects(img *gocv.Mat, objs []*tracker.Object, style ObjectStyle) {

	// keep a record of all labels for later rendering
	labels := make([]boxLabel, 0, len(objs))

	for _, obj := range objs {

		clr := ObjectColor(obj.ID)

		if style.PointRadius > 0 {
			for _, p := range obj.Points {
				gocv.Circle(img, p.Image(), style.PointRadius, clr, -1)
			}
		}

		Quad(img, obj.Quad, clr, style.LineThickness)

		if !style.Labels {
			continue
		}

		text := obj.Name
		if obj.Frozen > 0 {
			text = fmt.Sprintf("%s (frozen %d)", obj.Name, obj.Frozen)
		}

		labels = append(labels, newBoxLabel(text, topLeft(obj.Quad), clr,
			style.Font, style.LineThickness))
	}

	// draw all labels last so they are the top most layer on the image and
	// don't get overlapped by another object's boundary
	for _, l := range labels {
		l.draw(img, style.Font)
	}
}

// Quad draws the four edges of a boundary
func Quad(img *gocv.Mat, q geom.Quad, clr color.RGBA, thickness int) {
	for _, e := range q.Edges() {
		gocv.Line(img, e[0].Image(), e[1].Image(), clr, thickness)
	}
}

// boxLabel defines where an object label should be rendered on the source
// image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel positions a label so it sits above anchor
func newBoxLabel(text string, anchor image.Point, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = anchor.X

	case Right:
		centerX = anchor.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = anchor.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			anchor.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, anchor.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, anchor.Y-font.BottomPad),
	}
}

func (l boxLabel) draw(img *gocv.Mat, font Font) {
	// draw box text gets written on
	gocv.Rectangle(img, l.rect, l.clr, -1)

	gocv.PutTextWithParams(img, l.text, l.textPos,
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}

// topLeft returns the quad corner nearest the top of the image, ties going
// to the leftmost
func topLeft(q geom.Quad) image.Point {

	best := q[0]

	for _, p := range q[1:] {
		if p.Y < best.Y || (p.Y == best.Y && p.X < best.X) {
			best = p
		}
	}

	return best.Image()
}
