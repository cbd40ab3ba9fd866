package render

import (
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// lineLength is how far either side of its closest point to the origin an
// infinite Hough line is drawn, long enough to cross any frame
const lineLength = 2000

// Lines draws each Hough line across the whole image
func Lines(img *gocv.Mat, lines []geom.Line, clr color.RGBA, thickness int) {
	for _, l := range lines {
		p1, p2 := l.Endpoints(lineLength)
		gocv.Line(img, p1.Image(), p2.Image(), clr, thickness)
	}
}

// Circles draws each circle, a negative thickness fills them
func Circles(img *gocv.Mat, circles []geom.Circle, clr color.RGBA, thickness int) {
	for _, c := range circles {
		r := int(c.Radius + 0.5)
		if r < 1 {
			r = 1
		}
		gocv.Circle(img, c.Center.Image(), r, clr, thickness)
	}
}

// Polygon fills the polygon poly blended over the image with the given alpha
// transparency, where 1 paints it opaque
func Polygon(img *gocv.Mat, poly []geom.Point, clr color.RGBA, alpha float64) {

	if len(poly) < 3 || alpha <= 0 {
		return
	}

	pts := make([]image.Point, len(poly))

	for i, p := range poly {
		pts[i] = p.Image()
	}

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()

	if alpha >= 1 {
		gocv.FillPoly(img, pv, clr)
		return
	}

	// paint on a copy and blend it back
	overlay := img.Clone()
	defer overlay.Close()

	gocv.FillPoly(&overlay, pv, clr)
	gocv.AddWeighted(overlay, alpha, *img, 1-alpha, 0, img)
}

// SaveImage writes the image to file, the format is chosen by the file
// extension
func SaveImage(filename string, img gocv.Mat) error {

	if gocv.IMWrite(filename, img) {
		return nil
	}

	return fmt.Errorf("failed to write image to file %s", filename)
}
