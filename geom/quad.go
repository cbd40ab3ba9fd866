package geom

import (
	clipper "github.com/ctessum/go.clipper"
	"image"
	"math"
)

// fixedScale converts float coordinates to the integer grid used by clipper.
// Three decimal places is well below sub-pixel accuracy of any tracker
// output.
const fixedScale = 1000

// Quad is a closed quadrilateral given by its corners in drawing order.
// The closing edge runs from Quad[3] back to Quad[0].
type Quad [4]Point

// RectQuad returns the quadrilateral for an axis aligned w x h rectangle
// anchored at the origin, in the order top-left, top-right, bottom-right,
// bottom-left
func RectQuad(w, h float64) Quad {
	return Quad{
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}
}

// Points returns the corners as a slice
func (q Quad) Points() []Point {
	return q[:]
}

// Edges returns the four edges of the quad as start/end point pairs
func (q Quad) Edges() [4][2]Point {
	var edges [4][2]Point

	for i := 0; i < 4; i++ {
		edges[i] = [2]Point{q[i], q[(i+1)%4]}
	}

	return edges
}

// Centroid returns the mean of the four corners
func (q Quad) Centroid() Point {
	var c Point

	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}

	return Point{X: c.X / 4, Y: c.Y / 4}
}

// Convex reports whether the quad is a strictly convex polygon with no
// self intersection.  Both clockwise and counter-clockwise orders are
// accepted.
func (q Quad) Convex() bool {

	sign := 0

	for i := 0; i < 4; i++ {
		c := cross(q[i], q[(i+1)%4], q[(i+2)%4])

		if math.IsNaN(c) || c == 0 {
			return false
		}

		s := 1
		if c < 0 {
			s = -1
		}

		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}

	return true
}

// Area returns the unsigned area enclosed by the quad
func (q Quad) Area() float64 {
	return math.Abs(clipper.Area(toPath(q[:]))) / (fixedScale * fixedScale)
}

// Finite reports whether every coordinate is a finite number
func (q Quad) Finite() bool {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}

	return true
}

// Translate returns the quad shifted by d
func (q Quad) Translate(d Point) Quad {
	var out Quad

	for i, p := range q {
		out[i] = p.Add(d)
	}

	return out
}

// ClipPolygon intersects the polygon poly with the rectangle bounds and
// returns the visible part.  An empty result means the polygon lies
// entirely outside bounds.
func ClipPolygon(poly []Point, bounds image.Rectangle) []Point {

	if len(poly) < 3 || bounds.Empty() {
		return nil
	}

	rect := []Point{
		{X: float64(bounds.Min.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Min.Y)},
		{X: float64(bounds.Max.X), Y: float64(bounds.Max.Y)},
		{X: float64(bounds.Min.X), Y: float64(bounds.Max.Y)},
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(toPath(poly), clipper.PtSubject, true)
	c.AddPath(toPath(rect), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero,
		clipper.PftNonZero)

	if !ok || len(solution) == 0 {
		return nil
	}

	// a convex subject clipped by a rectangle yields a single polygon
	return fromPath(solution[0])
}

// toPath converts points to a clipper fixed point path
func toPath(pts []Point) clipper.Path {

	path := make(clipper.Path, 0, len(pts))

	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * fixedScale)),
			Y: clipper.CInt(math.Round(p.Y * fixedScale)),
		})
	}

	return path
}

// fromPath converts a clipper fixed point path back to points
func fromPath(path clipper.Path) []Point {

	pts := make([]Point, 0, len(path))

	for _, ip := range path {
		pts = append(pts, Point{
			X: float64(ip.X) / fixedScale,
			Y: float64(ip.Y) / fixedScale,
		})
	}

	return pts
}
