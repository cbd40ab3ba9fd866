package geom

import (
	"image"
	"math"
)

// Point is a 2D sub-pixel coordinate in image space
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the vector sum p+o
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns the vector difference p-o
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Dist returns the Euclidean distance between p and o
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Image rounds the point to the nearest integer pixel
func (p Point) Image() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// cross returns the z component of the cross product of (a-o) and (b-o)
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ClonePoints returns a copy of pts, nil stays nil
func ClonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}

	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
