package geom

import (
	"errors"
	"math"
)

// ErrParallel is returned when two lines do not cross
var ErrParallel = errors.New("lines are parallel")

// Line is a straight line in Hough normal form, the set of points where
// x*cos(Theta) + y*sin(Theta) = Rho
type Line struct {
	Rho   float64
	Theta float64
}

// Endpoints returns two points on the line, each at distance length from the
// foot of the perpendicular dropped from the origin
func (l Line) Endpoints(length float64) (Point, Point) {

	a, b := math.Cos(l.Theta), math.Sin(l.Theta)
	x0, y0 := a*l.Rho, b*l.Rho

	return Point{X: x0 - length*b, Y: y0 + length*a},
		Point{X: x0 + length*b, Y: y0 - length*a}
}

// Intersect returns the point where l and o cross
func (l Line) Intersect(o Line) (Point, error) {

	a1, b1 := math.Cos(l.Theta), math.Sin(l.Theta)
	a2, b2 := math.Cos(o.Theta), math.Sin(o.Theta)

	det := a1*b2 - a2*b1

	if math.Abs(det) < 1e-9 {
		return Point{}, ErrParallel
	}

	return Point{
		X: (l.Rho*b2 - o.Rho*b1) / det,
		Y: (a1*o.Rho - a2*l.Rho) / det,
	}, nil
}

// XAtY returns the x coordinate where the line crosses the horizontal y.
// False is returned for a horizontal line.
func (l Line) XAtY(y float64) (float64, bool) {

	a := math.Cos(l.Theta)

	if math.Abs(a) < 1e-9 {
		return 0, false
	}

	return (l.Rho - y*math.Sin(l.Theta)) / a, true
}

// Circle is a circle found by the Hough circle transform
type Circle struct {
	Center Point
	Radius float64
}
