package tracker

import (
	"github.com/swdee/go-cvlab/geom"
)

// Object is a reference object being tracked through the video
type Object struct {
	// ID is the index of the reference image the object was seeded from.
	// It is fixed for the object's lifetime and selects its display color.
	ID int
	// Name is the reference image file name
	Name string
	// Points are the positions in the previous frame of the feature points
	// still being tracked on the object.  Points are only ever dropped once
	// tracking has started.
	Points []geom.Point
	// Quad is the object's boundary in the previous frame
	Quad geom.Quad
	// Frozen counts consecutive frames the boundary was carried forward
	// unchanged because no valid homography could be fitted
	Frozen int
}

// NewObject is a constructor function for the Object struct
func NewObject(id int, name string, points []geom.Point, quad geom.Quad) *Object {
	return &Object{
		ID:     id,
		Name:   name,
		Points: points,
		Quad:   quad,
	}
}

// Lost reports whether every feature point of the object has been dropped.
// A lost object keeps its last boundary for the rest of the video.
func (o *Object) Lost() bool {
	return len(o.Points) == 0
}
