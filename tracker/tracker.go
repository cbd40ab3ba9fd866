package tracker

import (
	"context"
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/vision"
	"golang.org/x/sync/errgroup"
	"log"
)

// minPoints is the number of correspondences needed to fit a homography
const minPoints = 4

// Reason describes why an object's boundary was not updated in a frame
type Reason int

const (
	// Updated means the boundary was moved by the frame's homography
	Updated Reason = iota
	// NoPoints means the object had no points left to track
	NoPoints
	// FlowFailed means the optical flow backend returned an error
	FlowFailed
	// TooFewPoints means fewer than four points survived optical flow
	TooFewPoints
	// HomographyFailed means the homography could not be estimated
	HomographyFailed
	// DegenerateQuad means the transformed boundary was not a valid convex
	// quadrilateral
	DegenerateQuad
)

func (r Reason) String() string {
	switch r {
	case Updated:
		return "updated"
	case NoPoints:
		return "no points"
	case FlowFailed:
		return "optical flow failed"
	case TooFewPoints:
		return "too few points"
	case HomographyFailed:
		return "homography failed"
	case DegenerateQuad:
		return "degenerate boundary"
	}
	return "unknown"
}

// Backend is the set of vision operations the per frame update needs
type Backend struct {
	Flow        vision.FlowTracker
	Estimator   vision.HomographyEstimator
	Transformer vision.PointTransformer
}

// Params configures the tracker
type Params struct {
	// MinQuadArea is the smallest boundary area in square pixels accepted
	// from a homography.  Smaller results are treated as estimation failures.
	MinQuadArea float64
	// Workers is the number of objects updated concurrently within a frame.
	// Values below 2 update objects sequentially.
	Workers int
	// Logger receives a line for each frozen boundary, nil disables logging
	Logger *log.Logger
}

// DefaultParams returns sequential updates with a 1 square pixel minimum
// boundary area
func DefaultParams() Params {
	return Params{
		MinQuadArea: 1,
		Workers:     1,
	}
}

// ObjectReport is the outcome of updating one object in one frame
type ObjectReport struct {
	ID int
	// Before is the number of points tracked entering the frame
	Before int
	// After is the number of points that survived optical flow
	After int
	// Reason is Updated when the boundary moved, otherwise why it was frozen
	Reason Reason
	// Homography is the transform applied to the boundary when Updated
	Homography geom.Homography
	// Err holds the backend error for FlowFailed, HomographyFailed and
	// DegenerateQuad
	Err error
}

// StepReport is the outcome of one frame update
type StepReport struct {
	// FrameID counts frames processed since the seed frame, starting at 1
	FrameID int
	Objects []ObjectReport
}

// Frozen returns the number of objects whose boundary was not updated
func (r StepReport) Frozen() int {
	n := 0

	for _, o := range r.Objects {
		if o.Reason != Updated {
			n++
		}
	}

	return n
}

// Tracker carries the tracked objects from frame to frame
type Tracker struct {
	backend Backend
	params  Params
	// prev is the previous frame, owned by the tracker
	prev    vision.Frame
	objects []*Object
	frameID int
}

// NewTracker creates a tracker starting from the seed frame first and the
// objects found in it.  The tracker takes ownership of first.
func NewTracker(backend Backend, first vision.Frame, objects []*Object,
	params Params) (*Tracker, error) {

	if backend.Flow == nil || backend.Estimator == nil || backend.Transformer == nil {
		return nil, errors.New("tracker backend is missing an operation")
	}

	if first == nil {
		return nil, errors.New("seed frame is nil")
	}

	return &Tracker{
		backend: backend,
		params:  params,
		prev:    first,
		objects: objects,
	}, nil
}

// Objects returns the tracked objects
func (t *Tracker) Objects() []*Object {
	return t.objects
}

// Frame returns the most recent frame, which remains owned by the tracker
func (t *Tracker) Frame() vision.Frame {
	return t.prev
}

// Close frees the frame held by the tracker
func (t *Tracker) Close() error {

	if t.prev == nil {
		return nil
	}

	err := t.prev.Close()
	t.prev = nil

	return err
}

// Step advances every object from the previous frame to frame.  Per object
// failures freeze that object's boundary and are reported, they never fail
// the step.  The tracker takes ownership of frame, which becomes the
// previous frame for the next call.
func (t *Tracker) Step(ctx context.Context, frame vision.Frame) (StepReport, error) {

	if frame == nil {
		return StepReport{}, errors.New("frame is nil")
	}

	if t.prev == nil {
		return StepReport{}, errors.New("tracker is closed")
	}

	if err := ctx.Err(); err != nil {
		frame.Close()
		return StepReport{}, err
	}

	report := StepReport{
		FrameID: t.frameID + 1,
		Objects: make([]ObjectReport, len(t.objects)),
	}

	if t.params.Workers > 1 && len(t.objects) > 1 {
		// each worker writes only its own object and report slot
		g := new(errgroup.Group)
		g.SetLimit(t.params.Workers)

		for i, obj := range t.objects {
			g.Go(func() error {
				report.Objects[i] = t.update(obj, frame)
				return nil
			})
		}

		g.Wait()

	} else {
		for i, obj := range t.objects {
			report.Objects[i] = t.update(obj, frame)
		}
	}

	for i, rep := range report.Objects {
		if rep.Reason != Updated {
			t.logf("frame %d object %d (%s) boundary frozen, %s: %d of %d points: %v",
				report.FrameID, rep.ID, t.objects[i].Name,
				rep.Reason, rep.After, rep.Before, rep.Err)
		}
	}

	// current frame becomes the previous frame
	if err := t.prev.Close(); err != nil {
		t.logf("error releasing previous frame: %v", err)
	}

	t.prev = frame
	t.frameID++

	return report, nil
}

// update advances a single object to frame
func (t *Tracker) update(obj *Object, frame vision.Frame) ObjectReport {

	rep := ObjectReport{
		ID:     obj.ID,
		Before: len(obj.Points),
	}

	if len(obj.Points) == 0 {
		return t.freeze(obj, rep, NoPoints, nil)
	}

	res, err := t.backend.Flow.OpticalFlow(t.prev, frame, obj.Points)

	if err == nil && (len(res.Status) != len(obj.Points) || len(res.Points) != len(obj.Points)) {
		err = fmt.Errorf("flow returned %d points and %d flags for %d inputs",
			len(res.Points), len(res.Status), len(obj.Points))
	}

	if err != nil {
		// positions in this frame are unknown so keep the old ones and retry
		// against the next frame
		rep.After = rep.Before
		return t.freeze(obj, rep, FlowFailed, err)
	}

	goodOld := make([]geom.Point, 0, len(obj.Points))
	goodNew := make([]geom.Point, 0, len(obj.Points))

	for j, ok := range res.Status {
		if ok {
			goodOld = append(goodOld, obj.Points[j])
			goodNew = append(goodNew, res.Points[j])
		}
	}

	// points that failed are dropped for good
	obj.Points = goodNew
	rep.After = len(goodNew)

	if len(goodOld) < minPoints {
		return t.freeze(obj, rep, TooFewPoints, geom.ErrTooFewPoints)
	}

	h, _, err := t.backend.Estimator.FindHomography(goodOld, goodNew, vision.AllPoints)

	if err != nil {
		return t.freeze(obj, rep, HomographyFailed, err)
	}

	quad, err := t.transformQuad(obj.Quad, h)

	if err != nil {
		return t.freeze(obj, rep, DegenerateQuad, err)
	}

	obj.Quad = quad
	obj.Frozen = 0

	rep.Reason = Updated
	rep.Homography = h

	return rep
}

// transformQuad projects the boundary through h and validates the result
func (t *Tracker) transformQuad(q geom.Quad, h geom.Homography) (geom.Quad, error) {

	pts, err := t.backend.Transformer.PerspectiveTransform(q.Points(), h)

	if err != nil {
		return q, err
	}

	if len(pts) != 4 {
		return q, fmt.Errorf("transform returned %d corners: %w", len(pts), geom.ErrDegenerate)
	}

	var out geom.Quad
	copy(out[:], pts)

	return out, ValidQuad(out, t.params.MinQuadArea)
}

// freeze keeps the object's boundary unchanged for this frame
func (t *Tracker) freeze(obj *Object, rep ObjectReport, reason Reason, err error) ObjectReport {
	obj.Frozen++
	rep.Reason = reason
	rep.Err = err
	return rep
}

func (t *Tracker) logf(format string, args ...interface{}) {
	if t.params.Logger != nil {
		t.params.Logger.Printf(format, args...)
	}
}

// ValidQuad checks that q is a finite, convex quadrilateral of at least
// minArea square pixels
func ValidQuad(q geom.Quad, minArea float64) error {

	if !q.Finite() {
		return fmt.Errorf("boundary has non finite corners: %w", geom.ErrDegenerate)
	}

	if !q.Convex() {
		return fmt.Errorf("boundary is not convex: %w", geom.ErrDegenerate)
	}

	if area := q.Area(); area < minArea {
		return fmt.Errorf("boundary area %.2f below %.2f: %w", area, minArea, geom.ErrDegenerate)
	}

	return nil
}
