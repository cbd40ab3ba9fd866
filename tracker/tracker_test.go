package tracker

import (
	"context"
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cvlab/geom"
	"github.com/swdee/go-cvlab/vision"
	"image"
	"io"
	"sync/atomic"
	"testing"
)

// testFrame is a Frame that records being closed
type testFrame struct {
	closed atomic.Int32
}

func (f *testFrame) Dims() image.Point { return image.Pt(640, 480) }

func (f *testFrame) Close() error {
	f.closed.Add(1)
	return nil
}

// fakeFlow moves every point by a fixed offset and marks the points
// selected by drop as lost
type fakeFlow struct {
	dx, dy float64
	drop   func(i int) bool
	err    error
}

func (f *fakeFlow) OpticalFlow(prev, next vision.Frame, pts []geom.Point) (vision.FlowResult, error) {

	if f.err != nil {
		return vision.FlowResult{}, f.err
	}

	res := vision.FlowResult{
		Points: make([]geom.Point, len(pts)),
		Status: make([]bool, len(pts)),
		Errors: make([]float32, len(pts)),
	}

	for i, p := range pts {
		res.Points[i] = p.Add(geom.Pt(f.dx, f.dy))
		res.Status[i] = f.drop == nil || !f.drop(i)
	}

	return res, nil
}

// collapseTransformer maps every point onto the origin
type collapseTransformer struct{}

func (collapseTransformer) PerspectiveTransform(pts []geom.Point,
	h geom.Homography) ([]geom.Point, error) {
	return make([]geom.Point, len(pts)), nil
}

// frameSource returns n test frames then io.EOF
type frameSource struct {
	n      int
	frames []*testFrame
}

func (s *frameSource) Next() (vision.Frame, error) {
	if len(s.frames) >= s.n {
		return nil, io.EOF
	}

	f := &testFrame{}
	s.frames = append(s.frames, f)

	return f, nil
}

var approx = cmpopts.EquateApprox(0, 1e-6)

// gridObject returns an object with a 3x3 grid of points inside a 100x80
// boundary placed at x, y
func gridObject(id int, x, y float64) *Object {

	pts := make([]geom.Point, 0, 9)

	for _, py := range []float64{10, 40, 70} {
		for _, px := range []float64{10, 50, 90} {
			pts = append(pts, geom.Pt(x+px, y+py))
		}
	}

	quad := geom.RectQuad(100, 80).Translate(geom.Pt(x, y))

	return NewObject(id, "object", pts, quad)
}

func newTestTracker(t *testing.T, flow vision.FlowTracker, objs []*Object,
	params Params) (*Tracker, *testFrame) {

	first := &testFrame{}
	pure := vision.NewPure(1)

	tr, err := NewTracker(Backend{
		Flow:        flow,
		Estimator:   pure,
		Transformer: pure,
	}, first, objs, params)

	require.NoError(t, err)

	return tr, first
}

func TestNewTrackerValidation(t *testing.T) {

	_, err := NewTracker(Backend{}, &testFrame{}, nil, DefaultParams())
	assert.Error(t, err)

	pure := vision.NewPure(1)
	_, err = NewTracker(Backend{Flow: &fakeFlow{}, Estimator: pure, Transformer: pure},
		nil, nil, DefaultParams())
	assert.Error(t, err)
}

func TestStepStationary(t *testing.T) {

	obj := gridObject(0, 20, 30)
	want := obj.Quad

	tr, first := newTestTracker(t, &fakeFlow{}, []*Object{obj}, DefaultParams())
	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	require.Len(t, rep.Objects, 1)
	assert.Equal(t, Updated, rep.Objects[0].Reason)
	assert.Equal(t, 1, rep.FrameID)
	assert.Zero(t, rep.Frozen())

	if diff := cmp.Diff(want, obj.Quad, approx); diff != "" {
		t.Errorf("quad moved on stationary video (-want +got):\n%s", diff)
	}

	assert.EqualValues(t, 1, first.closed.Load(), "previous frame should be released")
}

func TestStepTranslation(t *testing.T) {

	obj := gridObject(0, 20, 30)
	start := obj.Quad

	tr, _ := newTestTracker(t, &fakeFlow{dx: 10}, []*Object{obj}, DefaultParams())
	defer tr.Close()

	for i := 1; i <= 3; i++ {
		rep, err := tr.Step(context.Background(), &testFrame{})
		require.NoError(t, err)
		require.Equal(t, Updated, rep.Objects[0].Reason)

		h, err := rep.Objects[0].Homography.Normalize()
		require.NoError(t, err)

		if diff := cmp.Diff(geom.Translation(10, 0), h, approx); diff != "" {
			t.Errorf("frame %d homography (-want +got):\n%s", i, diff)
		}

		want := start.Translate(geom.Pt(float64(10*i), 0))

		if diff := cmp.Diff(want, obj.Quad, approx); diff != "" {
			t.Errorf("frame %d quad (-want +got):\n%s", i, diff)
		}
	}

	assert.Len(t, obj.Points, 9)
}

func TestStepPointsShrink(t *testing.T) {

	obj := gridObject(0, 0, 0)
	flow := &fakeFlow{dx: 2, dy: 1, drop: func(i int) bool { return i == 4 }}

	tr, _ := newTestTracker(t, flow, []*Object{obj}, DefaultParams())
	defer tr.Close()

	before := geom.ClonePoints(obj.Points)

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	// surviving points are exactly the flagged ones in their original order
	want := make([]geom.Point, 0, len(before))

	for i, p := range before {
		if i != 4 {
			want = append(want, p.Add(geom.Pt(2, 1)))
		}
	}

	assert.Equal(t, want, obj.Points)
	assert.Equal(t, 9, rep.Objects[0].Before)
	assert.Equal(t, 8, rep.Objects[0].After)

	// counts never grow across frames
	prev := len(obj.Points)

	for i := 0; i < 5; i++ {
		_, err := tr.Step(context.Background(), &testFrame{})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(obj.Points), prev)
		prev = len(obj.Points)
	}
}

func TestStepTooFewPoints(t *testing.T) {

	obj := gridObject(3, 5, 5)
	want := obj.Quad

	// keep only 3 points
	flow := &fakeFlow{dx: 4, drop: func(i int) bool { return i > 2 }}

	tr, _ := newTestTracker(t, flow, []*Object{obj}, DefaultParams())
	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	or := rep.Objects[0]
	assert.Equal(t, 3, or.ID)
	assert.Equal(t, TooFewPoints, or.Reason)
	assert.ErrorIs(t, or.Err, geom.ErrTooFewPoints)
	assert.Equal(t, want, obj.Quad)
	assert.Len(t, obj.Points, 3)
	assert.Equal(t, 1, obj.Frozen)
	assert.Equal(t, 1, rep.Frozen())

	// drop the rest
	flow.drop = func(int) bool { return true }

	rep, err = tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)
	assert.Equal(t, TooFewPoints, rep.Objects[0].Reason)
	assert.True(t, obj.Lost())

	// nothing left to track
	rep, err = tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)
	assert.Equal(t, NoPoints, rep.Objects[0].Reason)
	assert.Equal(t, want, obj.Quad)
	assert.Equal(t, 3, obj.Frozen)
}

func TestStepFlowError(t *testing.T) {

	obj := gridObject(0, 0, 0)
	pts := geom.ClonePoints(obj.Points)
	want := obj.Quad

	flowErr := errors.New("flow exploded")
	flow := &fakeFlow{err: flowErr}

	tr, _ := newTestTracker(t, flow, []*Object{obj}, DefaultParams())
	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	assert.Equal(t, FlowFailed, rep.Objects[0].Reason)
	assert.ErrorIs(t, rep.Objects[0].Err, flowErr)
	assert.Equal(t, pts, obj.Points)
	assert.Equal(t, want, obj.Quad)

	// recovers once flow works again
	flow.err = nil
	flow.dx = 5

	rep, err = tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)
	assert.Equal(t, Updated, rep.Objects[0].Reason)
	assert.Zero(t, obj.Frozen)

	if diff := cmp.Diff(want.Translate(geom.Pt(5, 0)), obj.Quad, approx); diff != "" {
		t.Errorf("quad after recovery (-want +got):\n%s", diff)
	}
}

func TestStepDegenerateQuad(t *testing.T) {

	obj := gridObject(0, 0, 0)
	want := obj.Quad

	tr, err := NewTracker(Backend{
		Flow:        &fakeFlow{dx: 1},
		Estimator:   vision.NewPure(1),
		Transformer: collapseTransformer{},
	}, &testFrame{}, []*Object{obj}, DefaultParams())
	require.NoError(t, err)

	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	assert.Equal(t, DegenerateQuad, rep.Objects[0].Reason)
	assert.ErrorIs(t, rep.Objects[0].Err, geom.ErrDegenerate)
	assert.Equal(t, want, obj.Quad)
	// points still advance with the flow
	assert.Equal(t, geom.Pt(11, 10), obj.Points[0])
}

func TestStepHomographyFailure(t *testing.T) {

	// all points on one line give no unique homography
	pts := []geom.Point{{0, 0}, {10, 0}, {20, 0}, {30, 0}, {40, 0}}
	obj := NewObject(0, "line", pts, geom.RectQuad(50, 50))
	want := obj.Quad

	tr, _ := newTestTracker(t, &fakeFlow{dx: 1}, []*Object{obj}, DefaultParams())
	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	assert.Equal(t, HomographyFailed, rep.Objects[0].Reason)
	assert.Error(t, rep.Objects[0].Err)
	assert.Equal(t, want, obj.Quad)
}

func TestStepObjectsIndependent(t *testing.T) {

	good := gridObject(0, 0, 0)
	bad := NewObject(1, "few", []geom.Point{{1, 1}, {2, 2}}, geom.RectQuad(10, 10))

	tr, _ := newTestTracker(t, &fakeFlow{dx: 3}, []*Object{good, bad}, DefaultParams())
	defer tr.Close()

	rep, err := tr.Step(context.Background(), &testFrame{})
	require.NoError(t, err)

	assert.Equal(t, Updated, rep.Objects[0].Reason)
	assert.Equal(t, TooFewPoints, rep.Objects[1].Reason)
	assert.Equal(t, 1, rep.Frozen())

	for _, o := range tr.Objects() {
		assert.Len(t, o.Quad.Points(), 4)
	}
}

func TestStepWorkersMatchSequential(t *testing.T) {

	build := func() []*Object {
		objs := make([]*Object, 0, 6)
		for i := 0; i < 6; i++ {
			objs = append(objs, gridObject(i, float64(i*120), float64(i*10)))
		}
		return objs
	}

	flow := &fakeFlow{dx: 7, dy: -2, drop: func(i int) bool { return i == 0 }}

	seq, _ := newTestTracker(t, flow, build(), DefaultParams())
	defer seq.Close()

	par, _ := newTestTracker(t, flow, build(), Params{MinQuadArea: 1, Workers: 4})
	defer par.Close()

	for i := 0; i < 3; i++ {
		r1, err := seq.Step(context.Background(), &testFrame{})
		require.NoError(t, err)

		r2, err := par.Step(context.Background(), &testFrame{})
		require.NoError(t, err)

		if diff := cmp.Diff(r1, r2, approx, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("frame %d reports differ (-seq +par):\n%s", i, diff)
		}
	}

	if diff := cmp.Diff(seq.Objects(), par.Objects(), approx); diff != "" {
		t.Errorf("objects differ (-seq +par):\n%s", diff)
	}
}

func TestStepCancelled(t *testing.T) {

	tr, _ := newTestTracker(t, &fakeFlow{}, []*Object{gridObject(0, 0, 0)}, DefaultParams())
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := &testFrame{}

	_, err := tr.Step(ctx, frame)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, frame.closed.Load())
}

func TestTrackerClose(t *testing.T) {

	tr, first := newTestTracker(t, &fakeFlow{}, nil, DefaultParams())

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.EqualValues(t, 1, first.closed.Load())

	_, err := tr.Step(context.Background(), &testFrame{})
	assert.Error(t, err)
}

func TestRunZeroObjects(t *testing.T) {

	tr, _ := newTestTracker(t, &fakeFlow{}, nil, DefaultParams())
	defer tr.Close()

	src := &frameSource{n: 4}
	visits := 0

	err := tr.Run(context.Background(), src, func(frame vision.Frame, rep StepReport) error {
		visits++
		assert.Empty(t, rep.Objects)
		assert.Equal(t, visits, rep.FrameID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, visits)

	// every frame but the last has been released
	for _, f := range src.frames[:3] {
		assert.EqualValues(t, 1, f.closed.Load())
	}

	assert.Zero(t, src.frames[3].closed.Load())
	assert.Same(t, src.frames[3], tr.Frame())
}

func TestRunStop(t *testing.T) {

	tr, _ := newTestTracker(t, &fakeFlow{dx: 1}, []*Object{gridObject(0, 0, 0)}, DefaultParams())
	defer tr.Close()

	src := &frameSource{n: 10}

	err := tr.Run(context.Background(), src, func(frame vision.Frame, rep StepReport) error {
		if rep.FrameID == 2 {
			return ErrStop
		}
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, src.frames, 2)

	boom := errors.New("boom")

	err = tr.Run(context.Background(), src, func(vision.Frame, StepReport) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {

	tr, _ := newTestTracker(t, &fakeFlow{}, nil, DefaultParams())
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	src := &frameSource{n: 10}

	err := tr.Run(ctx, src, func(frame vision.Frame, rep StepReport) error {
		if rep.FrameID == 3 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, src.frames, 3)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "too few points", TooFewPoints.String())
	assert.Equal(t, "unknown", Reason(99).String())
}

func TestValidQuad(t *testing.T) {

	assert.NoError(t, ValidQuad(geom.RectQuad(10, 10), 1))
	assert.ErrorIs(t, ValidQuad(geom.RectQuad(0.5, 0.5), 1), geom.ErrDegenerate)

	bowtie := geom.Quad{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	assert.ErrorIs(t, ValidQuad(bowtie, 1), geom.ErrDegenerate)
}
