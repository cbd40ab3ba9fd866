package vision

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cvlab/geom"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"testing"
)

// fakeFrame is a Frame not owned by the OpenCV backend
type fakeFrame struct{}

func (fakeFrame) Dims() image.Point { return image.Pt(1, 1) }
func (fakeFrame) Close() error      { return nil }

// checkerFrame renders white squares on black shifted by dx, dy
func checkerFrame(dx, dy int) *CVFrame {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC1)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for y := 40; y < 200; y += 60 {
		for x := 40; x < 280; x += 60 {
			gocv.Rectangle(&img, image.Rect(x+dx, y+dy, x+dx+30, y+dy+30), white, -1)
		}
	}

	return NewCVFrame(img)
}

func TestCVFindHomography(t *testing.T) {

	cv := NewCV(DefaultCVParams())
	defer cv.Close()

	src := []geom.Point{{0, 0}, {100, 0}, {100, 80}, {0, 80}, {50, 40}}
	dst := make([]geom.Point, len(src))

	for i, p := range src {
		dst[i] = p.Add(geom.Pt(10, 0))
	}

	h, mask, err := cv.FindHomography(src, dst, AllPoints)
	require.NoError(t, err)
	require.Len(t, mask, len(src))

	assert.InDelta(t, 10.0, h.At(0, 2)/h.At(2, 2), 1e-3)
	assert.InDelta(t, 0.0, h.At(1, 2)/h.At(2, 2), 1e-3)

	out, err := cv.PerspectiveTransform([]geom.Point{{20, 30}}, h)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 30.0, out[0].X, 1e-2)
	assert.InDelta(t, 30.0, out[0].Y, 1e-2)

	_, _, err = cv.FindHomography(src[:3], dst[:3], RANSAC)
	assert.ErrorIs(t, err, geom.ErrTooFewPoints)
}

func TestCVOpticalFlow(t *testing.T) {

	cv := NewCV(DefaultCVParams())
	defer cv.Close()

	prev := checkerFrame(0, 0)
	defer prev.Close()

	next := checkerFrame(3, 2)
	defer next.Close()

	t.Run("empty", func(t *testing.T) {
		res, err := cv.OpticalFlow(prev, next, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Points)
		assert.Empty(t, res.Status)
	})

	t.Run("shifted corners", func(t *testing.T) {
		pts := []geom.Point{{40, 40}, {70, 40}, {100, 100}, {130, 130}}

		res, err := cv.OpticalFlow(prev, next, pts)
		require.NoError(t, err)
		require.Len(t, res.Points, len(pts))
		require.Len(t, res.Status, len(pts))

		for i, ok := range res.Status {
			if !ok {
				continue
			}
			assert.InDelta(t, pts[i].X+3, res.Points[i].X, 0.5)
			assert.InDelta(t, pts[i].Y+2, res.Points[i].Y, 0.5)
		}
	})

	t.Run("foreign frame", func(t *testing.T) {
		_, err := cv.OpticalFlow(fakeFrame{}, next, []geom.Point{{1, 1}})
		assert.ErrorIs(t, err, ErrForeignFrame)
	})
}

func TestKeypointConversion(t *testing.T) {

	kps := []Keypoint{{Pt: geom.Pt(1.5, 2.5), Size: 3, Angle: 45, Response: 0.1, Octave: 2}}

	back := FromCVKeypoints(ToCVKeypoints(kps))
	assert.Equal(t, kps, back)

	dm := ToCVMatches([]Match{{QueryIdx: 1, TrainIdx: 4, Distance: 0.25}})
	assert.Equal(t, 1, dm[0].QueryIdx)
	assert.Equal(t, 4, dm[0].TrainIdx)
}
