package vision

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cvlab/geom"
	"testing"
)

func TestPureFindHomography(t *testing.T) {

	p := NewPure(1)

	src := []geom.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {50, 50}, {20, 70}}
	dst := make([]geom.Point, len(src))

	for i, pt := range src {
		dst[i] = pt.Add(geom.Pt(5, -3))
	}

	h, mask, err := p.FindHomography(src, dst, AllPoints)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, h.At(0, 2), 1e-6)
	assert.InDelta(t, -3.0, h.At(1, 2), 1e-6)
	assert.Equal(t, []bool{true, true, true, true, true, true}, mask)

	out, err := p.PerspectiveTransform([]geom.Point{{10, 10}}, h)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, out[0].X, 1e-6)
	assert.InDelta(t, 7.0, out[0].Y, 1e-6)
}

func TestPureFindHomographyMask(t *testing.T) {

	p := NewPure(0.5)

	src := []geom.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {50, 50}}
	dst := []geom.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {50, 50}}

	_, mask, err := p.FindHomography(src, dst, RANSAC)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, true}, mask)
}

func TestPureFindHomographyTooFew(t *testing.T) {

	p := NewPure(1)

	_, _, err := p.FindHomography([]geom.Point{{0, 0}, {1, 1}}, []geom.Point{{0, 0}, {1, 1}}, AllPoints)
	assert.ErrorIs(t, err, geom.ErrTooFewPoints)
}

func TestMethodString(t *testing.T) {
	assert.Equal(t, "ransac", RANSAC.String())
	assert.Equal(t, "all-points", AllPoints.String())
	assert.Equal(t, "unknown", Method(42).String())
}
