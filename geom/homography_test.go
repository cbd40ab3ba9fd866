package geom

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// approx compares floats to within a tolerance suitable for pixel results
var approx = cmpopts.EquateApprox(0, 1e-6)

func TestEstimateHomographyTranslation(t *testing.T) {

	src := []Point{{0, 0}, {100, 0}, {100, 50}, {0, 50}, {40, 20}}
	dst := make([]Point, len(src))

	for i, p := range src {
		dst[i] = p.Add(Pt(10, 0))
	}

	h, err := EstimateHomography(src, dst)
	require.NoError(t, err)

	if diff := cmp.Diff(Translation(10, 0), h, approx); diff != "" {
		t.Errorf("homography mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimateHomographyProjective(t *testing.T) {

	want := Homography{
		1.2, 0.1, 15,
		-0.05, 0.9, -7,
		0.0004, -0.0002, 1,
	}

	src := []Point{{0, 0}, {320, 0}, {320, 240}, {0, 240}, {160, 120}, {50, 200}}

	dst, err := want.Transform(src)
	require.NoError(t, err)

	got, err := EstimateHomography(src, dst)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("homography mismatch (-want +got):\n%s", diff)
	}

	// round trip a point that was not used for estimation
	p, ok := got.Apply(Pt(250, 30))
	require.True(t, ok)

	q, _ := want.Apply(Pt(250, 30))
	assert.InDelta(t, q.X, p.X, 1e-4)
	assert.InDelta(t, q.Y, p.Y, 1e-4)
}

func TestEstimateHomographyFailures(t *testing.T) {

	tests := []struct {
		name string
		src  []Point
		dst  []Point
		want error
	}{
		{
			name: "empty",
			want: ErrTooFewPoints,
		},
		{
			name: "three points",
			src:  []Point{{0, 0}, {1, 0}, {0, 1}},
			dst:  []Point{{0, 0}, {1, 0}, {0, 1}},
			want: ErrTooFewPoints,
		},
		{
			name: "collinear",
			src:  []Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
			dst:  []Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
			want: ErrDegenerate,
		},
		{
			name: "coincident",
			src:  []Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}},
			dst:  []Point{{1, 1}, {2, 1}, {2, 2}, {1, 2}},
			want: ErrDegenerate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EstimateHomography(tc.src, tc.dst)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("mismatched", func(t *testing.T) {
		_, err := EstimateHomography(make([]Point, 4), make([]Point, 5))
		assert.Error(t, err)
	})
}

func TestHomographyApplyAtInfinity(t *testing.T) {

	// maps the line x = 1 to infinity
	h := Homography{1, 0, 0, 0, 1, 0, -1, 0, 1}

	_, ok := h.Apply(Pt(1, 5))
	assert.False(t, ok)

	_, err := h.TransformQuad(Quad{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	assert.ErrorIs(t, err, ErrDegenerate)
}
