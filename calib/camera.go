package calib

import (
	"fmt"
	"github.com/swdee/go-cvlab/geom"
	"gonum.org/v1/gonum/mat"
	"math"
)

// Camera holds pinhole intrinsics and lens distortion
type Camera struct {
	// Matrix is the 3x3 camera matrix [fx 0 cx; 0 fy cy; 0 0 1]
	Matrix *mat.Dense
	// Dist are the distortion coefficients k1, k2, p1, p2, k3.  Missing
	// trailing coefficients are treated as zero.
	Dist []float64
}

// NewCamera returns a camera with the given focal lengths and principal
// point
func NewCamera(fx, fy, cx, cy float64, dist ...float64) *Camera {
	return &Camera{
		Matrix: mat.NewDense(3, 3, []float64{
			fx, 0, cx,
			0, fy, cy,
			0, 0, 1,
		}),
		Dist: dist,
	}
}

// coeff returns distortion coefficient i or zero when not set
func (c *Camera) coeff(i int) float64 {
	if i < len(c.Dist) {
		return c.Dist[i]
	}
	return 0
}

// Pose is the rotation and translation of the board relative to the camera
// in one view
type Pose struct {
	// Rvec is the axis-angle rotation vector
	Rvec [3]float64
	Tvec [3]float64
}

// Rodrigues converts an axis-angle rotation vector to a 3x3 rotation matrix
func Rodrigues(r [3]float64) *mat.Dense {

	rot := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})

	theta := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])

	if theta < 1e-12 {
		return rot
	}

	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta

	// cross product matrix of the unit axis
	k := mat.NewDense(3, 3, []float64{
		0, -kz, ky,
		kz, 0, -kx,
		-ky, kx, 0,
	})

	var k2 mat.Dense
	k2.Mul(k, k)

	var s, c mat.Dense
	s.Scale(math.Sin(theta), k)
	c.Scale(1-math.Cos(theta), &k2)

	rot.Add(rot, &s)
	rot.Add(rot, &c)

	return rot
}

// Project maps board points into the image for the given pose applying
// radial and tangential distortion
func (c *Camera) Project(pts []Point3, pose Pose) ([]geom.Point, error) {

	if c.Matrix == nil {
		return nil, fmt.Errorf("camera matrix not set")
	}

	if r, cols := c.Matrix.Dims(); r != 3 || cols != 3 {
		return nil, fmt.Errorf("camera matrix must be 3x3, got %dx%d", r, cols)
	}

	rot := Rodrigues(pose.Rvec)

	fx, fy := c.Matrix.At(0, 0), c.Matrix.At(1, 1)
	cx, cy := c.Matrix.At(0, 2), c.Matrix.At(1, 2)
	k1, k2, p1, p2, k3 := c.coeff(0), c.coeff(1), c.coeff(2), c.coeff(3), c.coeff(4)

	out := make([]geom.Point, len(pts))
	world := mat.NewVecDense(3, nil)
	var cam mat.VecDense

	for i, p := range pts {
		world.SetVec(0, p.X)
		world.SetVec(1, p.Y)
		world.SetVec(2, p.Z)

		cam.MulVec(rot, world)

		z := cam.AtVec(2) + pose.Tvec[2]

		if math.Abs(z) < 1e-12 {
			return nil, fmt.Errorf("point %d lies on the camera plane", i)
		}

		x := (cam.AtVec(0) + pose.Tvec[0]) / z
		y := (cam.AtVec(1) + pose.Tvec[1]) / z

		r2 := x*x + y*y
		radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2

		xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
		yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y

		out[i] = geom.Point{X: fx*xd + cx, Y: fy*yd + cy}
	}

	return out, nil
}

// ReprojectionError returns the mean distance between observed corners and
// the corresponding projected board points
func ReprojectionError(observed, projected []geom.Point) (float64, error) {

	if len(observed) != len(projected) {
		return 0, fmt.Errorf("have %d observed and %d projected points",
			len(observed), len(projected))
	}

	if len(observed) == 0 {
		return 0, fmt.Errorf("no points to compare")
	}

	sum := 0.0

	for i := range observed {
		sum += observed[i].Dist(projected[i])
	}

	return sum / float64(len(observed)), nil
}
