package calib

import (
	"errors"
	"fmt"
)

// Point3 is a point in board coordinates
type Point3 struct {
	X, Y, Z float64
}

// Board describes a checkerboard calibration target
type Board struct {
	// Cols is the number of inner corners along a board row
	Cols int
	// Rows is the number of inner corners along a board column
	Rows int
	// SquareSize is the side length of one square in world units
	SquareSize float64
}

// DefaultBoard returns a board with 6x5 inner corners and 0.11 unit squares
func DefaultBoard() Board {
	return Board{
		Cols:       6,
		Rows:       5,
		SquareSize: 0.11,
	}
}

// Validate checks the board dimensions
func (b Board) Validate() error {

	if b.Cols < 2 || b.Rows < 2 {
		return fmt.Errorf("board needs at least 2x2 inner corners, got %dx%d", b.Cols, b.Rows)
	}

	if b.SquareSize <= 0 {
		return errors.New("board square size must be positive")
	}

	return nil
}

// Corners returns the number of inner corners on the board
func (b Board) Corners() int {
	return b.Cols * b.Rows
}

// ObjectPoints returns the board coordinates of every inner corner in row
// major order on the Z = 0 plane, matching the order corners are detected in
func (b Board) ObjectPoints() []Point3 {

	pts := make([]Point3, 0, b.Corners())

	for i := 0; i < b.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			pts = append(pts, Point3{
				X: b.SquareSize * float64(j),
				Y: b.SquareSize * float64(i),
			})
		}
	}

	return pts
}
