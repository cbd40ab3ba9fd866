package tracker

import (
	"context"
	"errors"
	"fmt"
	"github.com/swdee/go-cvlab/vision"
	"io"
)

// ErrStop can be returned by a Visitor to end the run early without error
var ErrStop = errors.New("stop tracking")

// Source supplies video frames in order.  Next returns io.EOF once the
// stream is exhausted and the caller owns each returned frame.
type Source interface {
	Next() (vision.Frame, error)
}

// Visitor is called after each frame has been processed.  The frame is owned
// by the tracker and must not be retained or closed.
type Visitor func(frame vision.Frame, report StepReport) error

// Run reads frames from src until end of stream, cancellation of ctx or the
// visitor returning an error, stepping the tracker on each one.  End of
// stream and ErrStop return nil.
func (t *Tracker) Run(ctx context.Context, src Source, visit Visitor) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.Next()

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("error reading frame: %w", err)
		}

		report, err := t.Step(ctx, frame)

		if err != nil {
			return err
		}

		if visit == nil {
			continue
		}

		if err := visit(frame, report); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
