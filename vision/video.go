package vision

import (
	"fmt"
	"github.com/swdee/go-cvlab/preprocess"
	"gocv.io/x/gocv"
	"io"
	"strconv"
)

// maxEmptyReads is the number of consecutive empty frames accepted before
// the video is treated as ended
const maxEmptyReads = 30

// Video is a frame source reading from a video file or capture device
type Video struct {
	capture *gocv.VideoCapture
	scaler  *preprocess.Scaler
	// source is the file path or device id the video was opened from
	source string
}

// OpenVideo opens a video file, stream URL or numeric capture device id.
// Each frame read is resized by scaler when it is not nil.
func OpenVideo(source string, scaler *preprocess.Scaler) (*Video, error) {

	var device interface{} = source

	// a bare integer selects a capture device
	if id, err := strconv.Atoi(source); err == nil {
		device = id
	}

	capture, err := gocv.OpenVideoCapture(device)

	if err != nil {
		return nil, fmt.Errorf("error opening video source %s: %w", source, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video source %s could not be opened", source)
	}

	return &Video{
		capture: capture,
		scaler:  scaler,
		source:  source,
	}, nil
}

// Next returns the next frame of the video, the caller owns the frame.
// io.EOF is returned once the video is exhausted.
func (v *Video) Next() (Frame, error) {

	img := gocv.NewMat()

	// some containers yield empty frames between valid ones
	for empty := 0; ; empty++ {
		if ok := v.capture.Read(&img); !ok || empty >= maxEmptyReads {
			img.Close()
			return nil, io.EOF
		}

		if !img.Empty() {
			break
		}
	}

	if v.scaler != nil {
		v.scaler.ScaleInPlace(&img)
	}

	return NewCVFrame(img), nil
}

// Source returns the path or device the video was opened from
func (v *Video) Source() string {
	return v.source
}

// Close releases the capture device
func (v *Video) Close() error {
	return v.capture.Close()
}
