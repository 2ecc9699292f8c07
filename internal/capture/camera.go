// Package capture provides video frame sources, motion gating and the
// feedback overlay, using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned when a non-looping video file has no more frames.
	ErrEndOfStream = errors.New("end of video stream")
	// ErrNoFrame is returned when the device delivers nothing usable.
	ErrNoFrame = errors.New("no frame captured")
)

// Camera is a source of BGR frames for the pose pipeline.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// videoSource reads from a webcam or a video file. Webcams are tuned to
// DefaultWidth x DefaultHeight at the current rate; files play at their own
// pace and are only throttled by the pipeline.
type videoSource struct {
	target any // device ID or file path
	device bool
	loop   bool

	mu  sync.Mutex
	vc  *gocv.VideoCapture
	fps int
}

// NewCamera returns a source for the webcam with the given device ID.
func NewCamera(deviceID int) Camera {
	return &videoSource{target: deviceID, device: true, fps: DefaultFPS}
}

// NewVideoFile returns a source playing path. With loop set, playback
// restarts at the first frame when the file ends.
func NewVideoFile(path string, loop bool) Camera {
	return &videoSource{target: path, loop: loop, fps: DefaultFPS}
}

func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(s.target)
	if err != nil {
		return fmt.Errorf("open video source %v: %w", s.target, err)
	}
	if s.device {
		vc.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		vc.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		vc.Set(gocv.VideoCaptureFPS, float64(s.fps))
	}
	s.vc = vc
	return nil
}

func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil
	}
	err := s.vc.Close()
	s.vc = nil
	return err
}

func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if s.grab(&mat) {
		return &mat, nil
	}

	if !s.device {
		if !s.loop {
			mat.Close()
			return nil, ErrEndOfStream
		}
		s.vc.Set(gocv.VideoCapturePosFrames, 0)
		if s.grab(&mat) {
			return &mat, nil
		}
	}

	mat.Close()
	return nil, ErrNoFrame
}

func (s *videoSource) grab(mat *gocv.Mat) bool {
	return s.vc.Read(mat) && !mat.Empty()
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (s *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fps = fps
	if s.vc != nil && s.device {
		s.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (s *videoSource) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vc != nil
}
