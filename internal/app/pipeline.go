package app

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/repcoach/internal/capture"
)

// jpegQuality is the encoding quality of the annotated preview stream.
const jpegQuality = 80

// runPipeline is the capture loop feeding camera frames through detection
// and the exercise state machine.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. On motion, switch to active mode (ActiveFPS)
// 3. Run pose detection on every frame, idle or active
// 4. Feed joints to the state machine and publish the result
// 5. Draw feedback onto the frame and keep it as the latest preview
// 6. After IdleTimeout without motion, switch back to idle mode
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(a.gate.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Infoln("video stream ended")
				return
			}
			if err != nil {
				log.Errorf("read frame: %s", err)
				continue
			}

			motion, _ := a.motion.Detect(frame)
			if active, changed := a.gate.Observe(motion, time.Now()); changed {
				a.camera.SetFPS(a.gate.FPS())
				ticker.Reset(a.gate.Interval())
				if active {
					log.Debugln("switched to active mode")
				} else {
					log.Debugln("switched to idle mode")
				}
			}

			a.processFrame(frame)
			frame.Close()
		}
	}
}

// processFrame runs detection on one frame, updates the session and stores
// the annotated preview.
func (a *App) processFrame(frame *gocv.Mat) {
	start := time.Now()

	detector := a.Detector()
	if detector == nil {
		return
	}

	joints, err := detector.Detect(frame)
	if err != nil {
		log.Errorf("detect pose: %s", err)
		return
	}

	update := a.ProcessJoints(joints)

	capture.DrawFeedback(frame, joints, update.Result)
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		log.Errorf("encode preview: %s", err)
	} else {
		jpeg := make([]byte, buf.Len())
		copy(jpeg, buf.GetBytes())
		buf.Close()
		a.setJPEG(jpeg)
	}

	if a.config.Metrics != nil {
		a.config.Metrics.HistFrameDuration.Observe(time.Since(start).Seconds())
	}
}
