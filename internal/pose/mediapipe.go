package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	poseScriptName = "pose_service.py"
	idleShutdown   = 30 * time.Second
)

// MediaPipeDetector runs MediaPipe Pose in a Python subprocess. The process
// starts on the first frame and exits after idleShutdown without frames.
//
// Each request is a 4 byte big-endian length followed by a JPEG; each reply
// is one JSON line.
type MediaPipeDetector struct {
	thresholds Thresholds
	script     string

	mu   sync.Mutex
	proc *poseProcess
	idle *time.Timer
}

type poseProcess struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

// NewMediaPipeDetector locates the pose service script. It fails when the
// script is not installed.
func NewMediaPipeDetector(t Thresholds) (*MediaPipeDetector, error) {
	script := findPoseScript()
	if script == "" {
		return nil, fmt.Errorf("%s not found", poseScriptName)
	}
	return &MediaPipeDetector{thresholds: t, script: script}, nil
}

func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (JointSet, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer jpeg.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		if d.proc, err = d.spawn(); err != nil {
			return nil, err
		}
	}

	line, err := d.proc.roundTrip(jpeg.GetBytes())
	if err != nil {
		return nil, err
	}
	d.touch()

	return parsePoseResponse(line, d.thresholds.Visibility)
}

func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) spawn() (*poseProcess, error) {
	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, append([]string{d.script}, d.thresholds.serviceArgs()...)...)
	cmd.Stderr = os.Stderr
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pose service stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pose service stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pose service: %w", err)
	}

	log.Debugf("pose service started: %s (pid %d)", d.script, cmd.Process.Pid)
	return &poseProcess{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (p *poseProcess) roundTrip(jpeg []byte) ([]byte, error) {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(jpeg)))
	if _, err := p.in.Write(append(size[:], jpeg...)); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	line, err := p.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read pose reply: %w", err)
	}
	return line, nil
}

// stop closes stdin, which makes the service exit, and waits for it.
func (d *MediaPipeDetector) stop() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}

	d.proc.in.Close()
	err := d.proc.cmd.Wait()
	d.proc = nil

	log.Debugln("pose service stopped")
	return err
}

func (d *MediaPipeDetector) touch() {
	if d.idle != nil {
		d.idle.Reset(idleShutdown)
		return
	}
	d.idle = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stop(); err != nil {
			log.Warnf("pose service idle shutdown: %s", err)
		}
	})
}

// poseResponse is the JSON line written by the pose service.
// Landmarks is null when no person is in the frame.
type poseResponse struct {
	Landmarks []jsonLandmark `json:"landmarks"`
}

type jsonLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// parsePoseResponse converts a pose service reply to a JointSet, keeping only
// the joints of the vocabulary that are visible enough.
func parsePoseResponse(line []byte, minVisibility float64) (JointSet, error) {
	var resp poseResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(resp.Landmarks) == 0 {
		return nil, nil
	}

	joints := make(JointSet, len(mediaPipeIndex))
	for idx, joint := range mediaPipeIndex {
		if idx >= len(resp.Landmarks) {
			continue
		}
		lm := resp.Landmarks[idx]
		if lm.Visibility < minVisibility {
			continue
		}
		joints[joint] = Point2D{X: lm.X, Y: lm.Y}
	}

	return joints, nil
}

func findPoseScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", poseScriptName),
		filepath.Join("..", "scripts", poseScriptName),
		filepath.Join(execDir, "scripts", poseScriptName),
		filepath.Join(os.Getenv("HOME"), ".repcoach", "scripts", poseScriptName),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	return firstExisting([]string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".repcoach/venv/bin/python"),
	})
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
