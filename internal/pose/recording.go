package pose

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// RecordedFrame is one line of a recording.
type RecordedFrame struct {
	// OffsetMs is the frame time relative to the start of the recording.
	OffsetMs int64 `json:"t_ms"`
	// Joints is null when nobody was detected in the frame.
	Joints JointSet `json:"joints"`
}

// Offset returns the frame offset as a duration.
func (f RecordedFrame) Offset() time.Duration {
	return time.Duration(f.OffsetMs) * time.Millisecond
}

// Recording is a sequence of timestamped joint sets, stored as JSON lines.
type Recording struct {
	Frames []RecordedFrame
}

// ReadRecording parses a JSON-lines recording. Blank lines are skipped,
// unknown joint names are rejected and offsets must not go backwards.
func ReadRecording(r io.Reader) (*Recording, error) {
	rec := &Recording{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	var last int64
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame RecordedFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		for joint := range frame.Joints {
			if !joint.Valid() {
				return nil, fmt.Errorf("line %d: unknown joint %q", lineNo, joint)
			}
		}

		if frame.OffsetMs < last {
			return nil, fmt.Errorf("line %d: offset %dms before previous frame %dms", lineNo, frame.OffsetMs, last)
		}
		last = frame.OffsetMs

		rec.Frames = append(rec.Frames, frame)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return rec, nil
}

// LoadRecording reads a recording from a file.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	return ReadRecording(f)
}

// WriteTo writes the recording as JSON lines.
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := json.NewEncoder(cw)
	for _, frame := range r.Frames {
		if err := enc.Encode(frame); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// Duration returns the offset of the last frame.
func (r *Recording) Duration() time.Duration {
	if len(r.Frames) == 0 {
		return 0
	}
	return r.Frames[len(r.Frames)-1].Offset()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
