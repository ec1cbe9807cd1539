package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the Python service may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// ErrServiceNotFound is returned when mediapipe_service.py cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each frame is written as a 4-byte big-endian length followed by JPEG bytes;
// the service answers with one JSON line: {"hands": [{"points": [...], ...}]}.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection and stopped after
// idleShutdown without frames.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findFirst(serviceCandidates())
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := d.stdin.Write(length[:]); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	hands, err := decodeResponse(line)
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()
	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findFirst(venvCandidates())
	if pythonPath == "" {
		pythonPath = "python3"
	}

	cmd := exec.Command(pythonPath, append([]string{d.scriptPath}, d.args()...)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

// args renders the detection thresholds as command-line flags for the service.
func (d *MediaPipeDetector) args() []string {
	cfg := d.config
	if cfg.MaxHands <= 0 {
		cfg.MaxHands = DefaultConfig().MaxHands
	}
	return []string{
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', -1, 64),
	}
}

// shutdown must be called with d.mu held.
func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()

	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func serviceCandidates() []string {
	return []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(executableDir(), "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".handsign/scripts/mediapipe_service.py"),
	}
}

func venvCandidates() []string {
	return []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(executableDir(), "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handsign/venv/bin/python"),
	}
}

// findFirst returns the absolute form of the first existing path, or "".
func findFirst(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// decodeResponse parses one response line from the service.
func decodeResponse(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		hands = append(hands, h.toHandLandmarks())
	}
	return hands, nil
}

// toHandLandmarks copies the service output verbatim; the point count is
// checked later by Source so a short or long hand is never padded here.
func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Points:     make([]Point3D, len(h.Points)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i, p := range h.Points {
		lm.Points[i] = Point3D{X: p.X, Y: p.Y}
		if p.Z != nil {
			lm.Points[i].Z = *p.Z
		}
	}

	return lm
}
