package transcription

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-adwatch/config"
	apperrors "github.com/nijaru/yt-adwatch/errors"
)

const (
	maxScriptLine   = 16 << 20
	shutdownTimeout = 10 * time.Second
)

var jsonObject = regexp.MustCompile(`\{.*\}`)

// ScriptRecognizer keeps one faster-whisper process (`uv run <script>
// --serve`) alive for the whole run, so the model is loaded once. Requests
// are JSON lines on stdin; each gets one JSON line back on stdout. Lines with
// a status field are progress messages.
type ScriptRecognizer struct {
	uvPath      string
	scriptPath  string
	model       string
	language    string
	device      string
	computeType string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	lines  *bufio.Scanner
	stderr *io.PipeWriter
}

type scriptRequest struct {
	Audio string `json:"audio"`
}

type scriptResponse struct {
	Status    string    `json:"status,omitempty"`
	ModelName string    `json:"model_name"`
	Language  string    `json:"language"`
	Segments  []Segment `json:"segments"`
	Error     string    `json:"error,omitempty"`
}

func NewScriptRecognizer(cfg config.STTConfig) (*ScriptRecognizer, error) {
	const op = "transcription.NewScriptRecognizer"

	if _, err := exec.LookPath(cfg.UVPath); err != nil {
		return nil, apperrors.Config(op, err, "uv executable not found")
	}
	if _, err := os.Stat(cfg.ScriptPath); err != nil {
		return nil, apperrors.Config(op, err, "transcription script not found: "+cfg.ScriptPath)
	}

	r := newScriptRecognizer(cfg)
	if err := r.start(); err != nil {
		return nil, apperrors.Transcription(op, err, "failed to start transcription script")
	}
	return r, nil
}

func newScriptRecognizer(cfg config.STTConfig) *ScriptRecognizer {
	return &ScriptRecognizer{
		uvPath:      cfg.UVPath,
		scriptPath:  cfg.ScriptPath,
		model:       cfg.Model,
		language:    cfg.Language,
		device:      cfg.Device,
		computeType: cfg.ComputeType,
	}
}

func (r *ScriptRecognizer) ModelName() string {
	return r.model
}

func (r *ScriptRecognizer) args() []string {
	return []string{
		"run", r.scriptPath,
		"--serve",
		"--model", r.model,
		"--language", r.language,
		"--device", r.device,
		"--compute-type", r.computeType,
	}
}

// start launches the script process. Callers hold r.mu or own r exclusively.
func (r *ScriptRecognizer) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := execCommand(ctx, r.uvPath, r.args()...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	// uv's python child can outlive a killed uv and keep the pipes open.
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return errors.Wrap(err, "stdout pipe")
	}
	stderr := logrus.WithFields(logrus.Fields{
		"op":         "ScriptRecognizer",
		"model_name": r.model,
	}).WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		stderr.Close()
		return errors.Wrapf(err, "running %s", r.uvPath)
	}

	lines := bufio.NewScanner(stdout)
	lines.Buffer(make([]byte, 64*1024), maxScriptLine)

	r.cmd = cmd
	r.cancel = cancel
	r.stdin = stdin
	r.lines = lines
	r.stderr = stderr

	logrus.WithFields(logrus.Fields{
		"model_name": r.model,
		"pid":        cmd.Process.Pid,
	}).Info("Transcription script started")
	return nil
}

// stop ends the process: stdin is closed so the script can exit on its own,
// and it is killed if it has not done so within shutdownTimeout.
func (r *ScriptRecognizer) stop() error {
	if r.cmd == nil {
		return nil
	}
	r.stdin.Close()
	timer := time.AfterFunc(shutdownTimeout, r.cancel)
	err := r.cmd.Wait()
	timer.Stop()
	r.cancel()
	r.stderr.Close()

	r.cmd, r.cancel, r.stdin, r.lines, r.stderr = nil, nil, nil, nil, nil
	return err
}

func (r *ScriptRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop()
}

func (r *ScriptRecognizer) Recognize(ctx context.Context, audioPath string) ([]Segment, error) {
	logger := logrus.WithFields(logrus.Fields{
		"op":         "ScriptRecognizer.Recognize",
		"audio":      audioPath,
		"model_name": r.model,
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	// A previous call may have killed the process on timeout.
	if r.cmd == nil {
		if err := r.start(); err != nil {
			return nil, err
		}
	}

	req, err := json.Marshal(scriptRequest{Audio: audioPath})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	if _, err := r.stdin.Write(append(req, '\n')); err != nil {
		r.stop()
		return nil, errors.Wrap(err, "transcription script is not running")
	}

	type result struct {
		resp *scriptResponse
		err  error
	}
	done := make(chan result, 1)
	lines := r.lines
	go func() {
		resp, err := readResponse(lines)
		done <- result{resp, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		// Wait closes stdout, which unblocks the reader.
		r.cancel()
		r.stop()
		<-done
		logger.WithError(ctx.Err()).Warn("Transcription script killed")
		return nil, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		logger.WithError(res.err).Error("Transcription script failed")
		r.stop()
		return nil, res.err
	}
	if res.resp.Error != "" {
		if strings.Contains(res.resp.Error, "MemoryError") {
			return nil, errors.New("insufficient memory")
		}
		return nil, errors.Errorf("transcription error: %s", res.resp.Error)
	}
	return res.resp.Segments, nil
}

func readResponse(lines *bufio.Scanner) (*scriptResponse, error) {
	for lines.Scan() {
		resp, ok := parseScriptLine(lines.Bytes())
		if !ok {
			continue
		}
		if resp.Status != "" {
			logrus.WithFields(logrus.Fields{
				"status":     resp.Status,
				"model_name": resp.ModelName,
			}).Debug("Transcription script status")
			continue
		}
		return resp, nil
	}
	if err := lines.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read transcription output")
	}
	return nil, errors.New("transcription script exited")
}

// parseScriptLine extracts the JSON object from one line of script output.
func parseScriptLine(line []byte) (*scriptResponse, bool) {
	match := jsonObject.Find(line)
	if match == nil {
		return nil, false
	}
	var resp scriptResponse
	if err := json.Unmarshal(match, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}
