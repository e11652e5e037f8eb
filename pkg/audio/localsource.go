package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
)

// ErrFileNotFound is returned by LocalFileSource.Open when the configured
// path does not exist at open time.
var ErrFileNotFound = fmt.Errorf("audio: file not found")

// PipelineFailedError wraps the child-process failure surfaced when a read
// returns zero bytes alongside a non-zero process exit.
type PipelineFailedError struct {
	Stage string
	Err   error
}

func (e *PipelineFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("audio: pipeline failed at %s", e.Stage)
	}
	return fmt.Sprintf("audio: pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineFailedError) Unwrap() error {
	return e.Err
}

// LocalFileSource decodes a track from a local filesystem path by spawning
// a single decoder child process and streaming its stdout.
type LocalFileSource struct {
	path   string
	config *config.DecoderConfig
	logger logging.Logger

	mu            sync.Mutex
	cmd           *exec.Cmd
	exited        chan struct{}
	exitErr       error
	stderrLines   []string
	maxStderrKept int
}

// NewLocalFileSource creates a Source for a file already present on disk.
func NewLocalFileSource(path string, decoderConfig *config.DecoderConfig, logger logging.Logger) *LocalFileSource {
	return &LocalFileSource{
		path:          path,
		config:        decoderConfig,
		logger:        logger.WithPipeline("local-source"),
		maxStderrKept: 50,
	}
}

// Open spawns the decoder against the local file, failing fast if the path
// does not exist.
func (s *LocalFileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("audio: stat local file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	args := s.buildArgs()
	cmd := exec.Command(s.config.BinaryPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: decoder stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("audio: decoder stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("audio: decoder start: %w", err)
	}

	s.cmd = cmd
	s.exited = make(chan struct{})
	s.stderrLines = make([]string, 0, s.maxStderrKept)

	go s.drainStderr(stderr)
	go s.monitor()

	return &watchedReader{source: s, reader: stdout}, nil
}

// monitor owns the single cmd.Wait() call for this process, recording its
// outcome so Close and watchedReader never call Wait themselves.
func (s *LocalFileSource) monitor() {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	s.exitErr = err
	s.mu.Unlock()
	close(exited)
}

func (s *LocalFileSource) buildArgs() []string {
	args := []string{
		"-i", s.path,
		"-f", s.config.AudioFormat,
		"-ar", fmt.Sprintf("%d", s.config.SampleRate),
		"-ac", fmt.Sprintf("%d", s.config.Channels),
		"-threads", "0",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
	}
	args = append(args, s.config.CustomArgs...)
	args = append(args, "pipe:1")
	return args
}

func (s *LocalFileSource) drainStderr(stderr io.ReadCloser) {
	defer stderr.Close()
	buf := make([]byte, 4096)
	var pending strings.Builder
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			for {
				chunk := pending.String()
				idx := strings.IndexByte(chunk, '\n')
				if idx < 0 {
					break
				}
				line := chunk[:idx]
				s.recordStderrLine(line)
				pending.Reset()
				pending.WriteString(chunk[idx+1:])
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *LocalFileSource) recordStderrLine(line string) {
	s.mu.Lock()
	if len(s.stderrLines) >= s.maxStderrKept {
		s.stderrLines = s.stderrLines[1:]
	}
	s.stderrLines = append(s.stderrLines, line)
	s.mu.Unlock()

	if isCriticalError(line) || isStreamError(line) {
		s.logger.Warn("decoder reported a failure", map[string]interface{}{"line": line})
	}
}

func (s *LocalFileSource) recentStderr() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.stderrLines))
	copy(out, s.stderrLines)
	return out
}

// waitExited blocks until the monitor goroutine has reaped the process,
// returning the exit error (nil on clean exit). Safe to call only after
// the process has been signaled to stop or has exited on its own.
func (s *LocalFileSource) waitExited(timeout time.Duration) (exited bool, exitErr error) {
	s.mu.Lock()
	ch := s.exited
	s.mu.Unlock()
	if ch == nil {
		return true, nil
	}
	select {
	case <-ch:
		s.mu.Lock()
		defer s.mu.Unlock()
		return true, s.exitErr
	case <-time.After(timeout):
		return false, nil
	}
}

// Close terminates the decoder process, preferring SIGTERM and escalating
// to SIGKILL if it does not exit promptly.
func (s *LocalFileSource) Close() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)

	if exited, _ := s.waitExited(5 * time.Second); !exited {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		s.waitExited(5 * time.Second)
	}

	return nil
}

// watchedReader wraps a decoder's stdout so that an EOF accompanied by a
// non-zero process exit is surfaced as PipelineFailedError instead of a
// silent, truncated EOF.
type watchedReader struct {
	source *LocalFileSource
	reader io.ReadCloser
}

func (w *watchedReader) Read(p []byte) (int, error) {
	n, err := w.reader.Read(p)
	if n == 0 && err == io.EOF {
		if exited, exitErr := w.source.waitExited(2 * time.Second); exited && exitErr != nil {
			return 0, &PipelineFailedError{
				Stage: "decoder",
				Err:   fmt.Errorf("%w; recent output: %v", exitErr, w.source.recentStderr()),
			}
		}
	}
	return n, err
}

func (w *watchedReader) Close() error {
	return w.source.Close()
}

func isCriticalError(line string) bool {
	patterns := []string{"segmentation fault", "fatal error", "assertion failed", "out of memory", "killed", "aborted"}
	lower := strings.ToLower(line)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isStreamError(line string) bool {
	patterns := []string{
		"connection refused", "http error", "server returned", "403 forbidden", "404 not found",
		"no such file or directory", "protocol not found", "invalid data found",
		"i/o error", "network is unreachable", "operation timed out",
	}
	lower := strings.ToLower(line)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
