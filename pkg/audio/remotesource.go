package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
)

// processHandle pairs a started child process with the single goroutine
// allowed to call Wait on it, so callers elsewhere can inspect the exit
// outcome without racing a second Wait call.
type processHandle struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	exitErr error
	mu      sync.Mutex
}

func startProcessHandle(cmd *exec.Cmd) *processHandle {
	h := &processHandle{cmd: cmd, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.exitErr = err
		h.mu.Unlock()
		close(h.exited)
	}()
	return h
}

func (h *processHandle) waitExited(timeout time.Duration) (exited bool, exitErr error) {
	select {
	case <-h.exited:
		h.mu.Lock()
		defer h.mu.Unlock()
		return true, h.exitErr
	case <-time.After(timeout):
		return false, nil
	}
}

func (h *processHandle) terminate() {
	if h == nil || h.cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGTERM)
	if exited, _ := h.waitExited(5 * time.Second); !exited {
		_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL)
		h.waitExited(5 * time.Second)
	}
}

// RemoteSource decodes a track fetched over the network by chaining two
// child processes: a fetcher that writes a media container to stdout, and
// a decoder that reads that container from stdin and writes raw PCM to
// stdout. A background copy pump moves bytes between the two.
type RemoteSource struct {
	url           string
	fetcherConfig *config.FetcherConfig
	decoderConfig *config.DecoderConfig
	logger        logging.Logger

	mu         sync.Mutex
	fetch      *processHandle
	decode     *processHandle
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
}

// NewRemoteSource creates a Source that fetches and decodes url on Open.
func NewRemoteSource(url string, fetcherConfig *config.FetcherConfig, decoderConfig *config.DecoderConfig, logger logging.Logger) *RemoteSource {
	return &RemoteSource{
		url:           url,
		fetcherConfig: fetcherConfig,
		decoderConfig: decoderConfig,
		logger:        logger.WithPipeline("remote-source"),
	}
}

// Open starts the fetch and decode processes and links them with a copy
// pump, returning a reader over the decoder's stdout.
func (s *RemoteSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fetchArgs := append([]string{}, s.fetcherConfig.CustomArgs...)
	fetchArgs = append(fetchArgs, "-o", "-", s.url)
	fetchCmd := exec.Command(s.fetcherConfig.BinaryPath, fetchArgs...)
	fetchCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	fetchOut, err := fetchCmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: fetcher stdout pipe: %w", err)
	}

	decodeArgs := []string{
		"-i", "pipe:0",
		"-f", s.decoderConfig.AudioFormat,
		"-ar", fmt.Sprintf("%d", s.decoderConfig.SampleRate),
		"-ac", fmt.Sprintf("%d", s.decoderConfig.Channels),
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
	}
	decodeArgs = append(decodeArgs, s.decoderConfig.CustomArgs...)
	decodeArgs = append(decodeArgs, "pipe:1")
	decodeCmd := exec.Command(s.decoderConfig.BinaryPath, decodeArgs...)
	decodeCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	decodeIn, err := decodeCmd.StdinPipe()
	if err != nil {
		fetchOut.Close()
		return nil, fmt.Errorf("audio: decoder stdin pipe: %w", err)
	}
	decodeOut, err := decodeCmd.StdoutPipe()
	if err != nil {
		fetchOut.Close()
		decodeIn.Close()
		return nil, fmt.Errorf("audio: decoder stdout pipe: %w", err)
	}

	if err := fetchCmd.Start(); err != nil {
		fetchOut.Close()
		decodeIn.Close()
		decodeOut.Close()
		return nil, fmt.Errorf("audio: fetcher start: %w", err)
	}
	if err := decodeCmd.Start(); err != nil {
		_ = syscall.Kill(-fetchCmd.Process.Pid, syscall.SIGKILL)
		fetchCmd.Wait()
		fetchOut.Close()
		decodeIn.Close()
		decodeOut.Close()
		return nil, fmt.Errorf("audio: decoder start: %w", err)
	}

	s.fetch = startProcessHandle(fetchCmd)
	s.decode = startProcessHandle(decodeCmd)

	pumpCtx, pumpCancel := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	s.pumpCancel = pumpCancel
	s.pumpDone = pumpDone

	bufSize := s.fetcherConfig.CopyBufferBytes
	if bufSize <= 0 {
		bufSize = 80 * 1024
	}

	go s.runPump(pumpCtx, fetchOut, decodeIn, bufSize, pumpDone)

	return &remoteReader{source: s, reader: decodeOut}, nil
}

func (s *RemoteSource) runPump(ctx context.Context, src io.ReadCloser, dst io.WriteCloser, bufSize int, done chan struct{}) {
	defer close(done)
	defer dst.Close()
	defer src.Close()

	buf := make([]byte, bufSize)
	errCh := make(chan error, 1)

	go func() {
		_, err := io.CopyBuffer(dst, src, buf)
		errCh <- err
	}()

	select {
	case <-errCh:
	case <-ctx.Done():
		src.Close()
		dst.Close()
		<-errCh
	}
}

// Close cancels the copy pump, waits for it, then kills and disposes both
// child processes: decoder first, then fetcher, tolerating errors at every
// step.
func (s *RemoteSource) Close() error {
	s.mu.Lock()
	pumpCancel := s.pumpCancel
	pumpDone := s.pumpDone
	decode := s.decode
	fetch := s.fetch
	s.pumpCancel = nil
	s.pumpDone = nil
	s.decode = nil
	s.fetch = nil
	s.mu.Unlock()

	if pumpCancel != nil {
		pumpCancel()
	}
	if pumpDone != nil {
		<-pumpDone
	}

	decode.terminate()
	fetch.terminate()

	return nil
}

// remoteReader wraps the decoder's stdout so that a zero read is checked
// against both child processes' exit status before being reported as a
// clean EOF.
type remoteReader struct {
	source *RemoteSource
	reader io.ReadCloser
}

func (r *remoteReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n == 0 && err == io.EOF {
		r.source.mu.Lock()
		decode := r.source.decode
		fetch := r.source.fetch
		r.source.mu.Unlock()

		if decode != nil {
			if exited, exitErr := decode.waitExited(200 * time.Millisecond); exited && exitErr != nil {
				return 0, &PipelineFailedError{Stage: "decoder", Err: exitErr}
			}
		}
		if fetch != nil {
			if exited, exitErr := fetch.waitExited(200 * time.Millisecond); exited && exitErr != nil {
				return 0, &PipelineFailedError{Stage: "fetcher", Err: exitErr}
			}
		}
	}
	return n, err
}

func (r *remoteReader) Close() error {
	return r.source.Close()
}
