package audio

import (
	"math"
	"net"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
)

// BasicErrorHandler implements ErrorHandler with exponential-backoff retry
// logic and centralized error logging/persistence.
type BasicErrorHandler struct {
	retryConfig *config.RetryConfig
	logger      logging.Logger
	repository  Repository
	sessionID   string
}

// NewBasicErrorHandler creates an error handler scoped to one playback
// session.
func NewBasicErrorHandler(retryConfig *config.RetryConfig, logger logging.Logger, repo Repository, sessionID string) ErrorHandler {
	return &BasicErrorHandler{
		retryConfig: retryConfig,
		logger:      logger.WithPipeline("error-handler"),
		repository:  repo,
		sessionID:   sessionID,
	}
}

// HandleError classifies err, logs it, and decides whether the caller
// should retry and after how long.
func (beh *BasicErrorHandler) HandleError(err error, context string) (shouldRetry bool, delay time.Duration) {
	beh.LogError(err, context)

	if !beh.IsRetryableError(err) {
		return false, 0
	}

	return true, beh.calculateExponentialBackoff(1)
}

// LogError logs err to the centralized logger and, if a repository is
// configured, persists it for later inspection.
func (beh *BasicErrorHandler) LogError(err error, context string) {
	errorType := beh.classifyErrorType(err)
	fields := ContextFields(beh.sessionID, "", "error-handler")
	fields["context"] = context
	fields["error_type"] = errorType
	fields["retryable"] = beh.IsRetryableError(err)

	beh.logger.Error("playback error occurred", err, fields)

	if beh.repository != nil {
		playbackErr := NewPlaybackError(beh.sessionID, errorType, err.Error(), context)
		if saveErr := beh.repository.SaveError(playbackErr); saveErr != nil {
			beh.logger.Warn("failed to persist error", map[string]interface{}{
				"save_error":     saveErr.Error(),
				"original_error": err.Error(),
			})
		}
	}
}

// IsRetryableError classifies err as transient (network, process, fetcher,
// decoder, or filesystem hiccups) versus permanent.
func (beh *BasicErrorHandler) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := strings.ToLower(err.Error())

	if isNetworkError(err) {
		return true
	}
	if isProcessError(err) {
		return true
	}
	if isFetcherRetryableError(errorStr) {
		return true
	}
	if isDecoderRetryableError(errorStr) {
		return true
	}
	if isTemporaryFileSystemError(errorStr) {
		return true
	}
	return false
}

func (beh *BasicErrorHandler) calculateExponentialBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return beh.retryConfig.BaseDelay
	}
	multiplier := math.Pow(beh.retryConfig.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(beh.retryConfig.BaseDelay) * multiplier)
	if delay > beh.retryConfig.MaxDelay {
		delay = beh.retryConfig.MaxDelay
	}
	return delay
}

func (beh *BasicErrorHandler) classifyErrorType(err error) string {
	if err == nil {
		return "unknown"
	}
	errorStr := strings.ToLower(err.Error())

	switch {
	case isNetworkError(err):
		return "network"
	case isProcessError(err):
		return "process"
	case strings.Contains(errorStr, "yt-dlp"), strings.Contains(errorStr, "fetcher"):
		return "fetcher"
	case strings.Contains(errorStr, "ffmpeg"), strings.Contains(errorStr, "decoder"):
		return "decoder"
	case strings.Contains(errorStr, "no such file"), strings.Contains(errorStr, "permission denied"),
		strings.Contains(errorStr, "disk full"), strings.Contains(errorStr, "i/o error"):
		return "filesystem"
	case strings.Contains(errorStr, "config"), strings.Contains(errorStr, "invalid"):
		return "configuration"
	case strings.Contains(errorStr, "opus"), strings.Contains(errorStr, "encoding"):
		return "encoding"
	default:
		return "unknown"
	}
}

// GetRetryDelay returns the backoff delay for a specific retry attempt.
func (beh *BasicErrorHandler) GetRetryDelay(attempt int) time.Duration {
	return beh.calculateExponentialBackoff(attempt)
}

// GetMaxRetries returns the configured retry ceiling.
func (beh *BasicErrorHandler) GetMaxRetries() int {
	return beh.retryConfig.MaxRetries
}

// ShouldRetryAfterAttempts reports whether another attempt is warranted
// given how many have already been made.
func (beh *BasicErrorHandler) ShouldRetryAfterAttempts(attempts int, err error) bool {
	if attempts >= beh.retryConfig.MaxRetries {
		return false
	}
	return beh.IsRetryableError(err)
}

func isNetworkError(err error) bool {
	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	errorStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused", "connection reset", "connection timeout",
		"network unreachable", "host unreachable", "no route to host",
		"temporary failure", "timeout", "dial tcp", "i/o timeout",
		"connection aborted", "broken pipe",
	}
	for _, p := range patterns {
		if strings.Contains(errorStr, p) {
			return true
		}
	}
	return false
}

func isProcessError(err error) bool {
	if _, ok := err.(*exec.ExitError); ok {
		return true
	}
	if errno, ok := err.(syscall.Errno); ok {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR:
			return true
		}
	}
	errorStr := strings.ToLower(err.Error())
	patterns := []string{"process killed", "process terminated", "signal: killed", "signal: terminated"}
	for _, p := range patterns {
		if strings.Contains(errorStr, p) {
			return true
		}
	}
	return false
}

func isFetcherRetryableError(errorStr string) bool {
	patterns := []string{
		"http error 429", "http error 503", "http error 502", "http error 504",
		"connection timed out", "temporary failure", "unable to download webpage",
		"download error", "network error",
	}
	for _, p := range patterns {
		if strings.Contains(errorStr, p) {
			return true
		}
	}
	return false
}

func isDecoderRetryableError(errorStr string) bool {
	patterns := []string{
		"connection refused", "connection reset", "i/o error",
		"resource temporarily unavailable", "interrupted system call",
		"broken pipe", "protocol error", "server returned 5", "timeout",
	}
	for _, p := range patterns {
		if strings.Contains(errorStr, p) {
			return true
		}
	}
	return false
}

func isTemporaryFileSystemError(errorStr string) bool {
	patterns := []string{"resource temporarily unavailable", "device busy", "interrupted system call"}
	for _, p := range patterns {
		if strings.Contains(errorStr, p) {
			return true
		}
	}
	return false
}
