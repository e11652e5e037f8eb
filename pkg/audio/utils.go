package audio

import (
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelfm/spindle/pkg/database/models"
)

// FormatDuration formats a duration into a human-readable string.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// ContextFields builds a standardized logging/metrics context map.
func ContextFields(sessionID, trackURI, component string) map[string]interface{} {
	fields := map[string]interface{}{
		"timestamp": time.Now(),
	}
	if sessionID != "" {
		fields["session_id"] = sessionID
	}
	if trackURI != "" {
		fields["track_uri"] = trackURI
	}
	if component != "" {
		fields["component"] = component
	}
	return fields
}

// SanitizeURI removes query parameters and fragments from a URI before it
// is logged, keeping a YouTube video id if present.
func SanitizeURI(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		if len(raw) > 100 {
			return raw[:100] + "..."
		}
		return raw
	}
	if strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be") {
		if videoID := parsed.Query().Get("v"); videoID != "" {
			parsed.RawQuery = "v=" + videoID
		} else {
			parsed.RawQuery = ""
		}
		parsed.Fragment = ""
		return parsed.String()
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	sanitized := parsed.String()
	if len(sanitized) > 100 {
		return sanitized[:100] + "..."
	}
	return sanitized
}

// NewPlaybackMetric creates a PlaybackMetric with its id and timestamp set.
func NewPlaybackMetric(sessionID, metricType string, value float64) *models.PlaybackMetric {
	return &models.PlaybackMetric{
		ID:         uuid.New(),
		SessionID:  sessionID,
		MetricType: metricType,
		Value:      value,
		Timestamp:  time.Now(),
	}
}

// NewPlaybackError creates a PlaybackError with its id and timestamp set.
func NewPlaybackError(sessionID, errorType, errorMsg, context string) *models.PlaybackError {
	return &models.PlaybackError{
		ID:        uuid.New(),
		SessionID: sessionID,
		ErrorType: errorType,
		ErrorMsg:  errorMsg,
		Context:   context,
		Timestamp: time.Now(),
		Resolved:  false,
	}
}

// ValidateBinaryDependency checks that a required external binary can be
// resolved on PATH.
func ValidateBinaryDependency(name, path string) error {
	if path == "" {
		return fmt.Errorf("%s binary path cannot be empty", name)
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("%s binary not found at path %q: %w", name, path, err)
	}
	return nil
}

// ValidateAllBinaryDependencies validates the decoder and fetcher binaries
// together, reporting on both instead of failing on the first.
func ValidateAllBinaryDependencies(decoderPath, fetcherPath string) error {
	var errs []string
	if err := ValidateBinaryDependency("decoder", decoderPath); err != nil {
		errs = append(errs, err.Error())
	}
	if err := ValidateBinaryDependency("fetcher", fetcherPath); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("binary dependency validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
