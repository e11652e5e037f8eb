package audio

import (
	"fmt"

	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
	"gorm.io/gorm"
)

// Dependencies bundles the wired collaborators a Source implementation
// needs: a telemetry repository (nil when persistence is disabled), an
// error handler, and a metrics collector, all scoped to one session.
type Dependencies struct {
	Repository   Repository
	ErrorHandler ErrorHandler
	Metrics      MetricsCollector
	Logger       logging.Logger
}

// NewDependencies wires the audio-source telemetry stack for one playback
// session. db may be nil, in which case telemetry is kept in memory only
// and errors/metrics are never persisted.
func NewDependencies(cfg *config.Config, db *gorm.DB, loggerFactory logging.LoggerFactory, sessionID string) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("audio: config cannot be nil")
	}

	var repo Repository
	if db != nil {
		repo = NewGormRepository(db)
	}

	logger := loggerFactory.CreateSessionLogger(sessionID).WithPipeline("audio")
	errorHandler := NewBasicErrorHandler(&cfg.Retry, logger, repo, sessionID)
	metrics := NewBasicMetrics(repo, sessionID)

	return &Dependencies{
		Repository:   repo,
		ErrorHandler: errorHandler,
		Metrics:      metrics,
		Logger:       logger,
	}, nil
}

// ValidateSystemDependencies checks that the configured decoder and fetcher
// binaries are resolvable on PATH. Intended to run once at startup so a
// missing binary fails fast instead of surfacing mid-playback.
func ValidateSystemDependencies(cfg *config.Config) error {
	return ValidateAllBinaryDependencies(cfg.Decoder.BinaryPath, cfg.Fetcher.BinaryPath)
}
