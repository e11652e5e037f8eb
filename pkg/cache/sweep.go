package cache

import (
	"context"

	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/robfig/cron/v3"
)

// Sweeper is implemented by any RequestCache backend that can proactively
// drop its own expired entries instead of relying on read-time checks
// (MemoryCache, SQLiteCache, PostgresCache).
type Sweeper interface {
	Sweep(ctx context.Context) (removed int64, err error)
}

// Janitor periodically sweeps a Sweeper on a cron schedule, grounded on the
// same periodic-background-refresh idiom this codebase's build-ID refresh
// manager uses: a cron-scheduled callback wrapping one maintenance call.
type Janitor struct {
	cron   *cron.Cron
	target Sweeper
	logger logging.Logger
}

// NewJanitor parses schedule (standard 5-field cron syntax) and builds a
// Janitor that sweeps target each time it fires. The janitor does not
// start until Start is called.
func NewJanitor(schedule string, target Sweeper, logger logging.Logger) (*Janitor, error) {
	c := cron.New()
	j := &Janitor{cron: c, target: target, logger: logger.WithPipeline("cache-janitor")}

	_, err := c.AddFunc(schedule, j.sweepOnce)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) sweepOnce() {
	removed, err := j.target.Sweep(context.Background())
	if err != nil {
		j.logger.Warn("cache sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if removed > 0 {
		j.logger.Info("swept expired cache entries", map[string]interface{}{"removed": removed})
	}
}

// Start begins the cron schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule, waiting for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
