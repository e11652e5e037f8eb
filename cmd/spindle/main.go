// Command spindle is a minimal wiring demonstration for the playback
// engine: it builds a routing resolver, a pacing sink over stdout, and a
// supervisor loop, then drives them from line-oriented commands on stdin.
// A real deployment replaces the stdout sink with a Discord voice
// connection (pkg/sink.NewDiscordOutput) and the stdin loop with whatever
// front-end dispatches requests (a slash-command handler, an HTTP API, ...).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/cache"
	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/database"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/player"
	"github.com/kestrelfm/spindle/pkg/resolver"
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/sink"
	"github.com/kestrelfm/spindle/pkg/track"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateDependencies(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateLogger("spindle")

	if err := audio.ValidateSystemDependencies(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	db := connectTelemetryDB(logger)

	requestCache, janitor, err := buildCache(cfg, loggerFactory)
	if err != nil {
		logger.Error("failed to build request cache", err, nil)
		os.Exit(1)
	}
	defer requestCache.Close()
	if janitor != nil {
		janitor.Start()
		defer janitor.Stop()
	}

	routing := resolver.NewRoutingResolver(
		resolver.NewLocalFileResolver(),
		resolver.NewRemoteResolver(
			"youtube",
			[]string{"youtube.com", "youtu.be"},
			"https://www.youtube.com/watch?v=%s",
			"https://www.youtube.com/playlist?list=%s",
			cfg.Fetcher,
			requestCache,
			cfg.Resolver.CacheTTL,
			loggerFactory.CreateResolverLogger("youtube"),
		),
	)

	output := sink.NewFileOutput(os.Stdout)
	pacedSink := sink.NewPacingSink(output, cfg.Playback.PacingStallThreshold, cfg.Playback.PacingMaxSleep)

	sourceFactory := func(t track.Track) (audio.Source, error) {
		switch t.InputKind {
		case track.InputLocalFile:
			return audio.NewLocalFileSource(t.URI, &cfg.Decoder, loggerFactory.CreateLogger("audio")), nil
		case track.InputRemote:
			return audio.NewRemoteSource(t.URI, &cfg.Fetcher, &cfg.Decoder, loggerFactory.CreateLogger("audio")), nil
		default:
			return nil, fmt.Errorf("spindle: unroutable input kind %v for %q", t.InputKind, t.URI)
		}
	}

	listeners := player.Listeners{
		OnStateChanged: func(s player.State) {
			logger.Info("state changed", map[string]interface{}{"state": s.String()})
		},
		OnTrackChanged: func(t *track.Track) {
			if t == nil {
				logger.Info("track changed", map[string]interface{}{"track": nil})
				return
			}
			logger.Info("track changed", map[string]interface{}{"title": t.Title, "uri": t.URI})
		},
		OnSessionEnded: func(t track.Track, result session.PlaybackEndResult) {
			fields := map[string]interface{}{"title": t.Title, "reason": result.Reason.String()}
			if result.Err != nil {
				fields["error"] = result.Err.Error()
			}
			logger.Info("session ended", fields)
		},
	}

	depsFactory := func(t track.Track) *audio.Dependencies {
		deps, err := audio.NewDependencies(cfg, db, loggerFactory, uuid.New().String())
		if err != nil {
			logger.Warn("building telemetry dependencies failed; playing without retry/metrics", map[string]interface{}{
				"track": t.URI, "error": err.Error(),
			})
			return nil
		}
		return deps
	}

	loop := player.New(player.Config{
		CommandQueueCapacity: cfg.Playback.CommandQueueCapacity,
		DefaultRepeatMode:    player.ParseRepeatMode(cfg.Playback.DefaultRepeatMode),
		DefaultShuffle:       cfg.Playback.DefaultShuffle,
		NewDependencies:      depsFactory,
	}, pacedSink, sourceFactory, logger, listeners)
	defer loop.Close()

	fmt.Println("spindle ready. commands: play <url-or-path>, skip, pause, resume, stop, clear, quit")
	runREPL(os.Stdin, routing, loop, logger)
}

// connectTelemetryDB opens the optional Postgres connection backing
// pkg/audio's error/metric persistence (audio.Dependencies.Repository).
// Telemetry is best-effort: a missing or unreachable DATABASE_URL leaves
// db nil, and every caller downstream already treats a nil Repository as
// "keep telemetry in memory only" rather than a fatal condition.
func connectTelemetryDB(logger logging.Logger) *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Info("DATABASE_URL not set; running without persisted telemetry", nil)
		return nil
	}
	db, err := database.NewGormDBFromConfig(dsn)
	if err != nil {
		logger.Warn("failed to connect to telemetry database; running without persisted telemetry", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return db
}

func buildCache(cfg *config.Config, loggerFactory logging.LoggerFactory) (cache.RequestCache, *cache.Janitor, error) {
	var backend interface {
		cache.RequestCache
		cache.Sweeper
	}

	switch cfg.Cache.Backend {
	case "sqlite":
		sqliteCache, err := cache.NewSQLiteCache(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		backend = sqliteCache
	default:
		backend = cache.NewMemoryCache()
	}

	janitor, err := cache.NewJanitor(cfg.Cache.SweepCron, backend, loggerFactory.CreateLogger("cache"))
	if err != nil {
		return nil, nil, fmt.Errorf("build cache janitor: %w", err)
	}
	return backend, janitor, nil
}

func runREPL(in *os.File, routing *resolver.RoutingResolver, loop *player.Loop, logger logging.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		cmd := fields[0]

		switch cmd {
		case "play":
			if len(fields) < 2 {
				fmt.Println("usage: play <url-or-path>")
				continue
			}
			resolveAndEnqueue(routing, loop, logger, fields[1])
		case "skip":
			loop.Skip()
		case "pause":
			loop.Pause()
		case "resume":
			loop.Resume()
		case "stop":
			loop.Stop()
		case "clear":
			loop.Clear()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func resolveAndEnqueue(routing *resolver.RoutingResolver, loop *player.Loop, logger logging.Logger, raw string) {
	req := track.Request{Raw: raw}
	if !routing.CanResolve(req) {
		fmt.Printf("no resolver can handle %q\n", raw)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracks, err := routing.Resolve(ctx, req)
	if err != nil {
		logger.Warn("resolve failed", map[string]interface{}{"request": raw, "error": err.Error()})
		return
	}
	if len(tracks) == 0 {
		fmt.Println("no tracks found")
		return
	}

	loop.EnqueueTracks(tracks)
	fmt.Printf("enqueued %d track(s)\n", len(tracks))
}
