package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/kestrelfm/spindle/pkg/cache"
	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/track"
)

// requestKind distinguishes a single video from a playlist within one
// remote site.
type requestKind string

const (
	kindVideo    requestKind = "video"
	kindPlaylist requestKind = "playlist"
)

type parsedRequest struct {
	kind requestKind
	id   string
}

// RemoteResolver resolves requests against one remote site (e.g. YouTube)
// by shelling out to a metadata-fetcher binary in JSON dump mode, grounded
// on this codebase's yt-dlp driven metadata lookup: parse a video or
// playlist ID out of the request, check the request cache, and on a miss
// run the fetcher and cache what it returns.
type RemoteResolver struct {
	site              string
	urlHosts          []string
	videoURLFormat    string
	playlistURLFormat string

	fetcher  config.FetcherConfig
	cache    cache.RequestCache
	cacheTTL time.Duration
	sem      chan struct{}
	logger   logging.Logger
}

// NewRemoteResolver builds a RemoteResolver for one site. urlHosts are
// substrings CanResolve matches against the raw request (e.g.
// "youtube.com", "youtu.be"). videoURLFormat/playlistURLFormat are
// fmt.Sprintf templates the resolver uses to turn a bare ID back into a
// fetchable URL (e.g. "https://www.youtube.com/watch?v=%s").
func NewRemoteResolver(
	site string,
	urlHosts []string,
	videoURLFormat string,
	playlistURLFormat string,
	fetcher config.FetcherConfig,
	requestCache cache.RequestCache,
	cacheTTL time.Duration,
	logger logging.Logger,
) *RemoteResolver {
	maxConcurrent := fetcher.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &RemoteResolver{
		site:              site,
		urlHosts:          urlHosts,
		videoURLFormat:    videoURLFormat,
		playlistURLFormat: playlistURLFormat,
		fetcher:           fetcher,
		cache:             requestCache,
		cacheTTL:          cacheTTL,
		sem:               make(chan struct{}, maxConcurrent),
		logger:            logger.WithPipeline("resolver-" + site),
	}
}

// Name identifies this resolver by site.
func (r *RemoteResolver) Name() string {
	return r.site
}

// CanResolve reports whether req names a URL on this site, or was
// explicitly flagged as remote via InputHint.
func (r *RemoteResolver) CanResolve(req track.Request) bool {
	if req.InputHint == track.InputRemote {
		return true
	}
	for _, host := range r.urlHosts {
		if strings.Contains(req.Raw, host) {
			return true
		}
	}
	return false
}

// Resolve parses req into a video or playlist ID, serves it from the
// request cache when possible, and otherwise invokes the fetcher to pull
// fresh metadata. Cache failures are logged and otherwise ignored; the
// cache is a best-effort optimization, never a dependency of correctness.
func (r *RemoteResolver) Resolve(ctx context.Context, req track.Request) ([]track.Track, error) {
	parsed, err := r.parse(req)
	if err != nil {
		return nil, err
	}

	key := cacheKey(r.site, parsed)

	if r.cache != nil {
		if cached, ok, getErr := r.cache.TryGet(ctx, key); getErr != nil {
			r.logger.Warn("request cache lookup failed", map[string]interface{}{"key": key, "error": getErr.Error()})
		} else if ok {
			return cached, nil
		}
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()

	tracks, err := r.fetchMetadata(ctx, parsed)
	if err != nil {
		r.logger.Warn("fetcher invocation failed, treating as no results", map[string]interface{}{
			"site": r.site, "id": parsed.id, "error": err.Error(),
		})
		return nil, nil
	}

	if r.cache != nil {
		if setErr := r.cache.Set(ctx, key, tracks, r.cacheTTL); setErr != nil {
			r.logger.Warn("request cache store failed", map[string]interface{}{"key": key, "error": setErr.Error()})
		}
	}

	return tracks, nil
}

// parse extracts a video or playlist ID from req. A bare (non-URL) string
// is only accepted as an ID when the caller already asserted this site via
// InputHint; otherwise an unrecognized bare string is rejected rather than
// guessed at.
func (r *RemoteResolver) parse(req track.Request) (parsedRequest, error) {
	raw := strings.TrimSpace(req.Raw)

	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		if listID := u.Query().Get("list"); listID != "" {
			return parsedRequest{kind: kindPlaylist, id: listID}, nil
		}
		if videoID := u.Query().Get("v"); videoID != "" {
			return parsedRequest{kind: kindVideo, id: videoID}, nil
		}
		if id := lastPathSegment(u); id != "" {
			return parsedRequest{kind: kindVideo, id: id}, nil
		}
		return parsedRequest{}, fmt.Errorf("resolver: could not parse %s URL %q", r.site, raw)
	}

	if req.InputHint != track.InputRemote {
		return parsedRequest{}, fmt.Errorf("resolver: %q is not a recognized %s URL", raw, r.site)
	}
	return parsedRequest{kind: kindVideo, id: raw}, nil
}

func lastPathSegment(u *url.URL) string {
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

func cacheKey(site string, p parsedRequest) string {
	if p.kind == kindPlaylist {
		return fmt.Sprintf("%s:playlist:%s:raw", site, p.id)
	}
	return fmt.Sprintf("%s:video:%s", site, p.id)
}

// dumpResult is the subset of yt-dlp's --dump-single-json output this
// resolver reads: a title/duration for a single video, or an entries list
// for a playlist dumped with --flat-playlist.
type dumpResult struct {
	Title      string      `json:"title"`
	Duration   float64     `json:"duration"`
	WebpageURL string      `json:"webpage_url"`
	Entries    []dumpEntry `json:"entries"`
}

type dumpEntry struct {
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
}

func (r *RemoteResolver) fetchMetadata(ctx context.Context, p parsedRequest) ([]track.Track, error) {
	target := r.targetURL(p)

	args := append([]string{}, r.fetcher.CustomArgs...)
	args = append(args, "--no-warnings", "--dump-single-json")
	if p.kind == kindPlaylist {
		args = append(args, "--flat-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, target)

	cmd := exec.CommandContext(ctx, r.fetcher.BinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("fetcher exited: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	var dump dumpResult
	if err := json.Unmarshal(stdout.Bytes(), &dump); err != nil {
		return nil, fmt.Errorf("parse fetcher output: %w", err)
	}

	if len(dump.Entries) > 0 {
		tracks := make([]track.Track, 0, len(dump.Entries))
		for _, entry := range dump.Entries {
			uri := entry.WebpageURL
			if uri == "" {
				uri = entry.URL
			}
			tracks = append(tracks, track.Track{
				URI:          uri,
				Title:        titleOrDefault(entry.Title),
				InputKind:    track.InputRemote,
				DurationHint: secondsToDuration(entry.Duration),
			})
		}
		return tracks, nil
	}

	uri := dump.WebpageURL
	if uri == "" {
		uri = target
	}
	return []track.Track{{
		URI:          uri,
		Title:        titleOrDefault(dump.Title),
		InputKind:    track.InputRemote,
		DurationHint: secondsToDuration(dump.Duration),
	}}, nil
}

func (r *RemoteResolver) targetURL(p parsedRequest) string {
	if p.kind == kindPlaylist {
		return fmt.Sprintf(r.playlistURLFormat, p.id)
	}
	return fmt.Sprintf(r.videoURLFormat, p.id)
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Unknown Title"
	}
	return title
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
