package resolver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelfm/spindle/pkg/cache"
	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/resolver"
	"github.com/kestrelfm/spindle/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopLogger implements logging.Logger as a no-op, mirroring the teacher's
// MockAudioLogger pattern.
type noopLogger struct{}

func (noopLogger) Info(string, map[string]interface{})              {}
func (noopLogger) Error(string, error, map[string]interface{})      {}
func (noopLogger) Warn(string, map[string]interface{})              {}
func (noopLogger) Debug(string, map[string]interface{})             {}
func (noopLogger) WithPipeline(string) logging.Logger                { return noopLogger{} }
func (noopLogger) WithContext(map[string]interface{}) logging.Logger { return noopLogger{} }

func TestLocalFileResolver_CanResolveExistingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	r := resolver.NewLocalFileResolver()
	assert.True(t, r.CanResolve(track.Request{Raw: path}))
	assert.False(t, r.CanResolve(track.Request{Raw: filepath.Join(dir, "missing.mp3")}))
}

func TestLocalFileResolver_ResolveReturnsSingleTrack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	r := resolver.NewLocalFileResolver()
	tracks, err := r.Resolve(context.Background(), track.Request{Raw: path})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, path, tracks[0].URI)
	assert.Equal(t, "song.mp3", tracks[0].Title)
	assert.Equal(t, track.InputLocalFile, tracks[0].InputKind)
}

func TestLocalFileResolver_ResolveMissingPathFails(t *testing.T) {
	r := resolver.NewLocalFileResolver()
	_, err := r.Resolve(context.Background(), track.Request{Raw: "/no/such/file.mp3"})
	assert.Error(t, err)
}

func TestRoutingResolver_DelegatesToFirstMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	routing := resolver.NewRoutingResolver(resolver.NewLocalFileResolver())
	assert.True(t, routing.CanResolve(track.Request{Raw: path}))

	tracks, err := routing.Resolve(context.Background(), track.Request{Raw: path})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
}

func TestRoutingResolver_NoMatchReturnsError(t *testing.T) {
	routing := resolver.NewRoutingResolver(resolver.NewLocalFileResolver())
	assert.False(t, routing.CanResolve(track.Request{Raw: "https://example.com/watch?v=abc"}))

	_, err := routing.Resolve(context.Background(), track.Request{Raw: "https://example.com/watch?v=abc"})
	assert.Error(t, err)
}

func TestRemoteResolver_CanResolveByHostOrHint(t *testing.T) {
	r := newTestRemoteResolver(t, nil)

	assert.True(t, r.CanResolve(track.Request{Raw: "https://www.youtube.com/watch?v=abc123"}))
	assert.True(t, r.CanResolve(track.Request{Raw: "abc123", InputHint: track.InputRemote}))
	assert.False(t, r.CanResolve(track.Request{Raw: "abc123"}))
	assert.False(t, r.CanResolve(track.Request{Raw: "/local/path.mp3"}))
}

func TestRemoteResolver_ServesFromCacheOnHit(t *testing.T) {
	memCache := cache.NewMemoryCache()
	r := newTestRemoteResolver(t, memCache)

	cached := []track.Track{{URI: "https://www.youtube.com/watch?v=abc123", Title: "Cached Title", InputKind: track.InputRemote}}
	require.NoError(t, memCache.Set(context.Background(), "youtube:video:abc123", cached, time.Minute))

	tracks, err := r.Resolve(context.Background(), track.Request{Raw: "https://www.youtube.com/watch?v=abc123"})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Cached Title", tracks[0].Title)
}

func TestRemoteResolver_UnparsableBareStringWithoutHintFails(t *testing.T) {
	r := newTestRemoteResolver(t, nil)
	_, err := r.Resolve(context.Background(), track.Request{Raw: "not a url"})
	assert.Error(t, err)
}

func newTestRemoteResolver(t *testing.T, requestCache cache.RequestCache) *resolver.RemoteResolver {
	t.Helper()
	fetcherCfg := config.FetcherConfig{
		BinaryPath:    "yt-dlp",
		MaxConcurrent: 2,
	}
	return resolver.NewRemoteResolver(
		"youtube",
		[]string{"youtube.com", "youtu.be"},
		"https://www.youtube.com/watch?v=%s",
		"https://www.youtube.com/playlist?list=%s",
		fetcherCfg,
		requestCache,
		time.Hour,
		noopLogger{},
	)
}
