package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelfm/spindle/pkg/track"
)

// LocalFileResolver resolves requests that name a path on local disk.
type LocalFileResolver struct{}

// NewLocalFileResolver builds a LocalFileResolver.
func NewLocalFileResolver() *LocalFileResolver {
	return &LocalFileResolver{}
}

// Name identifies this resolver.
func (r *LocalFileResolver) Name() string {
	return "local-file"
}

// CanResolve reports whether req names an existing local path, or was
// explicitly flagged as one via InputHint.
func (r *LocalFileResolver) CanResolve(req track.Request) bool {
	if req.InputHint == track.InputLocalFile {
		return true
	}
	_, err := os.Stat(req.Raw)
	return err == nil
}

// Resolve stats req.Raw and returns it as a single track. There is nothing
// to cache here: the filesystem lookup is already as cheap as a cache hit.
func (r *LocalFileResolver) Resolve(_ context.Context, req track.Request) ([]track.Track, error) {
	if _, err := os.Stat(req.Raw); err != nil {
		return nil, fmt.Errorf("resolver: local file %q: %w", req.Raw, err)
	}
	return []track.Track{{
		URI:       req.Raw,
		Title:     filepath.Base(req.Raw),
		InputKind: track.InputLocalFile,
	}}, nil
}
