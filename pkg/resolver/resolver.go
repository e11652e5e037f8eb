// Package resolver implements the playback engine's track resolution layer
// (spec §4.F): turning a raw user request into one or more playable Track
// values, routed to the first resolver that claims it can handle the
// request.
package resolver

import (
	"context"
	"fmt"

	"github.com/kestrelfm/spindle/pkg/track"
)

// TrackResolver turns a request into playable tracks. CanResolve must be
// cheap and side-effect free; Resolve may block on a network or child
// process call.
type TrackResolver interface {
	// Name identifies the resolver for logging and routing diagnostics.
	Name() string

	// CanResolve reports whether this resolver claims req.
	CanResolve(req track.Request) bool

	// Resolve returns the tracks req expands to. A video resolves to one
	// track; a playlist resolves to many.
	Resolve(ctx context.Context, req track.Request) ([]track.Track, error)
}

// RoutingResolver composes an ordered list of concrete resolvers and
// delegates to the first whose CanResolve returns true.
type RoutingResolver struct {
	resolvers []TrackResolver
}

// NewRoutingResolver builds a RoutingResolver trying resolvers in order.
func NewRoutingResolver(resolvers ...TrackResolver) *RoutingResolver {
	return &RoutingResolver{resolvers: resolvers}
}

// Name identifies this composite resolver.
func (r *RoutingResolver) Name() string {
	return "routing"
}

// CanResolve reports whether any composed resolver claims req.
func (r *RoutingResolver) CanResolve(req track.Request) bool {
	_, ok := r.find(req)
	return ok
}

// Resolve delegates to the first composed resolver that claims req.
func (r *RoutingResolver) Resolve(ctx context.Context, req track.Request) ([]track.Track, error) {
	resolver, ok := r.find(req)
	if !ok {
		return nil, fmt.Errorf("resolver: no resolver can handle request %q", req.Raw)
	}
	return resolver.Resolve(ctx, req)
}

func (r *RoutingResolver) find(req track.Request) (TrackResolver, bool) {
	for _, resolver := range r.resolvers {
		if resolver.CanResolve(req) {
			return resolver, true
		}
	}
	return nil, false
}
