// Package track defines the value types shared across the playback engine:
// tracks, user requests, and the input-kind discriminator used to route them.
package track

import "time"

// InputKind distinguishes where a track's bytes ultimately come from.
type InputKind int

const (
	// InputUnknown is the zero value; resolvers should not return it.
	InputUnknown InputKind = iota
	// InputLocalFile means the track resolves to a path on local disk.
	InputLocalFile
	// InputRemote means the track resolves to a network resource that
	// must be fetched and decoded.
	InputRemote
)

func (k InputKind) String() string {
	switch k {
	case InputLocalFile:
		return "local_file"
	case InputRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Track is an immutable value describing one playable item. Identity for
// dedup purposes is URI.
type Track struct {
	URI          string
	Title        string
	InputKind    InputKind
	DurationHint time.Duration // zero means "unknown"
}

// HasDurationHint reports whether DurationHint carries a real value.
func (t Track) HasDurationHint() bool {
	return t.DurationHint > 0
}

// Request is an opaque user string plus an optional advisory routing hint.
// Resolvers are free to ignore InputHint; it exists so a caller that already
// knows the kind (e.g. a slash-command argument) can skip sniffing.
type Request struct {
	Raw       string
	InputHint InputKind
}
