package player

import (
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/track"
)

type commandKind int

const (
	cmdEnqueue commandKind = iota
	cmdPlayNow
	cmdSkip
	cmdPause
	cmdResume
	cmdClear
	cmdStop
	cmdSessionEnded
)

// command is the single envelope type carried on the loop's command
// channel. Only the fields relevant to kind are populated.
type command struct {
	kind   commandKind
	tracks []track.Track
	track  track.Track
	result session.PlaybackEndResult
}
