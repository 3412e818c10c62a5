// Package availability maps the operator-selected mode to a reply-delay
// policy and decides, per incoming message, whether to answer inline or
// defer to the persisted queue.
package availability

import (
	"fmt"
	"time"
)

// Mode is the closed set of operator availability states.
type Mode int

const (
	Available Mode = iota
	Busy
	Away
	Sleep
	DND
)

// Policy is the reply-delay policy attached to a mode.
type Policy struct {
	MinDelay  time.Duration
	MaxDelay  time.Duration
	AutoReply bool
}

var policies = map[Mode]Policy{
	Available: {MinDelay: 10 * time.Second, MaxDelay: 60 * time.Second, AutoReply: true},
	Busy:      {MinDelay: 120 * time.Second, MaxDelay: 480 * time.Second, AutoReply: true},
	Away:      {MinDelay: 600 * time.Second, MaxDelay: 1800 * time.Second, AutoReply: true},
	Sleep:     {AutoReply: false},
	DND:       {AutoReply: false},
}

var names = map[Mode]string{
	Available: "available",
	Busy:      "busy",
	Away:      "away",
	Sleep:     "sleep",
	DND:       "dnd",
}

// Policy returns the mode's delay policy.
func (m Mode) Policy() Policy {
	return policies[m]
}

func (m Mode) String() string {
	if n, ok := names[m]; ok {
		return n
	}
	return "unknown"
}

// Parse resolves a persisted mode name. Unknown names are an error so a
// corrupt state file cannot silently change reply behavior.
func Parse(name string) (Mode, error) {
	for m, n := range names {
		if n == name {
			return m, nil
		}
	}
	return Available, fmt.Errorf("availability: unknown mode %q", name)
}

// All lists every mode in display order.
func All() []Mode {
	return []Mode{Available, Busy, Away, Sleep, DND}
}
