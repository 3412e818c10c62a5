package availability

import (
	"math/rand"
	"time"
)

// InlineWaitCap is the longest delay the dispatch loop serves by sleeping
// inline. Longer waits go to the persisted queue so the poll loop keeps
// servicing other threads.
const InlineWaitCap = 30 * time.Second

// Action is what the dispatch loop should do with a qualifying message.
type Action int

const (
	// ActionReply answers in this cycle after Decision.Wait.
	ActionReply Action = iota
	// ActionDefer enqueues the message; Decision.ReplyAt nil means "await an
	// explicit wake signal".
	ActionDefer
	// ActionDrop discards the message entirely (dnd).
	ActionDrop
)

// Decision is the scheduler's verdict for one message.
type Decision struct {
	Action  Action
	Wait    time.Duration
	ReplyAt *time.Time
}

// Scheduler draws reply delays. Randomness and clock are injectable so the
// delay-bound behavior is testable.
type Scheduler struct {
	rng *rand.Rand
	now func() time.Time
}

// NewScheduler creates a scheduler seeded from the wall clock.
func NewScheduler() *Scheduler {
	return &Scheduler{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// NewSchedulerWith creates a scheduler with a fixed source and clock.
func NewSchedulerWith(rng *rand.Rand, now func() time.Time) *Scheduler {
	return &Scheduler{rng: rng, now: now}
}

// Decide maps the current mode to a verdict. With auto-reply on, the delay is
// drawn uniformly from [MinDelay, MaxDelay]; delays above InlineWaitCap are
// deferred to the queue instead of blocking the loop.
func (s *Scheduler) Decide(mode Mode) Decision {
	p := mode.Policy()

	if !p.AutoReply {
		if mode == DND {
			return Decision{Action: ActionDrop}
		}
		// sleep: queue with no reply time, woken explicitly by the operator
		return Decision{Action: ActionDefer}
	}

	delay := p.MinDelay
	if p.MaxDelay > p.MinDelay {
		delay += time.Duration(s.rng.Int63n(int64(p.MaxDelay-p.MinDelay) + 1))
	}

	if delay > InlineWaitCap {
		at := s.now().Add(delay)
		return Decision{Action: ActionDefer, ReplyAt: &at}
	}
	return Decision{Action: ActionReply, Wait: delay}
}
