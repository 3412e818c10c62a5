package opstore

import (
	"fmt"
	"time"
)

// Enqueue appends a deferred message, truncating its preview text. The cut
// is on a rune boundary: a byte slice could sever a multi-byte character and
// the JSON round-trip would turn the stub into replacement characters.
func (s *Store) Enqueue(m QueuedMessage) error {
	if r := []rune(m.Message); len(r) > MessageTruncateLen {
		m.Message = string(r[:MessageTruncateLen])
	}
	return s.Update(func(st *State) error {
		st.MessageQueue = append(st.MessageQueue, m)
		return nil
	})
}

// DrainReady atomically partitions the queue: entries whose reply time has
// arrived are removed and returned, the remainder stays persisted.
func (s *Store) DrainReady(now time.Time) ([]QueuedMessage, error) {
	var ready []QueuedMessage
	err := s.Update(func(st *State) error {
		var rest []QueuedMessage
		for _, m := range st.MessageQueue {
			if m.Ready(now) {
				ready = append(ready, m)
			} else {
				rest = append(rest, m)
			}
		}
		st.MessageQueue = rest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ready, nil
}

// RemoveAt drops the queue entry at index i (operator "skip" command).
func (s *Store) RemoveAt(i int) (QueuedMessage, error) {
	var removed QueuedMessage
	err := s.Update(func(st *State) error {
		if i < 0 || i >= len(st.MessageQueue) {
			return fmt.Errorf("opstore: no queued message at %d", i)
		}
		removed = st.MessageQueue[i]
		st.MessageQueue = append(st.MessageQueue[:i], st.MessageQueue[i+1:]...)
		return nil
	})
	return removed, err
}

// SetAllReplyAt stamps every queued entry with the same reply time. Used by
// the operator "wake all" command to flush sleep-mode deferrals.
func (s *Store) SetAllReplyAt(at time.Time) error {
	return s.Update(func(st *State) error {
		for i := range st.MessageQueue {
			t := at
			st.MessageQueue[i].ReplyAt = &t
		}
		return nil
	})
}

// IncrMessagesSent bumps the sent counter after a confirmed send.
func (s *Store) IncrMessagesSent(n int) error {
	return s.Update(func(st *State) error {
		st.MessagesSent += n
		return nil
	})
}
