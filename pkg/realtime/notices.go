package realtime

import (
	"context"
	"sync"
	"time"
)

// Notice is a transient in-app message surfaced for an inbound event.
type Notice struct {
	Title string
	Body  string
	At    time.Time
}

// NoticeSink is where the transport manager surfaces notices. Implementations
// must not block.
type NoticeSink interface {
	Push(Notice)
}

// PreferenceSource answers whether in-app alerts are enabled for the
// session's principal. Consulted once per session.
type PreferenceSource interface {
	InAppEnabled(ctx context.Context) (bool, error)
}

// MemorySink is a bounded in-memory notice buffer; the oldest notice is
// dropped when full. Doubles as the test sink.
type MemorySink struct {
	mu      sync.Mutex
	max     int
	notices []Notice
}

func NewMemorySink(max int) *MemorySink {
	if max <= 0 {
		max = 50
	}
	return &MemorySink{max: max}
}

func (s *MemorySink) Push(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	if len(s.notices) > s.max {
		s.notices = s.notices[1:]
	}
}

func (s *MemorySink) All() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notice, len(s.notices))
	copy(out, s.notices)
	return out
}
