// -----------------------------------------------------------------------
// Event Service - In-process job lifecycle event stream
// -----------------------------------------------------------------------

package events

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

const defaultRecentSize = 100

// Service fans job lifecycle events out to subscribers and keeps a ring
// buffer of recent events for the REST surface.
type Service struct {
	mu          sync.Mutex
	subscribers map[int]chan interfaces.Event
	nextID      int
	recent      []interfaces.Event
	recentSize  int
	closed      bool
	logger      arbor.ILogger
}

// NewService creates an event service keeping up to recentSize events
func NewService(recentSize int, logger arbor.ILogger) *Service {
	if recentSize <= 0 {
		recentSize = defaultRecentSize
	}
	return &Service{
		subscribers: make(map[int]chan interfaces.Event),
		recentSize:  recentSize,
		logger:      logger,
	}
}

// Publish broadcasts an event to all subscribers. Slow subscribers drop
// events rather than block the publisher.
func (s *Service) Publish(event interfaces.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.recent = append(s.recent, event)
	if len(s.recent) > s.recentSize {
		s.recent = s.recent[len(s.recent)-s.recentSize:]
	}

	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.logger.Warn().
				Int("subscriber", id).
				Str("event_type", string(event.Type)).
				Msg("Event subscriber backed up, dropping event")
		}
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (s *Service) Subscribe() (<-chan interfaces.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan interfaces.Event, 32)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

// Recent returns a copy of the buffered events, oldest first
func (s *Service) Recent() []interfaces.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]interfaces.Event, len(s.recent))
	copy(out, s.recent)
	return out
}

// Close shuts down the service and closes all subscriber channels
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
