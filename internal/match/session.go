package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"sumo-arena/internal/game"
)

// Session is one live match: its engine, its observers and its tick task
type Session struct {
	ID         string
	Simulation bool
	CreatedAt  time.Time

	engine *game.Engine

	mu        sync.Mutex
	observers map[Observer]struct{}
	closed    bool

	lastActivity atomic.Int64 // unix nanos
	logCursor    int          // tick task only

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(id string, engine *game.Engine, simulation bool) *Session {
	s := &Session{
		ID:         id,
		Simulation: simulation,
		CreatedAt:  time.Now(),
		engine:     engine,
		observers:  make(map[Observer]struct{}),
		done:       make(chan struct{}),
	}
	s.touch()
	return s
}

// Engine returns the match engine
func (s *Session) Engine() *game.Engine { return s.engine }

// Done is closed once the tick task has exited and observers are released
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity is the last tick or input
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// ObserverCount returns attached observers
func (s *Session) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// attach registers obs and sends it the current snapshot. The initial send
// happens under the lock so no broadcast can overtake it.
func (s *Session) attach(obs Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrMatchNotFound
	}
	s.observers[obs] = struct{}{}
	observersActive.Inc()

	msg, err := encodeSnapshot(EventState, s.ID, s.engine.Snapshot())
	if err != nil {
		return err
	}
	if err := obs.Send(msg); err != nil {
		framesDropped.Inc()
	}
	return nil
}

func (s *Session) detach(obs Observer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.observers[obs]; !ok {
		return false
	}
	delete(s.observers, obs)
	observersActive.Dec()
	return true
}

// broadcast copies the observer set, then sends outside the lock.
// A failing observer never stops delivery to the rest.
func (s *Session) broadcast(msg []byte) {
	s.mu.Lock()
	targets := make([]Observer, 0, len(s.observers))
	for obs := range s.observers {
		targets = append(targets, obs)
	}
	s.mu.Unlock()

	for _, obs := range targets {
		err := obs.Send(msg)
		if err == nil {
			continue
		}
		framesDropped.Inc()
		if errors.Is(err, ErrObserverClosed) {
			s.detach(obs)
		}
	}
}

// release closes every observer and refuses new ones
func (s *Session) release() {
	s.mu.Lock()
	observers := s.observers
	s.observers = make(map[Observer]struct{})
	s.closed = true
	s.mu.Unlock()

	for obs := range observers {
		if err := obs.Close(); err != nil {
			log.Debug().Err(err).Str("match", s.ID).Msg("observer close")
		}
		observersActive.Dec()
	}
}

// stop cancels the tick task and waits for it to release everything
func (s *Session) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Info is the public view of a session
type Info struct {
	ID           string     `json:"matchId"`
	P1           string     `json:"p1"`
	P2           string     `json:"p2"`
	State        game.State `json:"state"`
	Simulation   bool       `json:"simulation"`
	Observers    int        `json:"observers"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// Info summarizes the session
func (s *Session) Info() Info {
	p1, p2 := s.engine.WrestlerIDs()
	return Info{
		ID:           s.ID,
		P1:           p1,
		P2:           p2,
		State:        s.engine.State(),
		Simulation:   s.Simulation,
		Observers:    s.ObserverCount(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity(),
	}
}
