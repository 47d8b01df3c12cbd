package engine

import (
	"sync"

	"github.com/jwebster45206/passage-engine/pkg/state"
)

// Session serializes intents against a single game state. Adapters that share one
// session between goroutines should go through a Session rather than the Engine.
type Session struct {
	mu     sync.Mutex
	engine *Engine
	state  *state.GameState
}

// NewSession starts a new game and wraps it in a Session.
func (e *Engine) NewSession() (*Session, error) {
	gs, err := e.NewGame()
	if err != nil {
		return nil, err
	}
	return &Session{engine: e, state: gs}, nil
}

// Resume wraps an existing state, e.g. one loaded from storage.
func (e *Engine) Resume(gs *state.GameState) *Session {
	return &Session{engine: e, state: gs.Clone()}
}

// SelectChoice applies the visible choice at index. On error the state is unchanged.
func (s *Session) SelectChoice(index int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.engine.ApplyChoice(s.state, index)
	if err != nil {
		return Snapshot{}, err
	}
	s.state = next
	return s.engine.Snapshot(s.state)
}

// Attack resolves one combat round. On error the state is unchanged.
func (s *Session) Attack() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.engine.Attack(s.state)
	if err != nil {
		return Snapshot{}, err
	}
	s.state = next
	return s.engine.Snapshot(s.state)
}

func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(s.state)
}

// State returns a copy of the current game state.
func (s *Session) State() *state.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}
