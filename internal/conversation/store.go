package conversation

import "sync"

// Store keeps the State of every user in process memory. States do not survive a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

type session struct {
	turn  sync.Mutex
	state State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*session)}
}

func (s *Store) session(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{state: Idle{}}
		s.sessions[userID] = sess
	}
	return sess
}

// Lock serializes event handling for one user. The returned func releases the turn.
func (s *Store) Lock(userID int64) (unlock func()) {
	sess := s.session(userID)
	sess.turn.Lock()
	return sess.turn.Unlock
}

// Get returns the user's current state, Idle when none was set.
func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok && sess.state != nil {
		return sess.state
	}
	return Idle{}
}

// Set replaces the user's state unconditionally. Workflows use it to advance their own step.
func (s *Store) Set(userID int64, state State) {
	if state == nil {
		state = Idle{}
	}
	sess := s.session(userID)
	s.mu.Lock()
	sess.state = state
	s.mu.Unlock()
}

// Begin starts a workflow unless a higher-priority one is active.
// It returns the state that owns the user afterwards and whether next was installed.
func (s *Store) Begin(userID int64, next State) (State, bool) {
	sess := s.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := sess.state; cur != nil && cur.Kind() > next.Kind() {
		return cur, false
	}
	sess.state = next
	return next, true
}

// Clear resets the user to Idle.
func (s *Store) Clear(userID int64) {
	s.Set(userID, Idle{})
}
