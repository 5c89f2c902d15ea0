package session

import "sync"

// InFlight tracks mutating actions that are still outstanding so a session
// cannot submit the same action twice at once.
type InFlight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{pending: make(map[string]struct{})}
}

// TryBegin marks action as running for sessionID. It reports false if the
// same action is already running; otherwise done must be called when the
// action finishes.
func (f *InFlight) TryBegin(sessionID, action string) (done func(), ok bool) {
	key := sessionID + "\x00" + action

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.pending[key]; busy {
		return func() {}, false
	}
	f.pending[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.pending, key)
			f.mu.Unlock()
		})
	}, true
}

// Len returns the number of outstanding actions.
func (f *InFlight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
