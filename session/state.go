package session

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-admin-auth/internal/utils"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
)

// State is the in-memory auth session. IsAuthenticated implies User != nil and
// AccessToken != "". A zero TokenExpiresAt means no expiry is known.
//
// AwaitingRedirect marks the loading state a successful Login leaves behind: the
// session is verified and only the navigation away from the login page is pending.
// Every other IsLoading state means a request is still in flight.
type State struct {
	User             *resourceapi.User
	AccessToken      string
	RefreshToken     string
	TokenExpiresAt   time.Time
	IsAuthenticated  bool
	IsLoading        bool
	AwaitingRedirect bool
}

// Consistent reports whether the auth invariants hold.
func (s State) Consistent() bool {
	if s.IsAuthenticated && (s.User == nil || s.AccessToken == "") {
		return false
	}
	return !s.AwaitingRedirect || (s.IsAuthenticated && s.IsLoading)
}

// Role returns the user's role, or "" when there is no user.
func (s State) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		if u.Avatar != nil {
			u.Avatar = utils.Ptr(*u.Avatar)
		}
		s.User = &u
	}
	return s
}

// Change is delivered to subscribers after every state update. Invalidated is set when
// the session was torn down and every view built on it must be discarded.
type Change struct {
	Previous    State
	Current     State
	Invalidated bool
}

// Listener receives state changes. It runs on the goroutine that made the change, after
// the state lock is released, so it may read the state or trigger further changes.
type Listener func(Change)

// Observable holds the session state and fans changes out to subscribers. Get returns
// copies; the only way to mutate is through the owning controller.
type Observable struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func newObservable(initial State) *Observable {
	return &Observable{
		state:     initial.clone(),
		listeners: make(map[int]Listener),
	}
}

func (o *Observable) Get() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.clone()
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observable) Subscribe(fn Listener) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.listeners, id)
		})
	}
}

// update applies fn to the state and notifies subscribers with the result.
func (o *Observable) update(fn func(*State), invalidated bool) State {
	o.mu.Lock()
	prev := o.state.clone()
	fn(&o.state)
	next := o.state.clone()
	listeners := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		listeners = append(listeners, l)
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(Change{Previous: prev.clone(), Current: next.clone(), Invalidated: invalidated})
	}
	return next
}
