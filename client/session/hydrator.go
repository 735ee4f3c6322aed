package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewbook/portal/client"
)

// ErrNotAuthenticated is returned by Token when no credential is held.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Backend is the server surface the hydrator needs. *client.Gateway
// satisfies it.
type Backend interface {
	UpsertUser(ctx context.Context, req client.UpsertUserRequest) (client.User, error)
}

var _ Backend = (*client.Gateway)(nil)

// Hydrator drives the session state machine. Dispatch feeds it provider
// events; after each sign-in it upserts the profile on the server in the
// background and merges the result. A generation counter discards hydration
// results that a later sign-in or sign-out has superseded.
type Hydrator struct {
	backend Backend
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	session  Session
	gen      uint64
	onChange func(Session)
}

// NewHydrator builds a Hydrator. A nil logger disables logging; onChange,
// when non-nil, is invoked after every state change.
func NewHydrator(backend Backend, logger *zap.Logger, onChange func(Session)) *Hydrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hydrator{
		backend:  backend,
		logger:   logger,
		timeout:  15 * time.Second,
		onChange: onChange,
	}
}

// Snapshot returns the current session.
func (h *Hydrator) Snapshot() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Token implements client.TokenSource with the session's current credential.
func (h *Hydrator) Token(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session.Token == "" {
		return "", ErrNotAuthenticated
	}
	return h.session.Token, nil
}

// Dispatch applies an event. SignedIn starts a background hydration;
// SignedOut and a newer SignedIn supersede any hydration still in flight.
func (h *Hydrator) Dispatch(ev Event) {
	h.mu.Lock()
	h.session = reduce(h.session, ev)

	var hydrate func()
	switch e := ev.(type) {
	case SignedIn:
		h.gen++
		gen := h.gen
		claim := e.Claim
		hydrate = func() { h.hydrate(gen, claim) }
	case SignedOut:
		h.gen++
	}
	next := h.session
	h.mu.Unlock()

	h.notify(next)
	if hydrate != nil {
		go hydrate()
	}
}

func (h *Hydrator) hydrate(gen uint64, claim Claim) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	user, err := h.backend.UpsertUser(ctx, client.UpsertUserRequest{
		FirebaseID:  claim.Subject,
		Email:       claim.Email,
		DisplayName: claim.Name,
		PhotoURL:    claim.PhotoURL,
	})

	h.mu.Lock()
	if gen != h.gen {
		// A later sign-in or sign-out owns the session now.
		h.mu.Unlock()
		return
	}

	if err != nil {
		h.logger.Warn("session hydration failed", zap.String("subject", claim.Subject), zap.Error(err))
		h.session = Session{}
		next := h.session
		h.mu.Unlock()
		h.notify(next)
		return
	}

	h.session = merged(h.session, user.ID, user.Name, user.PhotoURL, user.Title, user.CompanyID, time.Now())
	next := h.session
	h.mu.Unlock()
	h.notify(next)
}

func (h *Hydrator) notify(s Session) {
	if h.onChange != nil {
		h.onChange(s)
	}
}
