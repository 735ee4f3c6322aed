// Package session tracks the signed-in user's state on the client side. A
// small state machine reacts to identity-provider events and hydrates the
// server-side profile after each sign-in.
package session

import "time"

// State is the session lifecycle phase.
type State int

const (
	// StateUnauthenticated means no credential is held.
	StateUnauthenticated State = iota
	// StateHydrating means a credential is held and the server profile is
	// being fetched.
	StateHydrating
	// StateHydrated means the server profile is loaded.
	StateHydrated
)

func (s State) String() string {
	switch s {
	case StateHydrating:
		return "hydrating"
	case StateHydrated:
		return "hydrated"
	default:
		return "unauthenticated"
	}
}

// Claim is what the identity provider asserts about the user at sign-in.
type Claim struct {
	Subject  string
	Email    string
	Name     string
	PhotoURL string
	Token    string
}

// Session is the client-visible view of the signed-in user.
type Session struct {
	State      State
	UserID     string
	FirebaseID string
	Email      string
	Name       string
	PhotoURL   string
	Title      string
	CompanyID  string
	Token      string
	HydratedAt time.Time
}

// Event is a session input. The concrete types are SignedIn, SignedOut, and
// CredentialRefreshed.
type Event interface {
	isEvent()
}

// SignedIn reports a completed identity-provider sign-in.
type SignedIn struct {
	Claim Claim
}

// SignedOut reports that the credential was revoked or the user signed out.
type SignedOut struct{}

// CredentialRefreshed carries a renewed bearer token for the current user.
type CredentialRefreshed struct {
	Token string
}

func (SignedIn) isEvent()            {}
func (SignedOut) isEvent()           {}
func (CredentialRefreshed) isEvent() {}

// reduce computes the next session for an event. It is pure: hydration
// results are applied separately once the server responds.
func reduce(s Session, ev Event) Session {
	switch e := ev.(type) {
	case SignedIn:
		// A new sign-in always restarts hydration, even when one is in
		// flight for another account.
		return Session{
			State:      StateHydrating,
			FirebaseID: e.Claim.Subject,
			Email:      e.Claim.Email,
			Name:       e.Claim.Name,
			PhotoURL:   e.Claim.PhotoURL,
			Token:      e.Claim.Token,
		}
	case SignedOut:
		return Session{}
	case CredentialRefreshed:
		if s.State == StateUnauthenticated {
			return s
		}
		s.Token = e.Token
		return s
	default:
		return s
	}
}

// merged builds the hydrated session from the provider claim held in s and
// the server profile. The stored name and photo win over the provider's
// values when present; subject and email always follow the provider.
func merged(s Session, userID, name, photoURL, title, companyID string, at time.Time) Session {
	next := s
	next.State = StateHydrated
	next.UserID = userID
	if name != "" {
		next.Name = name
	}
	if photoURL != "" {
		next.PhotoURL = photoURL
	}
	next.Title = title
	next.CompanyID = companyID
	next.HydratedAt = at
	return next
}
