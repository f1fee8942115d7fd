// Package session holds the credentials of the signed in user of a client
// and persists them between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNoSession is returned by a Store that has nothing saved.
var ErrNoSession = errors.New("no session")

// Snapshot is the persisted state of a signed in user.
type Snapshot struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

func (s Snapshot) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// Session is the current user state shared by all requests of a client.
// Writes go through to the Store.
type Session struct {
	mu    sync.RWMutex
	snap  *Snapshot
	store Store
}

// New returns an empty session. A nil store keeps the session in memory.
func New(store Store) *Session {
	return &Session{store: store}
}

// Load replaces the in-memory state with the persisted snapshot. A missing
// snapshot leaves the session signed out.
func (s *Session) Load(ctx context.Context) error {
	const op = "session.Load"

	if s.store == nil {
		return nil
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			s.mu.Lock()
			s.snap = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()

	return nil
}

// Current returns a copy of the snapshot and whether a user is signed in.
func (s *Session) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return Snapshot{}, false
	}

	out := *s.snap
	out.Roles = slices.Clone(s.snap.Roles)
	return out, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return ""
	}
	return s.snap.Token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return ""
	}
	return s.snap.RefreshToken
}

func (s *Session) Set(ctx context.Context, snap Snapshot) error {
	const op = "session.Set"

	snap.Roles = slices.Clone(snap.Roles)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.snap = &snap
	return nil
}

// SetToken replaces the access token and, when refresh is not empty, the
// refresh token of the current user. It fails when nobody is signed in.
func (s *Session) SetToken(ctx context.Context, token, refresh string) error {
	const op = "session.SetToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return fmt.Errorf("%s: %w", op, ErrNoSession)
	}

	next := *s.snap
	next.Token = token
	if refresh != "" {
		next.RefreshToken = refresh
	}

	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.snap = &next
	return nil
}

// Clear signs the user out. The in-memory state is cleared even when the
// store fails.
func (s *Session) Clear(ctx context.Context) error {
	const op = "session.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = nil

	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// ClearIfSignedIn clears the session and reports whether a user was signed
// in. Of several concurrent callers exactly one gets true.
func (s *Session) ClearIfSignedIn(ctx context.Context) (bool, error) {
	const op = "session.ClearIfSignedIn"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return false, nil
	}
	s.snap = nil

	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			return true, fmt.Errorf("%s: %w", op, err)
		}
	}

	return true, nil
}
