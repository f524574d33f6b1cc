// Package session tracks which demo user is active. A Session is an explicit
// object handed to whoever needs it; there is no package-level state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/castlemilk/demobank/internal/store"
)

// KeySelection is the storage key holding the serialized selection.
const KeySelection = "demobank.session"

// NewUserSentinel is the stored form of the signup-in-progress state.
const NewUserSentinel = "new"

// Kind is the state of a Selection.
type Kind int

const (
	// KindNone means no user is selected.
	KindNone Kind = iota
	// KindNew means a signup is in progress and no data exists yet.
	KindNew
	// KindUser means a concrete user is selected.
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNew:
		return "new"
	case KindUser:
		return "user"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Selection is the active-user state. The zero value is None.
type Selection struct {
	Kind   Kind
	UserID string
}

// None returns the no-user selection.
func None() Selection { return Selection{Kind: KindNone} }

// NewUser returns the signup-in-progress selection.
func NewUser() Selection { return Selection{Kind: KindNew} }

// User returns a selection of the given user ID. A blank ID is None.
func User(id string) Selection {
	id = strings.TrimSpace(id)
	if id == "" {
		return None()
	}
	return Selection{Kind: KindUser, UserID: id}
}

// Parse decodes the stored form: "" is None, "new" is NewUser, anything else a user ID.
func Parse(s string) Selection {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return None()
	case NewUserSentinel:
		return NewUser()
	default:
		return User(s)
	}
}

// String returns the stored form of the selection.
func (s Selection) String() string {
	switch s.Kind {
	case KindNew:
		return NewUserSentinel
	case KindUser:
		return s.UserID
	default:
		return ""
	}
}

// IsNone reports whether no user is selected.
func (s Selection) IsNone() bool { return s.Kind == KindNone }

// MarshalJSON encodes the selection as its stored form, null for None.
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts null, "new" or a user ID.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("selection must be a string or null: %w", err)
	}
	if raw == nil {
		*s = None()
		return nil
	}
	*s = Parse(*raw)
	return nil
}

// Session holds the current Selection and mirrors it to a store.
type Session struct {
	mu      sync.RWMutex
	store   store.Store
	log     zerolog.Logger
	current Selection
}

// New returns a session over s, starting at None until Load is called.
func New(s store.Store, log zerolog.Logger) *Session {
	return &Session{store: s, log: log}
}

// Load restores the persisted selection. Read failures are logged and leave
// the session at None.
func (s *Session) Load(ctx context.Context) Selection {
	raw, err := s.store.Get(ctx, KeySelection)
	sel := None()
	switch {
	case err == nil:
		sel = Parse(string(raw))
	case !errors.Is(err, store.ErrNotFound):
		s.log.Warn().Err(err).Str("key", KeySelection).Msg("session selection unreadable")
	}

	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()
	return sel
}

// Current returns the active selection.
func (s *Session) Current() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Select makes sel active and persists it. The in-memory selection changes
// even if persisting fails; the failure is logged and returned.
func (s *Session) Select(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()

	var err error
	if sel.IsNone() {
		err = s.store.Delete(ctx, KeySelection)
	} else {
		err = s.store.Set(ctx, KeySelection, []byte(sel.String()))
	}
	if err != nil {
		s.log.Warn().Err(err).Str("selection", sel.String()).Msg("session selection not persisted")
		return fmt.Errorf("persist selection: %w", err)
	}
	s.log.Debug().Str("kind", sel.Kind.String()).Str("user_id", sel.UserID).Msg("session selection changed")
	return nil
}

// Reset clears the selection, as on logout.
func (s *Session) Reset(ctx context.Context) error {
	return s.Select(ctx, None())
}
