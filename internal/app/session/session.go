// Package session is the single source of truth for "who is logged in, with
// what token and role". The in-memory Session is request-scoped and derived
// from durable storage by the Hydrate middleware; every mutation writes
// through to storage so a process restart (or the next request) reproduces
// the same state.
package session

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// ErrEmptyToken rejects SetCredentials calls without a credential. A stored
// record is authenticated exactly when it carries a token, so an empty token
// is an input error rather than a logout.
var ErrEmptyToken = errors.New("session: token must not be empty")

// ErrNoRecord is returned by stores when no durable record exists.
var ErrNoRecord = errors.New("session: no stored record")

const contextKey = "chapterly.session"

// Session is the authenticated identity held for the current request.
// User may be nil even when authenticated: a corrupted stored profile
// degrades to an authenticated session without a profile.
type Session struct {
	User            *models.UserProfile
	Token           string
	Role            string
	IsAuthenticated bool
}

// UserID returns the customer id, or 0 when no profile is available.
func (s Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.CustomerID
}

// Record is the durable form of a session. It is stored as one serialized
// document under a single key so the token, profile and role are written and
// cleared atomically; partial-write states are unrepresentable.
type Record struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
	Role  string          `json:"userRole,omitempty"`
}

// Store is the durable key-value storage behind the session. Implementations
// are single-writer per browser session; Clear of a missing record is a
// no-op.
type Store interface {
	Load(c *gin.Context) (Record, error)
	Save(c *gin.Context, rec Record) error
	Clear(c *gin.Context) error
}

// Manager owns session mutations and hydration. It is constructed once at
// startup and injected wherever session state is read or written; there is
// no package-level singleton.
type Manager struct {
	store  Store
	logger *zap.Logger
}

func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// SetCredentials stores the post-login credentials: durable storage first,
// then the request-scoped session. Safe to call repeatedly with the same
// values.
func (m *Manager) SetCredentials(c *gin.Context, token string, user *models.UserProfile, role string) error {
	if token == "" {
		return ErrEmptyToken
	}

	rec := Record{Token: token, Role: role}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return err
		}
		rec.User = raw
	}

	if err := m.store.Save(c, rec); err != nil {
		return err
	}

	m.apply(c, Session{
		User:            user,
		Token:           token,
		Role:            role,
		IsAuthenticated: true,
	})
	return nil
}

// Logout wipes the request-scoped session and deletes the durable record.
func (m *Manager) Logout(c *gin.Context) error {
	if err := m.store.Clear(c); err != nil && !errors.Is(err, ErrNoRecord) {
		return err
	}
	m.apply(c, Session{})
	return nil
}

// Hydrate reconciles the request-scoped session with durable storage before
// any route renders. A stored token reproduces exactly the state
// SetCredentials would have left; a missing or tokenless record leaves the
// request logged out. The token is never validated here; an invalid one is
// discovered lazily when a remote call answers 401.
func (m *Manager) Hydrate() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := m.store.Load(c)
		if err != nil {
			if !errors.Is(err, ErrNoRecord) {
				m.logger.Warn("Failed to load session record", zap.Error(err))
			}
			m.apply(c, Session{})
			c.Next()
			return
		}
		if rec.Token == "" {
			m.apply(c, Session{})
			c.Next()
			return
		}

		sess := Session{
			Token:           rec.Token,
			Role:            rec.Role,
			IsAuthenticated: true,
		}
		if len(rec.User) > 0 {
			var user models.UserProfile
			if err := json.Unmarshal(rec.User, &user); err != nil {
				// Corrupted profile: keep the authenticated session,
				// views already treat User as optional.
				m.logger.Warn("Failed to parse stored user profile", zap.Error(err))
			} else {
				sess.User = &user
			}
		}

		m.apply(c, sess)
		c.Next()
	}
}

// apply installs the session on the gin context and threads the bearer token
// into the request context for the outbound HTTP client.
func (m *Manager) apply(c *gin.Context, sess Session) {
	c.Set(contextKey, sess)
	ctx := api.WithToken(c.Request.Context(), sess.Token)
	c.Request = c.Request.WithContext(ctx)
}

// Current is the selector every view and guard reads. It never fails: an
// unhydrated context reads as logged out.
func Current(c *gin.Context) Session {
	if v, ok := c.Get(contextKey); ok {
		if sess, ok := v.(Session); ok {
			return sess
		}
	}
	return Session{}
}
