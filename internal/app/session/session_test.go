package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(m *Manager) *gin.Engine {
	r := gin.New()
	r.Use(m.Hydrate())
	return r
}

func perform(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSetCredentialsStoresOneRecord(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, zap.NewNop())
	user := &models.UserProfile{CustomerID: 1, Username: "asha", Email: "asha@example.com"}

	r := newTestRouter(m)
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, m.SetCredentials(c, "abc", user, models.RoleAdmin))

		sess := Current(c)
		assert.True(t, sess.IsAuthenticated)
		assert.Equal(t, "abc", sess.Token)
		assert.Equal(t, models.RoleAdmin, sess.Role)
		assert.Equal(t, int64(1), sess.UserID())
		// The outbound client must see the fresh token immediately.
		assert.Equal(t, "abc", api.TokenFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodPost, "/login")

	rec, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "abc", rec.Token)
	assert.Equal(t, models.RoleAdmin, rec.Role)

	var stored models.UserProfile
	require.NoError(t, json.Unmarshal(rec.User, &stored))
	assert.Equal(t, *user, stored)
}

func TestSetCredentialsRejectsEmptyToken(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, zap.NewNop())

	r := newTestRouter(m)
	r.POST("/login", func(c *gin.Context) {
		err := m.SetCredentials(c, "", &models.UserProfile{CustomerID: 1}, models.RoleUser)
		assert.ErrorIs(t, err, ErrEmptyToken)
		assert.False(t, Current(c).IsAuthenticated)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodPost, "/login")

	_, ok := store.Snapshot()
	assert.False(t, ok, "no record may be written for an empty token")
}

func TestHydrateReproducesStoredSession(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, zap.NewNop())
	user := &models.UserProfile{CustomerID: 7, Username: "jo"}

	r := newTestRouter(m)
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, m.SetCredentials(c, "tok-7", user, models.RoleUser))
		c.Status(http.StatusOK)
	})
	var got Session
	r.GET("/whoami", func(c *gin.Context) {
		got = Current(c)
		assert.Equal(t, "tok-7", api.TokenFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodPost, "/login")
	perform(r, http.MethodGet, "/whoami")

	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, "tok-7", got.Token)
	assert.Equal(t, models.RoleUser, got.Role)
	require.NotNil(t, got.User)
	assert.Equal(t, "jo", got.User.Username)
}

func TestHydrateWithoutRecordIsLoggedOut(t *testing.T) {
	m := NewManager(NewMemoryStore(), zap.NewNop())

	r := newTestRouter(m)
	var got Session
	r.GET("/whoami", func(c *gin.Context) {
		got = Current(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/whoami")

	assert.False(t, got.IsAuthenticated)
	assert.Empty(t, got.Token)
	assert.Nil(t, got.User)
}

func TestHydrateTokenlessRecordIsLoggedOut(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(nil, Record{Role: models.RoleAdmin}))
	m := NewManager(store, zap.NewNop())

	r := newTestRouter(m)
	var got Session
	r.GET("/whoami", func(c *gin.Context) {
		got = Current(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/whoami")

	assert.False(t, got.IsAuthenticated)
	assert.Empty(t, got.Role)
}

func TestHydrateCorruptedProfileKeepsAuthentication(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(nil, Record{
		Token: "tok",
		User:  json.RawMessage(`{not json`),
		Role:  models.RoleUser,
	}))
	m := NewManager(store, zap.NewNop())

	r := newTestRouter(m)
	var got Session
	r.GET("/whoami", func(c *gin.Context) {
		got = Current(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/whoami")

	assert.True(t, got.IsAuthenticated)
	assert.Nil(t, got.User)
	assert.Equal(t, int64(0), got.UserID())
}

func TestLogoutClearsEverything(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, zap.NewNop())

	r := newTestRouter(m)
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, m.SetCredentials(c, "tok", &models.UserProfile{CustomerID: 2}, models.RoleUser))
		c.Status(http.StatusOK)
	})
	r.POST("/logout", func(c *gin.Context) {
		require.NoError(t, m.Logout(c))
		assert.False(t, Current(c).IsAuthenticated)
		assert.Empty(t, api.TokenFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodPost, "/login")
	perform(r, http.MethodPost, "/logout")

	_, ok := store.Snapshot()
	assert.False(t, ok)

	// A second logout with no record is still fine.
	perform(r, http.MethodPost, "/logout")
}

func TestCurrentOnUnhydratedContextIsZero(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	sess := Current(c)
	assert.False(t, sess.IsAuthenticated)
	assert.Equal(t, int64(0), sess.UserID())
}
