package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
	"github.com/chapterly/storefront/internal/pkg/config"
)

func newService(t *testing.T, handler http.HandlerFunc) *ServiceImpl {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(config.StoreAPIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	return NewService(client, zap.NewNop())
}

func TestLoginParsesCredentials(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jo@example.com", req.Email)

		json.NewEncoder(w).Encode(Credentials{
			Token: "tok-1",
			User:  &models.UserProfile{CustomerID: 3, Username: "jo"},
			Role:  models.RoleAdmin,
		})
	})

	creds, err := svc.Login(context.Background(), "jo@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, models.RoleAdmin, creds.Role)
	require.NotNil(t, creds.User)
	assert.Equal(t, int64(3), creds.User.CustomerID)
}

func TestLoginRoleFallsBackToProfile(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Credentials{
			Token: "tok-1",
			User:  &models.UserProfile{CustomerID: 3, Role: models.RoleAdmin},
		})
	})

	creds, err := svc.Login(context.Background(), "jo@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, creds.Role)
}

func TestLoginRoleDefaultsToUser(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Credentials{Token: "tok-1"})
	})

	creds, err := svc.Login(context.Background(), "jo@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, creds.Role)
}

func TestLoginEmptyTokenIsAnError(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Credentials{Token: ""})
	})

	_, err := svc.Login(context.Background(), "jo@example.com", "secret")
	assert.Error(t, err)
}

func TestLoginUnauthorizedPassesThrough(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.Login(context.Background(), "jo@example.com", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRegisterPostsPayload(t *testing.T) {
	var got registerRequest
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	})

	require.NoError(t, svc.Register(context.Background(), "jo", "jo@example.com", "secret"))
	assert.Equal(t, "jo", got.Username)
	assert.Equal(t, "jo@example.com", got.Email)
}
