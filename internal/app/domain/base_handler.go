package domain

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// BaseHandler carries what every page handler needs: the logger, the session
// manager and the shared layout/unauthorized plumbing.
type BaseHandler struct {
	Logger   *zap.Logger
	Sessions *session.Manager
}

func NewBaseHandler(logger *zap.Logger, sessions *session.Manager) *BaseHandler {
	return &BaseHandler{Logger: logger, Sessions: sessions}
}

// Layout assembles the chrome for a page. An ADMIN role gets the back-office
// navigation bar, everyone else the consumer one; anonymous visitors get the
// public links. The guards remain the enforcement point.
func (h *BaseHandler) Layout(c *gin.Context, title, activeNav string) models.Layout {
	sess := session.Current(c)
	nav := models.PublicNav
	if sess.IsAuthenticated {
		nav = models.MainNav
		if sess.Role == models.RoleAdmin {
			nav = models.AdminNav
		}
	}
	return models.Layout{
		Title:           title,
		Nav:             nav,
		ActiveNav:       activeNav,
		User:            sess.User,
		Role:            sess.Role,
		IsAuthenticated: sess.IsAuthenticated,
		AdminArea:       sess.Role == models.RoleAdmin,
	}
}

// HandleRemoteError implements the one globally-handled failure: an
// unauthorized answer from the remote service. The transport only signals it;
// this routing-layer hook clears the whole session record and sends the
// browser to the login page. Returns true when the request is finished.
// Every other failure stays with the caller as an inline message.
func (h *BaseHandler) HandleRemoteError(c *gin.Context, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	if lerr := h.Sessions.Logout(c); lerr != nil {
		h.Logger.Error("Failed to clear session after 401", zap.Error(lerr))
	}
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Redirect", "/login")
		c.AbortWithStatus(http.StatusUnauthorized)
		return true
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
	return true
}

// ErrorMessage flattens a remote failure into the inline message views show.
func ErrorMessage(err error, fallback string) string {
	var apiErr *api.Error
	if api.AsError(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return "Something went wrong. Please try again later."
}
