package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/observability/metrics"
	"github.com/chapterly/storefront/internal/pkg/api"
)

type Handlers struct {
	base    *domain.BaseHandler
	service Service
	logger  *zap.Logger
}

func NewHandlers(base *domain.BaseHandler, service Service, logger *zap.Logger) *Handlers {
	return &Handlers{base: base, service: service, logger: logger}
}

type loginPage struct {
	models.Layout
	Email string
}

type registerPage struct {
	models.Layout
	Username string
	Email    string
}

// ShowLogin renders the sign-in form. A `registered` query flag carries the
// post-registration notice.
func (h *Handlers) ShowLogin(c *gin.Context) {
	page := loginPage{Layout: h.base.Layout(c, "Sign In - Chapterly", "")}
	if c.Query("registered") != "" {
		page.Notice = "Account created. Sign in to continue."
	}
	c.HTML(http.StatusOK, "login", page)
}

func (h *Handlers) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register", registerPage{
		Layout: h.base.Layout(c, "Create Account - Chapterly", ""),
	})
}

// Login validates the form, exchanges credentials with the remote service
// and persists the session. Wrong credentials stay an inline message on this
// page; the global 401 policy is for already-established sessions only.
func (h *Handlers) Login(c *gin.Context) {
	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("endpoint", "login")))

	email := c.PostForm("email")
	password := c.PostForm("password")

	page := loginPage{Layout: h.base.Layout(c, "Sign In - Chapterly", ""), Email: email}

	if email == "" || password == "" {
		page.Error = "Email and password are required"
		c.HTML(http.StatusBadRequest, "login", page)
		return
	}

	creds, err := h.service.Login(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			h.logger.Warn("Invalid login credentials", zap.String("email", email))
			page.Error = "Invalid email or password"
			c.HTML(http.StatusUnauthorized, "login", page)
			return
		}
		h.logger.Error("Login call failed", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Sign-in is unavailable right now. Please try again later.")
		c.HTML(http.StatusBadGateway, "login", page)
		return
	}

	if err := h.base.Sessions.SetCredentials(c, creds.Token, creds.User, creds.Role); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		page.Error = "Could not start your session. Please try again."
		c.HTML(http.StatusInternalServerError, "login", page)
		return
	}

	target := "/"
	if creds.Role == models.RoleAdmin {
		target = "/admin/users"
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handlers) Register(c *gin.Context) {
	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("endpoint", "register")))

	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	page := registerPage{
		Layout:   h.base.Layout(c, "Create Account - Chapterly", ""),
		Username: username,
		Email:    email,
	}

	if username == "" || email == "" || password == "" || confirm == "" {
		page.Error = "All fields are required"
		c.HTML(http.StatusBadRequest, "register", page)
		return
	}
	if password != confirm {
		page.Error = "Passwords do not match"
		c.HTML(http.StatusBadRequest, "register", page)
		return
	}

	if err := h.service.Register(c.Request.Context(), username, email, password); err != nil {
		h.logger.Error("Registration call failed", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Registration failed. Please try again.")
		c.HTML(http.StatusBadRequest, "register", page)
		return
	}

	c.Redirect(http.StatusFound, "/login?registered=1")
}

// Logout clears the session and returns to the sign-in page. Clearing an
// absent record is a no-op, so this always succeeds for the visitor.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.base.Sessions.Logout(c); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/login")
}
