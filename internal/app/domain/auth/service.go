package auth

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// Credentials is what the remote service answers a successful login with.
// The profile is passed through opaque; only token and role matter here.
type Credentials struct {
	Token string              `json:"token"`
	User  *models.UserProfile `json:"user"`
	Role  string              `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the remote authentication contract.
type Service interface {
	Login(ctx context.Context, email, password string) (*Credentials, error)
	Register(ctx context.Context, username, email, password string) error
}

type ServiceImpl struct {
	client *api.Client
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{client: client, logger: logger}
}

// Login exchanges credentials for a bearer token, profile and role. The
// token is opaque; the remote service issues and validates it.
func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*Credentials, error) {
	ctx, span := otel.Tracer("chapterly-storefront/auth").Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("auth.email", email))

	var creds Credentials
	if err := s.client.Post(ctx, "/login", loginRequest{Email: email, Password: password}, &creds); err != nil {
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}
	if creds.Token == "" {
		span.SetStatus(codes.Error, "empty token")
		return nil, fmt.Errorf("login response carried no token")
	}
	if creds.Role == "" {
		// Older service versions put the role only on the profile.
		if creds.User != nil && creds.User.Role != "" {
			creds.Role = creds.User.Role
		} else {
			creds.Role = models.RoleUser
		}
	}

	s.logger.Info("Login succeeded", zap.String("role", creds.Role))
	return &creds, nil
}

// Register creates an account. The caller signs in afterwards; the remote
// issues no token on registration.
func (s *ServiceImpl) Register(ctx context.Context, username, email, password string) error {
	ctx, span := otel.Tracer("chapterly-storefront/auth").Start(ctx, "AuthService.Register")
	defer span.End()

	if err := s.client.Post(ctx, "/register", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, nil); err != nil {
		span.SetStatus(codes.Error, "register failed")
		return err
	}
	return nil
}
