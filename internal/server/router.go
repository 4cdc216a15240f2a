package server

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chapterly/storefront/internal/app/middleware"
	"github.com/chapterly/storefront/internal/routes"
)

// SetupRouter configures and returns the Gin router with all middleware and routes
func (s *Server) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(s.logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Context:    zapContextFunc(),
	}))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))
	r.Use(otelgin.Middleware("chapterly-storefront"))
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.SecurityMiddleware())

	// The cookie backend stores the session record inside the encrypted
	// cookie itself, so the sessions middleware must wrap every route.
	if s.cfg.Session.Backend == "cookie" {
		store := cookie.NewStore([]byte(s.cfg.Session.Secret))
		store.Options(sessions.Options{
			Path:     "/",
			MaxAge:   int(s.cfg.Session.TTL.Seconds()),
			HttpOnly: true,
		})
		r.Use(sessions.Sessions(s.cfg.Session.CookieName, store))
	}

	routes.Setup(r, s.client, s.sessions, s.logger)

	return r
}

// zapContextFunc returns the Zap context function for logging
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		return fields
	}
}
