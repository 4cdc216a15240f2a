package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/domain/admin"
	"github.com/chapterly/storefront/internal/app/domain/auth"
	"github.com/chapterly/storefront/internal/app/domain/cart"
	"github.com/chapterly/storefront/internal/app/domain/catalog"
	"github.com/chapterly/storefront/internal/app/domain/home"
	"github.com/chapterly/storefront/internal/app/domain/orders"
	"github.com/chapterly/storefront/internal/app/middleware"
	"github.com/chapterly/storefront/internal/app/session"
	"github.com/chapterly/storefront/internal/pkg/api"
)

type AppHandlers struct {
	Home    *home.Handlers
	Auth    *auth.Handlers
	Catalog *catalog.Handlers
	Cart    *cart.Handlers
	Orders  *orders.Handlers
	Admin   *admin.Handlers
}

// Setup wires services and handlers onto the router. Every route runs behind
// the session hydration middleware; the guard middlewares decide access from
// the hydrated session alone.
func Setup(r *gin.Engine, client *api.Client, sessions *session.Manager, log *zap.Logger) {
	handlers := setupDependencies(client, sessions, log)
	setupRouter(r, handlers, sessions)
}

func setupDependencies(client *api.Client, sessions *session.Manager, log *zap.Logger) *AppHandlers {
	baseHandler := domain.NewBaseHandler(log, sessions)

	authService := auth.NewService(client, log)
	catalogService := catalog.NewService(client, log)
	cartService := cart.NewService(client, log)
	orderService := orders.NewService(client, log)
	adminService := admin.NewService(client, log)

	return &AppHandlers{
		Home:    home.NewHandlers(baseHandler),
		Auth:    auth.NewHandlers(baseHandler, authService, log),
		Catalog: catalog.NewHandlers(baseHandler, catalogService, log),
		Cart:    cart.NewHandlers(baseHandler, cartService, log),
		Orders:  orders.NewHandlers(baseHandler, orderService, cartService, catalogService, log),
		Admin:   admin.NewHandlers(baseHandler, adminService, catalogService, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, sessions *session.Manager) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(sessions.Hydrate())

	r.GET("/", h.Home.ShowHomePage)

	// Signed-in visitors have no business on the auth forms.
	authGroup := r.Group("/")
	authGroup.Use(middleware.PublicOnly())
	{
		authGroup.GET("/login", h.Auth.ShowLogin)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.GET("/register", h.Auth.ShowRegister)
		authGroup.POST("/register", h.Auth.Register)
	}

	protected := r.Group("/")
	protected.Use(middleware.RequireAuth())
	{
		protected.POST("/logout", h.Auth.Logout)
		protected.GET("/audiobooks", h.Catalog.ShowCatalog)
		protected.POST("/cart/add/:bookID", h.Catalog.AddToCart)
		protected.GET("/cart", h.Cart.ShowCart)
		protected.POST("/cart/remove/:bookID", h.Cart.RemoveItem)
		protected.POST("/cart/clear", h.Cart.ClearCart)
		protected.GET("/payment", h.Orders.ShowPayment)
		protected.POST("/payment", h.Orders.SubmitPayment)
		protected.GET("/order-confirmation", h.Orders.ShowConfirmation)
		protected.GET("/library", h.Orders.ShowLibrary)
		protected.GET("/listen/:bookID", h.Catalog.ShowPlayer)
		protected.GET("/listen/:bookID/audio", h.Catalog.StreamAudio)
	}

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	{
		adminGroup.GET("", h.Admin.ShowDashboard)
		adminGroup.GET("/users", h.Admin.ShowUsers)
		adminGroup.POST("/users/:customerID/delete", h.Admin.DeleteUser)
		adminGroup.POST("/users/:customerID/role", h.Admin.UpdateRole)
		adminGroup.GET("/books", h.Admin.ShowBooks)
		adminGroup.POST("/books", h.Admin.AddBook)
		adminGroup.POST("/books/:bookID/delete", h.Admin.DeleteBook)
		adminGroup.POST("/books/:bookID/price", h.Admin.UpdatePrice)
		adminGroup.POST("/books/:bookID/audio", h.Admin.UploadAudio)
		adminGroup.GET("/orders", h.Admin.ShowOrders)
	}
}
