package cart

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service wraps the per-user remote cart.
type Service interface {
	Items(ctx context.Context, userID int64) ([]models.Audiobook, error)
	Remove(ctx context.Context, userID, bookID int64) error
	Clear(ctx context.Context, userID int64) error
}

type ServiceImpl struct {
	client *api.Client
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{client: client, logger: logger}
}

// Items returns the cart contents. The remote answers 404 for an empty
// cart; that is a normal state here, not an error.
func (s *ServiceImpl) Items(ctx context.Context, userID int64) ([]models.Audiobook, error) {
	ctx, span := otel.Tracer("chapterly-storefront/cart").Start(ctx, "CartService.Items")
	defer span.End()

	var items []models.Audiobook
	if err := s.client.Get(ctx, fmt.Sprintf("/user/cart/get/%d", userID), &items); err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		span.SetStatus(codes.Error, "cart fetch failed")
		return nil, err
	}
	return items, nil
}

func (s *ServiceImpl) Remove(ctx context.Context, userID, bookID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("/user/cart/remove/%d/%d", userID, bookID))
}

func (s *ServiceImpl) Clear(ctx context.Context, userID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("/user/cart/clear/%d", userID))
}

type Handlers struct {
	base    *domain.BaseHandler
	service Service
	logger  *zap.Logger
}

func NewHandlers(base *domain.BaseHandler, service Service, logger *zap.Logger) *Handlers {
	return &Handlers{base: base, service: service, logger: logger}
}

type cartPage struct {
	models.Layout
	Items     []models.Audiobook
	Total     float64
	NoProfile bool
}

// ShowCart renders the cart. A session without a profile (corrupted stored
// record) gets a sign-in prompt instead of a remote call it cannot address.
func (h *Handlers) ShowCart(c *gin.Context) {
	sess := session.Current(c)
	page := cartPage{Layout: h.base.Layout(c, "Your Cart - Chapterly", "Cart")}

	if sess.User == nil {
		page.NoProfile = true
		c.HTML(http.StatusOK, "cart", page)
		return
	}

	items, err := h.service.Items(c.Request.Context(), sess.UserID())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to fetch cart", zap.Error(err))
		page.Error = "Failed to fetch cart items"
		c.HTML(http.StatusBadGateway, "cart", page)
		return
	}

	page.Items = items
	page.Total = models.CartTotal(items)
	c.HTML(http.StatusOK, "cart", page)
}

// RemoveItem drops one book from the cart and re-renders.
func (h *Handlers) RemoveItem(c *gin.Context) {
	sess := session.Current(c)
	if sess.User == nil {
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	if err := h.service.Remove(c.Request.Context(), sess.UserID(), bookID); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to remove cart item", zap.Int64("book_id", bookID), zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/cart")
}

// ClearCart empties the cart and re-renders.
func (h *Handlers) ClearCart(c *gin.Context) {
	sess := session.Current(c)
	if sess.User == nil {
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	if err := h.service.Clear(c.Request.Context(), sess.UserID()); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to clear cart", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/cart")
}
