package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
	"github.com/chapterly/storefront/internal/observability/metrics"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// PaymentModes the payment form offers; the remote service interprets them.
var PaymentModes = []string{"credit", "debit", "upi", "netbanking"}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service wraps remote order placement and purchase history.
type Service interface {
	Place(ctx context.Context, userID int64, paymentMode string) (string, error)
	PurchasedBooks(ctx context.Context, userID int64) ([]int64, error)
}

type ServiceImpl struct {
	client *api.Client
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{client: client, logger: logger}
}

// Place asks the remote service to turn the user's cart into an order with
// the chosen payment mode. The service answers with a plain confirmation
// message.
func (s *ServiceImpl) Place(ctx context.Context, userID int64, paymentMode string) (string, error) {
	ctx, span := otel.Tracer("chapterly-storefront/orders").Start(ctx, "OrderService.Place")
	defer span.End()
	span.SetAttributes(attribute.String("order.payment_mode", paymentMode))

	message, err := s.client.PostText(ctx, fmt.Sprintf("/orders/place/%d/%s", userID, paymentMode))
	if err != nil {
		span.SetStatus(codes.Error, "order placement failed")
		return "", err
	}

	s.logger.Info("Order placed",
		zap.Int64("user_id", userID),
		zap.String("payment_mode", paymentMode),
	)
	return message, nil
}

// PurchasedBooks returns the ids of every audiobook the user owns.
func (s *ServiceImpl) PurchasedBooks(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := s.client.Get(ctx, fmt.Sprintf("/orders/purchased-books/%d", userID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type Handlers struct {
	base    *domain.BaseHandler
	service Service
	cart    CartReader
	catalog CatalogReader
	logger  *zap.Logger
}

// CartReader is the slice of the cart service the payment page needs.
type CartReader interface {
	Items(ctx context.Context, userID int64) ([]models.Audiobook, error)
}

// CatalogReader resolves purchased ids into full records for the library.
type CatalogReader interface {
	ListAudiobooks(ctx context.Context) ([]models.Audiobook, error)
}

func NewHandlers(base *domain.BaseHandler, service Service, cart CartReader, catalog CatalogReader, logger *zap.Logger) *Handlers {
	return &Handlers{base: base, service: service, cart: cart, catalog: catalog, logger: logger}
}

type paymentPage struct {
	models.Layout
	Items        []models.Audiobook
	Total        float64
	PaymentModes []string
	Selected     string
	NoProfile    bool
}

type confirmationPage struct {
	models.Layout
	Message string
}

// ShowPayment renders the order summary and payment-mode form from the
// current remote cart.
func (h *Handlers) ShowPayment(c *gin.Context) {
	sess := session.Current(c)
	page := paymentPage{
		Layout:       h.base.Layout(c, "Payment - Chapterly", "Cart"),
		PaymentModes: PaymentModes,
		Selected:     "credit",
	}

	if sess.User == nil {
		page.NoProfile = true
		c.HTML(http.StatusOK, "payment", page)
		return
	}

	items, err := h.cart.Items(c.Request.Context(), sess.UserID())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		page.Error = "Failed to load your order details"
		c.HTML(http.StatusBadGateway, "payment", page)
		return
	}

	page.Items = items
	page.Total = models.CartTotal(items)
	c.HTML(http.StatusOK, "payment", page)
}

// SubmitPayment places the order. An empty cart and remote business failures
// stay inline on the payment page; success redirects to the confirmation.
func (h *Handlers) SubmitPayment(c *gin.Context) {
	sess := session.Current(c)
	mode := c.PostForm("payment_mode")
	if !validMode(mode) {
		mode = "credit"
	}

	page := paymentPage{
		Layout:       h.base.Layout(c, "Payment - Chapterly", "Cart"),
		PaymentModes: PaymentModes,
		Selected:     mode,
	}

	if sess.User == nil {
		page.NoProfile = true
		page.Error = "Please login to complete payment"
		c.HTML(http.StatusOK, "payment", page)
		return
	}

	items, err := h.cart.Items(c.Request.Context(), sess.UserID())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		page.Error = "Failed to load your order details"
		c.HTML(http.StatusBadGateway, "payment", page)
		return
	}
	page.Items = items
	page.Total = models.CartTotal(items)

	if len(items) == 0 {
		page.Error = models.ErrEmptyCart.Error()
		c.HTML(http.StatusBadRequest, "payment", page)
		return
	}

	message, err := h.service.Place(c.Request.Context(), sess.UserID(), mode)
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Order placement failed", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Payment service unavailable. Please try again later.")
		c.HTML(http.StatusBadGateway, "payment", page)
		return
	}

	metrics.Get().OrdersPlacedTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("payment_mode", mode)))
	c.Redirect(http.StatusFound, "/order-confirmation?message="+url.QueryEscape(message))
}

// ShowConfirmation renders the post-purchase page.
func (h *Handlers) ShowConfirmation(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		message = "Your order has been placed."
	}
	c.HTML(http.StatusOK, "order_confirmation", confirmationPage{
		Layout:  h.base.Layout(c, "Order Confirmed - Chapterly", ""),
		Message: message,
	})
}

type libraryPage struct {
	models.Layout
	Books     []models.Audiobook
	NoProfile bool
}

// ShowLibrary renders every audiobook the user has purchased, ready to play.
func (h *Handlers) ShowLibrary(c *gin.Context) {
	sess := session.Current(c)
	page := libraryPage{Layout: h.base.Layout(c, "My Library - Chapterly", "Library")}

	if sess.User == nil {
		page.NoProfile = true
		c.HTML(http.StatusOK, "library", page)
		return
	}

	ids, err := h.service.PurchasedBooks(c.Request.Context(), sess.UserID())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		page.Error = domain.ErrorMessage(err, "Failed to fetch your library")
		c.HTML(http.StatusBadGateway, "library", page)
		return
	}

	if len(ids) > 0 {
		books, err := h.catalog.ListAudiobooks(c.Request.Context())
		if err != nil {
			if h.base.HandleRemoteError(c, err) {
				return
			}
			page.Error = domain.ErrorMessage(err, "Failed to fetch your library")
			c.HTML(http.StatusBadGateway, "library", page)
			return
		}
		owned := make(map[int64]bool, len(ids))
		for _, id := range ids {
			owned[id] = true
		}
		for _, b := range books {
			if owned[b.BookID] {
				page.Books = append(page.Books, b)
			}
		}
	}

	c.HTML(http.StatusOK, "library", page)
}

func validMode(mode string) bool {
	for _, m := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}
