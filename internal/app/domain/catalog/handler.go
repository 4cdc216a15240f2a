package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
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

// card is one catalog entry plus its per-user state, driving the
// Listen / View Cart / Add to Cart button.
type card struct {
	models.Audiobook
	Purchased bool
	InCart    bool
}

type catalogPage struct {
	models.Layout
	Cards     []card
	Query     string
	Searching bool
}

type playerPage struct {
	models.Layout
	Book *models.Audiobook
}

// ShowCatalog renders the audiobook listing, optionally narrowed by the `q`
// title search, with ownership and cart state resolved for the signed-in
// user.
func (h *Handlers) ShowCatalog(c *gin.Context) {
	sess := session.Current(c)
	q := c.Query("q")
	if q != "" {
		metrics.Get().SearchRequestsTotal.Add(c.Request.Context(), 1,
			metric.WithAttributes(attribute.String("endpoint", "/audiobooks")))
	}

	books, err := h.service.ListAudiobooks(c.Request.Context())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		page := catalogPage{Layout: h.base.Layout(c, "Audiobooks - Chapterly", "Audiobooks")}
		page.Error = domain.ErrorMessage(err, "Failed to fetch audiobooks")
		c.HTML(http.StatusBadGateway, "catalog", page)
		return
	}

	page := catalogPage{
		Layout:    h.base.Layout(c, "Audiobooks - Chapterly", "Audiobooks"),
		Query:     q,
		Searching: q != "",
	}

	books = FilterByTitle(books, q)

	// Without a profile there is no per-user state to resolve; the page
	// still renders, all buttons default to Add to Cart.
	var status *Status
	if sess.User != nil {
		status, err = h.service.BookStatus(c.Request.Context(), sess.UserID())
		if err != nil {
			if h.base.HandleRemoteError(c, err) {
				return
			}
			h.logger.Warn("Failed to resolve book status", zap.Error(err))
		}
	}

	for _, b := range books {
		entry := card{Audiobook: b}
		if status != nil {
			entry.Purchased = status.Purchased[b.BookID]
			entry.InCart = status.InCart[b.BookID]
		}
		page.Cards = append(page.Cards, entry)
	}

	c.HTML(http.StatusOK, "catalog", page)
}

// AddToCart handles the card button for books not yet owned or carted.
func (h *Handlers) AddToCart(c *gin.Context) {
	sess := session.Current(c)
	if sess.User == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusFound, "/audiobooks")
		return
	}

	if err := h.service.AddToCart(c.Request.Context(), sess.UserID(), bookID); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to add to cart", zap.Int64("book_id", bookID), zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/audiobooks")
}

// ShowPlayer renders the listen page for a purchased book.
func (h *Handlers) ShowPlayer(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusFound, "/audiobooks")
		return
	}

	page := playerPage{Layout: h.base.Layout(c, "Listen - Chapterly", "Audiobooks")}

	book, err := h.service.Audiobook(c.Request.Context(), bookID)
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		page.Error = domain.ErrorMessage(err, "Audiobook not found")
		c.HTML(http.StatusNotFound, "player", page)
		return
	}

	page.Book = book
	c.HTML(http.StatusOK, "player", page)
}

// StreamAudio proxies the audio asset to the browser. The remote decides
// entitlement: a 403 for an unpurchased book surfaces on the player page.
func (h *Handlers) StreamAudio(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	resp, err := h.service.StreamAudio(c.Request.Context(), bookID, c.GetHeader("Range"))
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		if api.IsForbidden(err) {
			c.String(http.StatusForbidden, "This audiobook has not been purchased")
			return
		}
		h.logger.Error("Failed to open audio stream", zap.Int64("book_id", bookID), zap.Error(err))
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	extra := map[string]string{}
	if v := resp.Header.Get("Accept-Ranges"); v != "" {
		extra["Accept-Ranges"] = v
	}
	if v := resp.Header.Get("Content-Range"); v != "" {
		extra["Content-Range"] = v
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, extra)
}
