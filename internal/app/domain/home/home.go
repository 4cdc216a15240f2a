package home

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
)

type Handlers struct {
	base *domain.BaseHandler
}

func NewHandlers(base *domain.BaseHandler) *Handlers {
	return &Handlers{base: base}
}

type category struct {
	Name string
	Icon string
}

type homePage struct {
	models.Layout
	Categories []category
}

var categories = []category{
	{Name: "Bestsellers", Icon: "★"},
	{Name: "New Releases", Icon: "📖"},
	{Name: "Self-Development", Icon: "🎧"},
	{Name: "Fiction", Icon: "▶"},
}

// ShowHomePage renders the landing page. Every category tile links into the
// catalog.
func (h *Handlers) ShowHomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "home", homePage{
		Layout:     h.base.Layout(c, "Chapterly - Audiobooks", "Home"),
		Categories: categories,
	})
}
