package admin

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
)

// maxAudioUpload caps the audio file size accepted from the form (64 MiB).
const maxAudioUpload = 64 << 20

var errFormIncomplete = errors.New("title, author and numeric fields are required")

// CatalogInvalidator lets book mutations drop the cached consumer listing so
// shoppers see the change on their next page load.
type CatalogInvalidator interface {
	InvalidateListing()
}

type Handlers struct {
	base    *domain.BaseHandler
	service Service
	catalog CatalogInvalidator
	logger  *zap.Logger
}

func NewHandlers(base *domain.BaseHandler, service Service, catalog CatalogInvalidator, logger *zap.Logger) *Handlers {
	return &Handlers{base: base, service: service, catalog: catalog, logger: logger}
}

// ShowDashboard sends /admin to the user list, the back-office landing page.
func (h *Handlers) ShowDashboard(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin/users")
}

type usersPage struct {
	models.Layout
	Users []models.UserProfile
	Roles []string
}

// ShowUsers renders the user management table.
func (h *Handlers) ShowUsers(c *gin.Context) {
	page := usersPage{
		Layout: h.base.Layout(c, "Manage Users - Chapterly", "Users"),
		Roles:  []string{models.RoleUser, models.RoleAdmin},
	}
	page.Notice = c.Query("notice")
	page.Error = c.Query("error")

	users, err := h.service.Users(c.Request.Context())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to fetch users", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Failed to fetch users")
		c.HTML(http.StatusBadGateway, "admin_users", page)
		return
	}

	page.Users = users
	c.HTML(http.StatusOK, "admin_users", page)
}

// DeleteUser removes an account. Admins cannot delete themselves; the remote
// would happily orphan the session otherwise.
func (h *Handlers) DeleteUser(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		h.redirectUsers(c, "", "Invalid user id")
		return
	}
	if sess := session.Current(c); sess.UserID() == customerID {
		h.redirectUsers(c, "", "You cannot delete your own account")
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), customerID); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to delete user", zap.Int64("customer_id", customerID), zap.Error(err))
		h.redirectUsers(c, "", domain.ErrorMessage(err, "Failed to delete user"))
		return
	}

	h.logger.Info("User deleted", zap.Int64("customer_id", customerID))
	h.redirectUsers(c, "User deleted", "")
}

// UpdateRole grants or revokes the admin role via the posted form value.
func (h *Handlers) UpdateRole(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		h.redirectUsers(c, "", "Invalid user id")
		return
	}
	role := c.PostForm("role")
	if role != models.RoleUser && role != models.RoleAdmin {
		h.redirectUsers(c, "", "Unknown role")
		return
	}
	if sess := session.Current(c); sess.UserID() == customerID {
		h.redirectUsers(c, "", "You cannot change your own role")
		return
	}

	if err := h.service.UpdateUserRole(c.Request.Context(), customerID, role); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to update role",
			zap.Int64("customer_id", customerID),
			zap.String("role", role),
			zap.Error(err),
		)
		h.redirectUsers(c, "", domain.ErrorMessage(err, "Failed to update role"))
		return
	}

	h.redirectUsers(c, "Role updated", "")
}

type booksPage struct {
	models.Layout
	Books     []models.Audiobook
	Languages []string
}

// ShowBooks renders the catalog management table with the add-book form.
func (h *Handlers) ShowBooks(c *gin.Context) {
	page := booksPage{
		Layout:    h.base.Layout(c, "Manage Audiobooks - Chapterly", "Books"),
		Languages: []string{"English", "Hindi", "Spanish", "French", "German"},
	}
	page.Notice = c.Query("notice")
	page.Error = c.Query("error")

	books, err := h.service.Books(c.Request.Context())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to fetch audiobooks", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Failed to fetch audiobooks")
		c.HTML(http.StatusBadGateway, "admin_books", page)
		return
	}

	page.Books = books
	c.HTML(http.StatusOK, "admin_books", page)
}

// AddBook creates a catalog entry from the posted form.
func (h *Handlers) AddBook(c *gin.Context) {
	book, err := bookFromForm(c)
	if err != nil {
		h.redirectBooks(c, "", err.Error())
		return
	}

	added, err := h.service.AddBook(c.Request.Context(), book)
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to add audiobook", zap.String("title", book.Title), zap.Error(err))
		h.redirectBooks(c, "", domain.ErrorMessage(err, "Failed to add audiobook"))
		return
	}

	h.catalog.InvalidateListing()
	h.redirectBooks(c, "Added "+added.Title, "")
}

// DeleteBook removes a catalog entry.
func (h *Handlers) DeleteBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		h.redirectBooks(c, "", "Invalid audiobook id")
		return
	}

	if err := h.service.DeleteBook(c.Request.Context(), bookID); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to delete audiobook", zap.Int64("book_id", bookID), zap.Error(err))
		h.redirectBooks(c, "", domain.ErrorMessage(err, "Failed to delete audiobook"))
		return
	}

	h.catalog.InvalidateListing()
	h.redirectBooks(c, "Audiobook deleted", "")
}

// UpdatePrice changes a single book's price.
func (h *Handlers) UpdatePrice(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		h.redirectBooks(c, "", "Invalid audiobook id")
		return
	}
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		h.redirectBooks(c, "", "Price must be a non-negative number")
		return
	}

	if err := h.service.UpdatePrice(c.Request.Context(), bookID, price); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to update price", zap.Int64("book_id", bookID), zap.Error(err))
		h.redirectBooks(c, "", domain.ErrorMessage(err, "Failed to update price"))
		return
	}

	h.catalog.InvalidateListing()
	h.redirectBooks(c, "Price updated", "")
}

// UploadAudio streams the posted audio file through to the remote service.
func (h *Handlers) UploadAudio(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("bookID"), 10, 64)
	if err != nil {
		h.redirectBooks(c, "", "Invalid audiobook id")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioUpload)
	header, err := c.FormFile("audioFile")
	if err != nil {
		h.redirectBooks(c, "", "Choose an audio file to upload")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.redirectBooks(c, "", "Could not read the uploaded file")
		return
	}
	defer file.Close()

	if err := h.service.UploadAudio(c.Request.Context(), bookID, header.Filename, file); err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to upload audio",
			zap.Int64("book_id", bookID),
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		h.redirectBooks(c, "", domain.ErrorMessage(err, "Failed to upload audio"))
		return
	}

	h.catalog.InvalidateListing()
	h.redirectBooks(c, "Audio uploaded for book "+strconv.FormatInt(bookID, 10), "")
}

type ordersPage struct {
	models.Layout
	Board *Board
}

// ShowOrders renders the combined board of completed orders and pending carts.
func (h *Handlers) ShowOrders(c *gin.Context) {
	page := ordersPage{Layout: h.base.Layout(c, "Manage Orders - Chapterly", "Orders")}

	board, err := h.service.OrderBoard(c.Request.Context())
	if err != nil {
		if h.base.HandleRemoteError(c, err) {
			return
		}
		h.logger.Error("Failed to build order board", zap.Error(err))
		page.Error = domain.ErrorMessage(err, "Failed to fetch orders")
		c.HTML(http.StatusBadGateway, "admin_orders", page)
		return
	}

	page.Board = board
	c.HTML(http.StatusOK, "admin_orders", page)
}

func bookFromForm(c *gin.Context) (models.Audiobook, error) {
	var book models.Audiobook
	book.Title = c.PostForm("title")
	book.Author = c.PostForm("author")
	book.Narrator = c.PostForm("narrator")
	book.ReleaseDate = c.PostForm("release_date")
	book.Language = c.PostForm("language")
	if book.Title == "" || book.Author == "" {
		return book, errFormIncomplete
	}

	var err error
	if book.Time, err = strconv.Atoi(c.DefaultPostForm("time", "0")); err != nil || book.Time < 0 {
		return book, errFormIncomplete
	}
	if book.Price, err = strconv.ParseFloat(c.DefaultPostForm("price", "0"), 64); err != nil || book.Price < 0 {
		return book, errFormIncomplete
	}
	if book.Stars, err = strconv.ParseFloat(c.DefaultPostForm("stars", "0"), 64); err != nil {
		return book, errFormIncomplete
	}
	if book.Ratings, err = strconv.Atoi(c.DefaultPostForm("ratings", "0")); err != nil {
		return book, errFormIncomplete
	}
	return book, nil
}

func (h *Handlers) redirectUsers(c *gin.Context, notice, errMsg string) {
	c.Redirect(http.StatusFound, withFlash("/admin/users", notice, errMsg))
}

func (h *Handlers) redirectBooks(c *gin.Context, notice, errMsg string) {
	c.Redirect(http.StatusFound, withFlash("/admin/books", notice, errMsg))
}

func withFlash(path, notice, errMsg string) string {
	switch {
	case errMsg != "":
		return path + "?error=" + url.QueryEscape(errMsg)
	case notice != "":
		return path + "?notice=" + url.QueryEscape(notice)
	}
	return path
}
