package admin

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/domain"
	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/app/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Users(ctx context.Context) ([]models.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserProfile), args.Error(1)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, customerID int64) error {
	return m.Called(ctx, customerID).Error(0)
}

func (m *MockAdminService) UpdateUserRole(ctx context.Context, customerID int64, role string) error {
	return m.Called(ctx, customerID, role).Error(0)
}

func (m *MockAdminService) Books(ctx context.Context) ([]models.Audiobook, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Audiobook), args.Error(1)
}

func (m *MockAdminService) AddBook(ctx context.Context, book models.Audiobook) (*models.Audiobook, error) {
	args := m.Called(ctx, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Audiobook), args.Error(1)
}

func (m *MockAdminService) DeleteBook(ctx context.Context, bookID int64) error {
	return m.Called(ctx, bookID).Error(0)
}

func (m *MockAdminService) UpdatePrice(ctx context.Context, bookID int64, price float64) error {
	return m.Called(ctx, bookID, price).Error(0)
}

func (m *MockAdminService) UploadAudio(ctx context.Context, bookID int64, filename string, file io.Reader) error {
	return m.Called(ctx, bookID, filename, file).Error(0)
}

func (m *MockAdminService) OrderBoard(ctx context.Context) (*Board, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Board), args.Error(1)
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateListing() { f.calls++ }

var pageStubs = template.Must(template.New("").Parse(`
{{define "admin_users"}}users error={{.Error}}{{end}}
{{define "admin_books"}}books error={{.Error}}{{end}}
{{define "admin_orders"}}orders error={{.Error}}{{end}}
`))

func newAdminRouter(t *testing.T, svc Service, inv CatalogInvalidator) *gin.Engine {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(nil, session.Record{
		Token: "tok",
		User:  []byte(`{"customerId":1,"username":"root"}`),
		Role:  models.RoleAdmin,
	}))

	sessions := session.NewManager(store, zap.NewNop())
	base := domain.NewBaseHandler(zap.NewNop(), sessions)
	h := NewHandlers(base, svc, inv, zap.NewNop())

	r := gin.New()
	r.SetHTMLTemplate(pageStubs)
	r.Use(sessions.Hydrate())
	r.POST("/admin/users/:customerID/delete", h.DeleteUser)
	r.POST("/admin/users/:customerID/role", h.UpdateRole)
	r.POST("/admin/books/:bookID/delete", h.DeleteBook)
	r.POST("/admin/books/:bookID/price", h.UpdatePrice)
	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	svc := new(MockAdminService)
	r := newAdminRouter(t, svc, &fakeInvalidator{})

	w := postForm(r, "/admin/users/1/delete", url.Values{})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "error=")
	svc.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestDeleteUserDelegates(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("DeleteUser", mock.Anything, int64(5)).Return(nil)
	r := newAdminRouter(t, svc, &fakeInvalidator{})

	w := postForm(r, "/admin/users/5/delete", url.Values{})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "notice=")
	svc.AssertExpectations(t)
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc := new(MockAdminService)
	r := newAdminRouter(t, svc, &fakeInvalidator{})

	w := postForm(r, "/admin/users/5/role", url.Values{"role": {"SUPERUSER"}})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "error=")
	svc.AssertNotCalled(t, "UpdateUserRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRoleRejectsSelf(t *testing.T) {
	svc := new(MockAdminService)
	r := newAdminRouter(t, svc, &fakeInvalidator{})

	postForm(r, "/admin/users/1/role", url.Values{"role": {models.RoleUser}})
	svc.AssertNotCalled(t, "UpdateUserRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRoleDelegates(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("UpdateUserRole", mock.Anything, int64(5), models.RoleAdmin).Return(nil)
	r := newAdminRouter(t, svc, &fakeInvalidator{})

	postForm(r, "/admin/users/5/role", url.Values{"role": {models.RoleAdmin}})
	svc.AssertExpectations(t)
}

func TestBookMutationsInvalidateCatalogCache(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("DeleteBook", mock.Anything, int64(9)).Return(nil)
	svc.On("UpdatePrice", mock.Anything, int64(9), 12.5).Return(nil)
	inv := &fakeInvalidator{}
	r := newAdminRouter(t, svc, inv)

	postForm(r, "/admin/books/9/delete", url.Values{})
	postForm(r, "/admin/books/9/price", url.Values{"price": {"12.5"}})

	assert.Equal(t, 2, inv.calls)
}

func TestUpdatePriceRejectsNegative(t *testing.T) {
	svc := new(MockAdminService)
	inv := &fakeInvalidator{}
	r := newAdminRouter(t, svc, inv)

	w := postForm(r, "/admin/books/9/price", url.Values{"price": {"-1"}})

	assert.Contains(t, w.Header().Get("Location"), "error=")
	assert.Zero(t, inv.calls)
	svc.AssertNotCalled(t, "UpdatePrice", mock.Anything, mock.Anything, mock.Anything)
}
