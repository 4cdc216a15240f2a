package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
)

// fanOutLimit bounds the per-entity detail fetches on the order board.
const fanOutLimit = 8

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the back-office view onto the remote admin endpoints.
type Service interface {
	Users(ctx context.Context) ([]models.UserProfile, error)
	DeleteUser(ctx context.Context, customerID int64) error
	UpdateUserRole(ctx context.Context, customerID int64, role string) error

	Books(ctx context.Context) ([]models.Audiobook, error)
	AddBook(ctx context.Context, book models.Audiobook) (*models.Audiobook, error)
	DeleteBook(ctx context.Context, bookID int64) error
	UpdatePrice(ctx context.Context, bookID int64, price float64) error
	UploadAudio(ctx context.Context, bookID int64, filename string, file io.Reader) error

	OrderBoard(ctx context.Context) (*Board, error)
}

// Board is everything the order management page shows: completed orders,
// pending carts, and the user/book details they reference.
type Board struct {
	Orders []models.Order
	Carts  []models.BookCart
	Users  map[int64]models.UserProfile
	Books  map[int64]models.Audiobook
}

// Total prices a set of audiobook ids against the resolved book details.
func (b *Board) Total(ids []int64) float64 {
	var total float64
	for _, id := range ids {
		total += b.Books[id].Price
	}
	return total
}

type ServiceImpl struct {
	client *api.Client
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{client: client, logger: logger}
}

func (s *ServiceImpl) Users(ctx context.Context) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := s.client.Get(ctx, "/admin/getAllUsers", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *ServiceImpl) DeleteUser(ctx context.Context, customerID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("/admin/user/%d", customerID))
}

func (s *ServiceImpl) UpdateUserRole(ctx context.Context, customerID int64, role string) error {
	return s.client.Put(ctx, fmt.Sprintf("/admin/user/update-role/%d", customerID)+api.Query("role", role), nil, nil)
}

func (s *ServiceImpl) userByID(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.client.Get(ctx, fmt.Sprintf("/admin/user/getByUserId/%d", userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *ServiceImpl) Books(ctx context.Context) ([]models.Audiobook, error) {
	var books []models.Audiobook
	if err := s.client.Get(ctx, "/admin/all-audiobooks", &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *ServiceImpl) AddBook(ctx context.Context, book models.Audiobook) (*models.Audiobook, error) {
	var added models.Audiobook
	if err := s.client.Post(ctx, "/admin/audiobook/add", book, &added); err != nil {
		return nil, err
	}
	s.logger.Info("Audiobook added", zap.Int64("book_id", added.BookID), zap.String("title", added.Title))
	return &added, nil
}

func (s *ServiceImpl) DeleteBook(ctx context.Context, bookID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("/admin/audiobook/delete/%d", bookID))
}

func (s *ServiceImpl) UpdatePrice(ctx context.Context, bookID int64, price float64) error {
	return s.client.Put(ctx,
		fmt.Sprintf("/admin/audiobook/update-price/%d", bookID)+api.Query("price", fmt.Sprintf("%.2f", price)),
		nil, nil)
}

func (s *ServiceImpl) UploadAudio(ctx context.Context, bookID int64, filename string, file io.Reader) error {
	return s.client.Upload(ctx,
		fmt.Sprintf("/admin/audiobook/upload-audio/%d", bookID),
		"audioFile", filename, file, nil)
}

func (s *ServiceImpl) bookByID(ctx context.Context, bookID int64) (*models.Audiobook, error) {
	var book models.Audiobook
	if err := s.client.Get(ctx, fmt.Sprintf("/audiobooks/%d", bookID), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// OrderBoard fetches orders and pending carts, then fans out detail lookups
// for every referenced user and audiobook in parallel with bounded
// concurrency. One unresolvable detail fails the board; the page prefers a
// single inline error over silently incomplete rows.
func (s *ServiceImpl) OrderBoard(ctx context.Context) (*Board, error) {
	ctx, span := otel.Tracer("chapterly-storefront/admin").Start(ctx, "AdminService.OrderBoard")
	defer span.End()

	board := &Board{
		Users: make(map[int64]models.UserProfile),
		Books: make(map[int64]models.Audiobook),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.client.Get(gctx, "/admin/orders/get-all", &board.Orders)
	})
	g.Go(func() error {
		return s.client.Get(gctx, "/admin/all/bookcarts", &board.Carts)
	})
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, "order board feeds failed")
		return nil, err
	}

	userIDs := make(map[int64]struct{})
	bookIDs := make(map[int64]struct{})
	for _, o := range board.Orders {
		userIDs[o.UserID] = struct{}{}
		for _, id := range o.AudiobookIDs {
			bookIDs[id] = struct{}{}
		}
	}
	for _, bc := range board.Carts {
		userIDs[bc.UserID] = struct{}{}
		for _, id := range bc.AudiobookIDs {
			bookIDs[id] = struct{}{}
		}
	}

	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for id := range userIDs {
		g.Go(func() error {
			user, err := s.userByID(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			board.Users[id] = *user
			mu.Unlock()
			return nil
		})
	}
	for id := range bookIDs {
		g.Go(func() error {
			book, err := s.bookByID(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			board.Books[id] = *book
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, "order board fan-out failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("board.orders", len(board.Orders)),
		attribute.Int("board.carts", len(board.Carts)),
	)

	sort.Slice(board.Orders, func(i, j int) bool { return board.Orders[i].OrderID > board.Orders[j].OrderID })
	sort.Slice(board.Carts, func(i, j int) bool { return board.Carts[i].CartID > board.Carts[j].CartID })
	return board, nil
}

// PendingCarts filters the board to carts that still hold items.
func (b *Board) PendingCarts() []models.BookCart {
	pending := make([]models.BookCart, 0, len(b.Carts))
	for _, c := range b.Carts {
		if len(c.AudiobookIDs) > 0 {
			pending = append(pending, c)
		}
	}
	return pending
}
