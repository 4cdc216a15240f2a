package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
)

const (
	listCacheKey = "catalog:list"
	listCacheTTL = 5 * time.Minute
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the consumer-facing view onto the remote catalog and cart.
type Service interface {
	ListAudiobooks(ctx context.Context) ([]models.Audiobook, error)
	Audiobook(ctx context.Context, bookID int64) (*models.Audiobook, error)
	BookStatus(ctx context.Context, userID int64) (*Status, error)
	AddToCart(ctx context.Context, userID, bookID int64) error
	StreamAudio(ctx context.Context, bookID int64, byteRange string) (*http.Response, error)
	InvalidateListing()
}

// Status says which catalog entries the user already owns or has in the cart.
type Status struct {
	Purchased map[int64]bool
	InCart    map[int64]bool
}

type ServiceImpl struct {
	client *api.Client
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		client: client,
		cache:  gocache.New(listCacheTTL, 10*time.Minute),
		logger: logger,
	}
}

// ListAudiobooks returns the full catalog, served from the in-process cache
// for up to five minutes. The listing is identical for every user, so the
// cache is shared.
func (s *ServiceImpl) ListAudiobooks(ctx context.Context) ([]models.Audiobook, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cached.([]models.Audiobook), nil
	}

	ctx, span := otel.Tracer("chapterly-storefront/catalog").Start(ctx, "CatalogService.ListAudiobooks")
	defer span.End()

	var books []models.Audiobook
	if err := s.client.Get(ctx, "/user/all-audiobooks", &books); err != nil {
		span.SetStatus(codes.Error, "listing failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.count", len(books)))

	s.cache.Set(listCacheKey, books, gocache.DefaultExpiration)
	return books, nil
}

// Audiobook fetches a single catalog record, bypassing the listing cache.
func (s *ServiceImpl) Audiobook(ctx context.Context, bookID int64) (*models.Audiobook, error) {
	var book models.Audiobook
	if err := s.client.Get(ctx, fmt.Sprintf("/audiobooks/%d", bookID), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// BookStatus fetches the purchased-book ids and the cart in parallel, the
// same two calls the storefront card fires for every visit. A 404 from the
// cart endpoint means an empty cart, not a failure.
func (s *ServiceImpl) BookStatus(ctx context.Context, userID int64) (*Status, error) {
	ctx, span := otel.Tracer("chapterly-storefront/catalog").Start(ctx, "CatalogService.BookStatus")
	defer span.End()

	status := &Status{
		Purchased: make(map[int64]bool),
		InCart:    make(map[int64]bool),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var ids []int64
		if err := s.client.Get(gctx, fmt.Sprintf("/orders/purchased-books/%d", userID), &ids); err != nil {
			return err
		}
		for _, id := range ids {
			status.Purchased[id] = true
		}
		return nil
	})

	g.Go(func() error {
		var items []models.Audiobook
		if err := s.client.Get(gctx, fmt.Sprintf("/user/cart/get/%d", userID), &items); err != nil {
			if api.IsNotFound(err) {
				return nil
			}
			return err
		}
		for _, it := range items {
			status.InCart[it.BookID] = true
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, "status fan-out failed")
		return nil, err
	}
	return status, nil
}

// AddToCart puts one book into the user's remote cart. The service expects a
// list body even for a single id.
func (s *ServiceImpl) AddToCart(ctx context.Context, userID, bookID int64) error {
	if err := s.client.Post(ctx, fmt.Sprintf("/user/cart/add/%d", userID), []int64{bookID}, nil); err != nil {
		return err
	}
	s.logger.Info("Added audiobook to cart",
		zap.Int64("user_id", userID),
		zap.Int64("book_id", bookID),
	)
	return nil
}

// StreamAudio opens the remote audio asset for passthrough, forwarding the
// browser's Range header so seeking works. The caller owns the response
// body. A 403 means the book was not purchased.
func (s *ServiceImpl) StreamAudio(ctx context.Context, bookID int64, byteRange string) (*http.Response, error) {
	return s.client.Stream(ctx, fmt.Sprintf("/user/audiobook/play/%d", bookID), byteRange)
}

// InvalidateListing drops the cached catalog. Admin mutations call it so the
// storefront reflects changes without waiting out the TTL.
func (s *ServiceImpl) InvalidateListing() {
	s.cache.Delete(listCacheKey)
}

// FilterByTitle narrows the listing to titles containing q,
// case-insensitively. Empty q returns the input unchanged.
func FilterByTitle(books []models.Audiobook, q string) []models.Audiobook {
	q = strings.TrimSpace(q)
	if q == "" {
		return books
	}
	needle := strings.ToLower(q)
	filtered := make([]models.Audiobook, 0, len(books))
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), needle) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
