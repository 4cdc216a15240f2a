package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/app/models"
	"github.com/chapterly/storefront/internal/pkg/api"
	"github.com/chapterly/storefront/internal/pkg/config"
)

func newService(t *testing.T, handler http.Handler) *ServiceImpl {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(config.StoreAPIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	return NewService(client, zap.NewNop())
}

func TestUpdateUserRoleSendsQueryParameter(t *testing.T) {
	var gotPath, gotRole string
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotRole = r.URL.Query().Get("role")
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, svc.UpdateUserRole(context.Background(), 5, models.RoleAdmin))
	assert.Equal(t, "/admin/user/update-role/5", gotPath)
	assert.Equal(t, "ADMIN", gotRole)
}

func TestUpdatePriceSendsQueryParameter(t *testing.T) {
	var gotPrice string
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/audiobook/update-price/9", r.URL.Path)
		gotPrice = r.URL.Query().Get("price")
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, svc.UpdatePrice(context.Background(), 9, 14.5))
	assert.Equal(t, "14.50", gotPrice)
}

func TestUploadAudioSendsMultipart(t *testing.T) {
	var gotFilename, gotContent string
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/audiobook/upload-audio/9", r.URL.Path)
		file, header, err := r.FormFile("audioFile")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		raw, _ := io.ReadAll(file)
		gotContent = string(raw)
		w.Write([]byte(`{}`))
	}))

	err := svc.UploadAudio(context.Background(), 9, "chapter1.mp3", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "chapter1.mp3", gotFilename)
	assert.Equal(t, "audio-bytes", gotContent)
}

func TestOrderBoardResolvesEveryReference(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/orders/get-all", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Order{
			{OrderID: 10, UserID: 1, AudiobookIDs: []int64{1, 2}, PaymentMode: "credit"},
			{OrderID: 11, UserID: 2, AudiobookIDs: []int64{2}, PaymentMode: "upi"},
		})
	})
	mux.HandleFunc("/admin/all/bookcarts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.BookCart{
			{CartID: 20, UserID: 1, AudiobookIDs: []int64{3}},
			{CartID: 21, UserID: 2},
		})
	})
	mux.HandleFunc("/admin/user/getByUserId/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/admin/user/getByUserId/")
		json.NewEncoder(w).Encode(models.UserProfile{
			Username: "user-" + id,
			Email:    "user-" + id + "@example.com",
		})
	})
	mux.HandleFunc("/audiobooks/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/audiobooks/")
		json.NewEncoder(w).Encode(models.Audiobook{
			Title: "book-" + id,
			Price: 10,
		})
	})
	svc := newService(t, mux)

	board, err := svc.OrderBoard(context.Background())
	require.NoError(t, err)

	require.Len(t, board.Orders, 2)
	require.Len(t, board.Carts, 2)
	assert.Len(t, board.Users, 2)
	assert.Len(t, board.Books, 3)
	assert.Equal(t, "user-1", board.Users[1].Username)
	assert.Equal(t, "book-3", board.Books[3].Title)

	// Newest first.
	assert.Equal(t, int64(11), board.Orders[0].OrderID)
	assert.Equal(t, int64(21), board.Carts[0].CartID)

	assert.InDelta(t, 20.0, board.Total([]int64{1, 2}), 0.001)

	pending := board.PendingCarts()
	require.Len(t, pending, 1)
	assert.Equal(t, int64(20), pending[0].CartID)
}

func TestOrderBoardFailsWhenDetailLookupFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/orders/get-all", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Order{{OrderID: 10, UserID: 1, AudiobookIDs: []int64{1}}})
	})
	mux.HandleFunc("/admin/all/bookcarts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.BookCart{})
	})
	mux.HandleFunc("/admin/user/getByUserId/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.UserProfile{Username: "user-1"})
	})
	mux.HandleFunc("/audiobooks/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"gone"}`, http.StatusNotFound)
	})
	svc := newService(t, mux)

	_, err := svc.OrderBoard(context.Background())
	assert.Error(t, err)
}

func TestDeleteEndpoints(t *testing.T) {
	var gotPaths []string
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPaths = append(gotPaths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, svc.DeleteUser(context.Background(), 5))
	require.NoError(t, svc.DeleteBook(context.Background(), 9))
	assert.Equal(t, []string{"/admin/user/5", "/admin/audiobook/delete/9"}, gotPaths)
}

func TestAddBookReturnsCreatedRecord(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/audiobook/add", r.URL.Path)
		var in models.Audiobook
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.BookID = 99
		json.NewEncoder(w).Encode(in)
	}))

	added, err := svc.AddBook(context.Background(), models.Audiobook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.Equal(t, int64(99), added.BookID)
	assert.Equal(t, "Dune", added.Title)
}

func TestUsersListsEveryAccount(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/getAllUsers", r.URL.Path)
		fmt.Fprint(w, `[{"customerId":1,"username":"jo"},{"customerId":2,"username":"sam"}]`)
	}))

	users, err := svc.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "sam", users[1].Username)
}
