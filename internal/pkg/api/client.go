package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/chapterly/storefront/internal/pkg/config"
)

// ErrUnauthorized is returned for every 401 from the remote service. The
// handler layer observes it, clears the session and redirects to the login
// page; the transport itself never touches navigation.
var ErrUnauthorized = errors.New("store api: unauthorized")

// Error is any non-2xx remote response other than a 401. Message carries the
// service's `{"message": ...}` body when one was sent.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store api: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a remote 404. The cart endpoint answers
// 404 for an empty cart, which callers treat as a normal state.
func IsNotFound(err error) bool {
	var apiErr *Error
	return AsError(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsForbidden reports whether err is a remote 403, e.g. streaming a book the
// user has not purchased.
func IsForbidden(err error) bool {
	var apiErr *Error
	return AsError(err, &apiErr) && apiErr.Status == http.StatusForbidden
}

// AsError is a tiny alias so callers do not need to import errors alongside
// this package for the common unwrap.
func AsError(err error, target **Error) bool {
	return errors.As(err, target)
}

type tokenKey struct{}

// WithToken stores the bearer credential for outgoing requests issued with
// this context. The session middleware sets it on every hydrated request.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer credential, or "" when anonymous.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// bearerTransport attaches the Authorization header from the request context
// before every outgoing call.
type bearerTransport struct {
	next http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := TokenFromContext(req.Context()); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.next.RoundTrip(req)
}

// Client is the single HTTP doorway to the remote audiobook service. All
// business logic lives on the other side; this wrapper only shapes requests,
// attaches credentials and maps failures.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(cfg config.StoreAPIConfig, logger *zap.Logger) *Client {
	// Cookie jar kept for cross-origin session support, matching the
	// service's expectations for browser clients.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &bearerTransport{
				next: http.DefaultTransport,
			},
		},
	}
}

// Get issues a GET and decodes the JSON response into out (skipped when nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body (nil for empty) and decodes into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// Put issues a PUT with a JSON body (nil for empty) and decodes into out.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE, ignoring any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// PostText issues a POST and returns the raw response body. The order
// placement endpoint answers with a plain confirmation message.
func (c *Client) PostText(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// Upload sends a single file as multipart form data and decodes the JSON
// response into out when non-nil.
func (c *Client) Upload(ctx context.Context, path, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Stream issues a GET and hands the raw response to the caller, who owns the
// body. A non-empty byteRange is forwarded as the Range header so the remote
// can answer with 206 Partial Content. Used to pass audio assets through to
// the browser.
func (c *Client) Stream(ctx context.Context, path, byteRange string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "*/*")
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call GET %s: %w", path, err)
	}
	return c.checkStatus(http.MethodGet, path, resp)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// do performs the request and maps non-2xx statuses: 401 to ErrUnauthorized,
// anything else to *Error. On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	return c.checkStatus(method, path, resp)
}

// checkStatus maps non-2xx statuses to errors and closes the body for them.
// Successful responses, 206 Partial Content included, pass through untouched.
func (c *Client) checkStatus(method, path string, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.logger.Warn("Remote rejected credentials",
			zap.String("method", method),
			zap.String("path", path),
		)
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		resp.Body.Close()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return resp, nil
}

// readErrorMessage extracts the `message` field the service usually sends,
// falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// Query builds an escaped query suffix from key/value pairs.
func Query(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}
	values := url.Values{}
	for i := 0; i < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return "?" + values.Encode()
}
