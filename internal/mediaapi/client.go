// Package mediaapi is an HTTP client for the admin media endpoints: folder
// listing, file listing and multipart upload.
package mediaapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/slmtnm/s4admin/internal/auth"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediapath"
	"github.com/slmtnm/s4admin/internal/metrics"
	"github.com/slmtnm/s4admin/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormField is the multipart field carrying the uploaded file.
const FormField = "file"

// Client talks to {BaseURL}/admin/media.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      auth.TokenSource
	retryConfig retry.Config
	folders     singleflight.Group
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Tokens      auth.TokenSource
	RetryConfig retry.Config
	HTTPClient  *http.Client
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = auth.Static("")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		tokens:      cfg.Tokens,
		retryConfig: cfg.RetryConfig,
	}
}

// applyAuth adds the bearer token when one is stored. A token that cannot be
// read is logged and the request goes out unauthenticated.
func (c *Client) applyAuth(req *http.Request) {
	token, err := c.tokens.Token()
	if err != nil {
		logging.Warn("bearer token unavailable", zap.Error(err))
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.applyAuth(req)
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(op string, req *http.Request, out any) error {
	start := time.Now()
	log := logging.L().With(
		zap.String("op", op),
		zap.String("url", req.URL.Redacted()),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(op, time.Since(start), false)
		log.Debug("request failed", zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordAPIRequest(op, time.Since(start), false)
		se := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		log.Debug("request rejected", zap.Int("status", resp.StatusCode), zap.String("message", se.Message))
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordAPIRequest(op, time.Since(start), false)
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	metrics.RecordAPIRequest(op, time.Since(start), true)
	log.Debug("request completed", zap.Int("status", resp.StatusCode), logging.Duration("duration", time.Since(start)))
	return nil
}

// readErrorMessage extracts {"error": "..."} or falls back to the raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp ErrorResponse
	if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(data))
}

// retryable marks transport failures and 5xx responses for another attempt.
func retryable(err error) error {
	switch CategoryOf(err) {
	case CategoryTransport, CategoryServer:
		return retry.Retryable(err)
	}
	return err
}

// ListFolders returns the folder prefixes the server reports under prefix.
// The server may return deeper descendants too; see mediapath.DirectChildren.
// Concurrent calls for the same prefix share one request. The shared request
// is detached from any single caller's cancellation; a cancelled caller stops
// waiting while the others still get the result.
func (c *Client) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	prefix = mediapath.Normalize(prefix)
	shared := context.WithoutCancel(ctx)
	ch := c.folders.DoChan(prefix, func() (any, error) {
		return retry.Do(shared, c.retryConfig, func() ([]string, error) {
			u := c.baseURL + "/admin/media/folders?prefix=" + url.QueryEscape(prefix)
			req, err := c.newRequest(shared, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			var body FoldersResponse
			if err := c.do("list_folders", req, &body); err != nil {
				return nil, retryable(err)
			}
			return body.Folders, nil
		})
	})

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: "list_folders", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		folders := res.Val.([]string)
		return append([]string(nil), folders...), nil
	}
}

// ListFiles returns the objects stored directly under path.
func (c *Client) ListFiles(ctx context.Context, path string) ([]Media, error) {
	path = mediapath.Normalize(path)
	return retry.Do(ctx, c.retryConfig, func() ([]Media, error) {
		u := c.baseURL + "/admin/media/folder/" + mediapath.EncodeSegments(path)
		req, err := c.newRequest(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		var body FilesResponse
		if err := c.do("list_files", req, &body); err != nil {
			return nil, retryable(err)
		}
		files := make([]Media, 0, len(body.Files))
		for _, f := range body.Files {
			files = append(files, f.Media())
		}
		return files, nil
	})
}

// UploadURL returns the endpoint used for uploads into path. The root path
// uses the plain upload endpoint.
func (c *Client) UploadURL(path string) string {
	if mediapath.IsRoot(path) {
		return c.baseURL + "/admin/media/upload"
	}
	return c.baseURL + "/admin/media/upload/" + mediapath.EncodeSegments(path)
}

// Upload sends f as multipart field "file" to the upload endpoint for path.
// It makes exactly one attempt; fallback policy belongs to the caller.
func (c *Client) Upload(ctx context.Context, path string, f File) (*Media, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("upload %s: file has no content", f.Name)
	}
	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", f.Name, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, f, src))
	}()
	defer pr.Close()

	req, err := c.newRequest(ctx, http.MethodPost, c.UploadURL(path), pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var media Media
	if err := c.do("upload", req, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

func writeMultipart(mw *multipart.Writer, f File, src io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, escapeQuotes(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
