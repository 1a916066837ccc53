// Package transfer executes single bounded, cancellable HTTP transfers
// and maps their outcomes to a typed result.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// Deadlines applied when the caller does not override them.
const (
	// FileDeadline bounds uploads and downloads of attachment bodies.
	FileDeadline = 60 * time.Second

	// MetadataDeadline bounds message list fetches and text sends.
	MetadataDeadline = 30 * time.Second
)

// Outcome is the terminal classification of one transfer.
type Outcome int

const (
	// Success means a 2xx response; Result.Payload holds the body.
	Success Outcome = iota

	// Timeout means the deadline expired and the in-flight transfer
	// was aborted.
	Timeout

	// Cancelled means the caller's context was cancelled.
	Cancelled

	// HTTPError means a non-2xx response; Result carries the status
	// and the server's error envelope, uninterpreted.
	HTTPError

	// NetworkError covers DNS failures, refused connections, resets,
	// and every other transport fault.
	NetworkError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	case HTTPError:
		return "http_error"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one transfer. For HTTPError, ServerCode and
// ServerMessage are the body's {error, message} envelope fields when the
// server sent one; the controller passes them through without
// interpreting them.
type Result struct {
	Outcome       Outcome
	Status        int
	ServerCode    string
	ServerMessage string
	Payload       []byte
	Err           error
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool {
	return r.Outcome == Success
}

// Controller runs one transfer at a time. It holds no per-conversation
// state; every call is independent.
type Controller struct {
	client *http.Client
	logger *slog.Logger
}

// NewController creates a Controller using the given http.Client.
// If client is nil, http.DefaultClient is used.
func NewController(client *http.Client, logger *slog.Logger) *Controller {
	if client == nil {
		client = http.DefaultClient
	}

	return &Controller{client: client, logger: logger}
}

// Do executes the request under the given deadline. The deadline is
// enforced with a derived context, so expiry actively aborts the
// in-flight transfer and releases the underlying connection rather than
// merely abandoning the wait.
func (c *Controller) Do(ctx context.Context, req *http.Request, deadline time.Duration) Result {
	if deadline <= 0 {
		deadline = MetadataDeadline
	}

	tctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resp, err := c.client.Do(req.WithContext(tctx))
	if err != nil {
		return c.classifyTransportError(ctx, tctx, req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classifyTransportError(ctx, tctx, req, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res := Result{
			Outcome:       HTTPError,
			Status:        resp.StatusCode,
			ServerCode:    gjson.GetBytes(body, "error").String(),
			ServerMessage: gjson.GetBytes(body, "message").String(),
		}
		c.logger.Debug("transfer rejected",
			slog.String("url", req.URL.Path),
			slog.Int("status", res.Status),
			slog.String("code", res.ServerCode),
		)

		return res
	}

	return Result{Outcome: Success, Status: resp.StatusCode, Payload: body}
}

// classifyTransportError separates our own deadline from a caller
// cancellation and from genuine network faults. The transport wraps the
// context error, so errors.Is sees through it.
func (c *Controller) classifyTransportError(ctx, tctx context.Context, req *http.Request, err error) Result {
	switch {
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		return Result{Outcome: Cancelled, Err: err}
	case tctx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
		c.logger.Debug("transfer deadline expired", slog.String("url", req.URL.Path))
		return Result{Outcome: Timeout, Err: err}
	default:
		c.logger.Debug("transfer failed", slog.String("url", req.URL.Path), slog.Any("error", err))
		return Result{Outcome: NetworkError, Err: err}
	}
}

// Get fetches url with the given bearer token under the deadline.
func (c *Controller) Get(ctx context.Context, url, token string, deadline time.Duration) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating request: %w", err)}
	}

	authorize(req, token)

	return c.Do(ctx, req, deadline)
}

// PostJSON posts a JSON body to url under the deadline.
func (c *Controller) PostJSON(ctx context.Context, url, token string, body []byte, deadline time.Duration) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	authorize(req, token)

	return c.Do(ctx, req, deadline)
}

// MultipartFile describes the file part of a multipart upload.
type MultipartFile struct {
	FieldName string
	FileName  string
	Reader    io.Reader
}

// PostMultipart posts a multipart form carrying one file plus string
// fields. The body is assembled in memory; attachment size caps are
// enforced by the validator well below anything that would strain it.
func (c *Controller) PostMultipart(ctx context.Context, url, token string, file MultipartFile, fields map[string]string, deadline time.Duration) Result {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return Result{Outcome: NetworkError, Err: fmt.Errorf("writing form field %s: %w", k, err)}
		}
	}

	part, err := w.CreateFormFile(file.FieldName, file.FileName)
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating form file: %w", err)}
	}

	if _, err := io.Copy(part, file.Reader); err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("reading file: %w", err)}
	}

	if err := w.Close(); err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("finalizing multipart body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	authorize(req, token)

	return c.Do(ctx, req, deadline)
}

// Download fetches url and writes the body to dest. The file is removed
// on any failure so a retry never sees a partial download.
func (c *Controller) Download(ctx context.Context, url, token, dest string, deadline time.Duration) Result {
	if deadline <= 0 {
		deadline = FileDeadline
	}

	tctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(tctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating request: %w", err)}
	}

	authorize(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyTransportError(ctx, tctx, req, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return Result{
			Outcome:       HTTPError,
			Status:        resp.StatusCode,
			ServerCode:    gjson.GetBytes(body, "error").String(),
			ServerMessage: gjson.GetBytes(body, "message").String(),
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return Result{Outcome: NetworkError, Err: fmt.Errorf("creating %s: %w", dest, err)}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)

		return c.classifyTransportError(ctx, tctx, req, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dest)

		return Result{Outcome: NetworkError, Err: fmt.Errorf("closing %s: %w", dest, err)}
	}

	return Result{Outcome: Success, Status: resp.StatusCode}
}

func authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
