// Package retrieve downloads received attachments and hands them to the
// platform's open/share capability, with bounded retry.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	errs "github.com/ewhitmore/clinic-chat/internal/errors"
	"github.com/ewhitmore/clinic-chat/internal/platform"
	"github.com/ewhitmore/clinic-chat/internal/transfer"
)

// DownloadDeadline bounds one download attempt.
const DownloadDeadline = 30 * time.Second

// DefaultMaxAttempts bounds the retry loop.
const DefaultMaxAttempts = 3

// loopbackHosts are dev/emulator hosts a server-stored URL may embed
// when it was generated in a different network context. They are
// rewritten to the configured base address.
var loopbackHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"10.0.2.2":  {},
	"::1":       {},
}

// Request identifies one attachment to fetch and open. Retries re-use
// the request unchanged; no partial state carries over between
// attempts.
type Request struct {
	URL      string
	Filename string
	MimeType string

	// Share hands the downloaded copy to the platform opener. When
	// false, the file is only kept in the download directory.
	Share bool
}

// Receipt reports where the attachment landed and how many attempts it
// took.
type Receipt struct {
	Path     string
	Attempts int
}

// Pipeline composes the transfer controller with the platform delivery
// step.
type Pipeline struct {
	ctrl        *transfer.Controller
	delivery    platform.Delivery
	baseURL     string
	token       string
	dir         string
	maxAttempts int
	deadline    time.Duration
	logger      *slog.Logger
}

// Config holds the retrieval pipeline parameters.
type Config struct {
	Controller *transfer.Controller
	Delivery   platform.Delivery

	// BaseURL is the conversation's configured server address, used to
	// resolve relative URLs and rewrite loopback hosts.
	BaseURL string
	Token   string

	// Dir is the local directory downloads land in.
	Dir string

	// MaxAttempts bounds the retry loop; zero means DefaultMaxAttempts.
	MaxAttempts int

	// Deadline bounds one attempt; zero means DownloadDeadline.
	Deadline time.Duration
}

// NewPipeline creates a retrieval pipeline.
func NewPipeline(cfg Config, logger *slog.Logger) *Pipeline {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = DownloadDeadline
	}

	return &Pipeline{
		ctrl:        cfg.Controller,
		delivery:    cfg.Delivery,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		dir:         cfg.Dir,
		maxAttempts: maxAttempts,
		deadline:    deadline,
		logger:      logger,
	}
}

// Open fetches the attachment and, when requested, hands it to the
// platform. Connectivity failures are retried up to the attempt bound
// with identical arguments; auth and not-found failures are not, since
// repeating them cannot succeed.
func (p *Pipeline) Open(ctx context.Context, req Request) (Receipt, error) {
	target := NormalizeURL(req.URL, p.baseURL)

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("creating download directory: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		dest := filepath.Join(p.dir, localName(req.Filename))

		err := p.download(ctx, target, dest)
		if err == nil {
			p.logger.Debug("attachment downloaded",
				slog.String("url", target),
				slog.String("path", dest),
				slog.Int("attempt", attempt),
			)

			if req.Share {
				if err := p.delivery.Share(ctx, dest, req.MimeType); err != nil {
					return Receipt{Path: dest, Attempts: attempt}, fmt.Errorf("sharing %s: %w", dest, err)
				}
			}

			return Receipt{Path: dest, Attempts: attempt}, nil
		}

		lastErr = err

		if !retryable(err) {
			return Receipt{Attempts: attempt}, err
		}

		p.logger.Debug("download attempt failed",
			slog.String("url", target),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	return Receipt{Attempts: p.maxAttempts}, fmt.Errorf("opening attachment after %d attempts: %w", p.maxAttempts, lastErr)
}

// download runs one bounded attempt. The transfer is raced against an
// explicit timer in addition to its own deadline, so a hang anywhere in
// the transport layer cannot stall the caller indefinitely.
func (p *Pipeline) download(ctx context.Context, target, dest string) error {
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan transfer.Result, 1)

	go func() {
		done <- p.ctrl.Download(dctx, target, p.token, dest, p.deadline)
	}()

	timer := time.NewTimer(p.deadline + time.Second)
	defer timer.Stop()

	var res transfer.Result

	select {
	case res = <-done:
	case <-timer.C:
		// done is buffered, so the abandoned transfer's send cannot
		// block. Waiting for it here would re-introduce the stall this
		// race exists to bound when the transport ignores cancellation.
		cancel()
		return errs.ErrTimeout
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	switch res.Outcome {
	case transfer.Success:
		return nil
	case transfer.Timeout:
		return fmt.Errorf("%w: %s", errs.ErrTimeout, target)
	case transfer.Cancelled:
		return res.Err
	case transfer.HTTPError:
		return httpError(res)
	default:
		return fmt.Errorf("%w: %v", errs.ErrConnectivity, res.Err)
	}
}

// httpError classifies a non-2xx download response into the retrieval
// error set {timeout, network, not found, auth}.
func httpError(res transfer.Result) error {
	switch errs.Classify(res.Status, res.ServerCode) {
	case errs.CategoryNotFound:
		return fmt.Errorf("%w (status %d)", errs.ErrNotFound, res.Status)
	case errs.CategorySession:
		return fmt.Errorf("%w (status %d)", errs.ErrSessionInvalid, res.Status)
	case errs.CategoryAccessPending:
		return fmt.Errorf("%w (status %d)", errs.ErrChatLocked, res.Status)
	case errs.CategoryConnectivity:
		return fmt.Errorf("%w (status %d)", errs.ErrTimeout, res.Status)
	default:
		return fmt.Errorf("%w (status %d)", errs.ErrServerFault, res.Status)
	}
}

// retryable reports whether a failed attempt is worth repeating.
func retryable(err error) bool {
	switch {
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrSessionInvalid),
		errors.Is(err, errs.ErrChatLocked),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// NormalizeURL resolves an attachment URL against the configured base
// address: relative URLs are prefixed, and URLs embedding a loopback or
// emulator host are rewritten to the base host.
func NormalizeURL(raw, base string) string {
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		if !strings.HasPrefix(raw, "/") {
			raw = "/" + raw
		}

		return base + raw
	}

	if _, loopback := loopbackHosts[u.Hostname()]; loopback {
		bu, err := url.Parse(base)
		if err == nil && bu.Host != "" {
			u.Scheme = bu.Scheme
			u.Host = bu.Host

			return u.String()
		}
	}

	return u.String()
}

// localName builds a collision-resistant local filename: repeated opens
// of attachments with identical names must not overwrite each other's
// copies while a retry or a second download is in flight.
func localName(filename string) string {
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		filename = "attachment"
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	stamp := time.Now().UTC().Format("20060102T150405")

	return fmt.Sprintf("%s-%s-%s%s", stem, stamp, uuid.NewString()[:8], ext)
}
