// Package upload turns a local file into a posted attachment: validate,
// transfer, map server errors, then trigger a resync.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ewhitmore/clinic-chat/internal/api"
	"github.com/ewhitmore/clinic-chat/internal/attach"
	errs "github.com/ewhitmore/clinic-chat/internal/errors"
	"github.com/ewhitmore/clinic-chat/internal/platform"
)

// ValidationError is a client-side reject; the network was never
// touched.
type ValidationError struct {
	Verdict attach.Verdict
}

func (e *ValidationError) Error() string {
	return "attachment rejected: " + e.Verdict.String()
}

// Uploader is the API surface the pipeline needs. *api.Client
// satisfies it.
type Uploader interface {
	UploadAttachment(ctx context.Context, convID, filename string, r io.Reader, isImage bool) error
}

// Resyncer triggers an immediate poll after a successful upload so the
// posted attachment appears without waiting for the next tick.
// *engine.Session satisfies it.
type Resyncer interface {
	ForcePoll(ctx context.Context) error
}

// Pipeline validates and uploads one attachment per call. Concurrent
// invocations are the caller's responsibility to prevent; the pipeline
// itself queues nothing.
type Pipeline struct {
	convID    string
	uploader  Uploader
	resync    Resyncer
	navigator platform.Navigator
	logger    *slog.Logger

	// One-time guards for the navigation side effects: concurrent
	// failures hitting the same condition cannot fire a redirect
	// twice. Scoped to this pipeline, which lives and dies with its
	// conversation.
	signOutOnce  sync.Once
	awaitingOnce sync.Once
}

// NewPipeline creates an upload pipeline for one conversation.
func NewPipeline(convID string, uploader Uploader, resync Resyncer, nav platform.Navigator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		convID:    convID,
		uploader:  uploader,
		resync:    resync,
		navigator: nav,
		logger:    logger,
	}
}

// Upload validates the file at path and posts it. mimeType may be
// empty, in which case it is derived from the extension; a file whose
// type cannot be established is rejected before any network call.
func (p *Pipeline) Upload(ctx context.Context, path, mimeType string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}

	if verdict := attach.Validate(ext, mimeType, info.Size()); verdict != attach.OK {
		p.logger.Info("attachment rejected",
			slog.String("file", filepath.Base(path)),
			slog.String("reason", verdict.String()),
		)

		return &ValidationError{Verdict: verdict}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	err = p.uploader.UploadAttachment(ctx, p.convID, filepath.Base(path), f, isImageMime(mimeType))
	if err != nil {
		return p.mapUploadError(err)
	}

	p.logger.Info("attachment uploaded", slog.String("file", filepath.Base(path)))

	if err := p.resync.ForcePoll(ctx); err != nil {
		// The upload itself succeeded; the attachment will appear on
		// the next timer tick.
		p.logger.Warn("post-upload resync failed", slog.Any("error", err))
	}

	return nil
}

// mapUploadError turns API failures into the user-facing categories.
// Session and access failures additionally trigger their one-time
// navigation side effect.
func (p *Pipeline) mapUploadError(err error) error {
	var se *api.StatusError
	if !errors.As(err, &se) {
		// Timeout or network fault: retryable by re-invoking Upload,
		// never retried automatically.
		return fmt.Errorf("%w: %w", errs.ErrConnectivity, err)
	}

	switch se.Category() {
	case errs.CategorySession:
		p.signOutOnce.Do(p.navigator.SignOut)
		return fmt.Errorf("%w: %w", errs.ErrSessionInvalid, err)
	case errs.CategoryAccessPending:
		p.awaitingOnce.Do(p.navigator.AwaitApproval)
		return fmt.Errorf("%w: %w", errs.ErrChatLocked, err)
	case errs.CategoryValidation:
		// The server second-guessed the client-side validator.
		return &ValidationError{Verdict: serverVerdict(se.Code)}
	default:
		return fmt.Errorf("%w: %w", errs.ErrServerFault, err)
	}
}

func serverVerdict(code string) attach.Verdict {
	if code == errs.CodeFileTooLarge {
		return attach.FileTooLarge
	}

	return attach.FormatUnsupported
}

// isImageMime mirrors the validator's image set for the isImage form
// field.
func isImageMime(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	switch mimeType {
	case "image/jpeg", "image/jpg", "image/png", "image/heic", "image/heif":
		return true
	default:
		return false
	}
}
