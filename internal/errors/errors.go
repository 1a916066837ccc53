// Package errors defines the error taxonomy shared by the transfer,
// upload, and retrieval paths.
package errors

import (
	"errors"
	"net/http"
)

// Client errors.
var (
	ErrSessionInvalid = errors.New("session token rejected")
	ErrChatLocked     = errors.New("chat access pending approval")
	ErrNotFound       = errors.New("attachment no longer available")
)

// Server/transport errors.
var (
	ErrTimeout      = errors.New("transfer deadline exceeded")
	ErrConnectivity = errors.New("network unavailable")
	ErrServerFault  = errors.New("transient server fault")
)

// Category buckets an error by how it is surfaced and recovered.
type Category int

const (
	// CategoryUnknown is anything the classifier cannot place.
	CategoryUnknown Category = iota

	// CategoryValidation is a client-side reject; the network was
	// never touched.
	CategoryValidation

	// CategoryConnectivity covers timeouts, aborts, and offline
	// failures; the user may retry.
	CategoryConnectivity

	// CategorySession means the token is bad or missing; recovered by
	// forcing re-authentication, exactly once.
	CategorySession

	// CategoryAccessPending means the account is not yet cleared to
	// chat; recovered by navigating to the waiting state.
	CategoryAccessPending

	// CategoryServer is a transient 5xx; the user may retry manually.
	CategoryServer

	// CategoryNotFound means the referenced resource is gone.
	CategoryNotFound
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryConnectivity:
		return "connectivity"
	case CategorySession:
		return "session"
	case CategoryAccessPending:
		return "access_pending"
	case CategoryServer:
		return "server"
	case CategoryNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Server body codes this client consumes. The HTTP status class and the
// body code carry independent meaning and are both consulted.
const (
	CodeBadToken        = "bad_token"
	CodeMissingToken    = "missing_token"
	CodeChatLocked      = "CHAT_LOCKED"
	CodeAccessDenied    = "access_denied"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
)

// Classify buckets an HTTP response by status and server body code.
// The body code is checked first: a 403 carrying bad_token is still a
// session problem, not an access-gating one.
func Classify(status int, code string) Category {
	switch code {
	case CodeBadToken, CodeMissingToken:
		return CategorySession
	case CodeChatLocked, CodeAccessDenied:
		return CategoryAccessPending
	case CodeInvalidFileType, CodeFileTooLarge:
		return CategoryValidation
	}

	switch {
	case status == http.StatusUnauthorized:
		return CategorySession
	case status == http.StatusForbidden:
		return CategoryAccessPending
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CategoryConnectivity
	case status >= 500:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}
