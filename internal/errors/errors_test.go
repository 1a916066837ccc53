package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   Category
	}{
		{"bad token", http.StatusUnauthorized, CodeBadToken, CategorySession},
		{"missing token", http.StatusUnauthorized, CodeMissingToken, CategorySession},
		{"bare 401", http.StatusUnauthorized, "", CategorySession},
		{"chat locked", http.StatusForbidden, CodeChatLocked, CategoryAccessPending},
		{"access denied", http.StatusForbidden, CodeAccessDenied, CategoryAccessPending},
		{"bare 403", http.StatusForbidden, "", CategoryAccessPending},

		// The body code outranks the status class.
		{"403 carrying bad_token", http.StatusForbidden, CodeBadToken, CategorySession},
		{"200 carrying CHAT_LOCKED", http.StatusOK, CodeChatLocked, CategoryAccessPending},

		{"server file reject", http.StatusBadRequest, CodeInvalidFileType, CategoryValidation},
		{"server size reject", http.StatusBadRequest, CodeFileTooLarge, CategoryValidation},
		{"not found", http.StatusNotFound, "", CategoryNotFound},
		{"request timeout", http.StatusRequestTimeout, "", CategoryConnectivity},
		{"gateway timeout", http.StatusGatewayTimeout, "", CategoryConnectivity},
		{"internal error", http.StatusInternalServerError, "", CategoryServer},
		{"bad gateway", http.StatusBadGateway, "", CategoryServer},
		{"plain 400", http.StatusBadRequest, "", CategoryUnknown},
		{"unrecognized code", http.StatusOK, "something_else", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.code))
		})
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrSessionInvalid,
		ErrChatLocked,
		ErrNotFound,
		ErrTimeout,
		ErrConnectivity,
		ErrServerFault,
	}
	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinel errors should be distinct: %q vs %q", sentinels[i], sentinels[j])
		}
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "session", CategorySession.String())
	assert.Equal(t, "validation", CategoryValidation.String())
	assert.Equal(t, "unknown", CategoryUnknown.String())
	assert.Equal(t, "unknown", Category(99).String())
}
