// Package api talks to the clinic messaging REST API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ewhitmore/clinic-chat/internal/chat"
	"github.com/ewhitmore/clinic-chat/internal/errors"
	"github.com/ewhitmore/clinic-chat/internal/transfer"
)

// StatusError is a non-2xx API response. Status and Code carry
// independent meaning; callers consult both (a 403 with bad_token is a
// session problem, a 403 with CHAT_LOCKED is access gating).
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API returned %d (%s)", e.Status, e.Code)
	}

	return fmt.Sprintf("API returned %d", e.Status)
}

// Category buckets the error per the shared taxonomy.
func (e *StatusError) Category() errors.Category {
	return errors.Classify(e.Status, e.Code)
}

// Client is a thin wrapper over the transfer controller for the
// conversation endpoints.
type Client struct {
	baseURL string
	token   string
	ctrl    *transfer.Controller
	logger  *slog.Logger
}

// NewClient creates an API client rooted at baseURL, authenticating
// with the given bearer token.
func NewClient(baseURL, token string, ctrl *transfer.Controller, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		ctrl:    ctrl,
		logger:  logger,
	}
}

// BaseURL returns the configured server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the session token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// resultError converts a failed transfer result into an error. HTTP
// failures become a *StatusError with the server envelope intact.
func resultError(res transfer.Result) error {
	switch res.Outcome {
	case transfer.HTTPError:
		return &StatusError{Status: res.Status, Code: res.ServerCode, Message: res.ServerMessage}
	case transfer.Timeout:
		return fmt.Errorf("%w: %w", errors.ErrTimeout, res.Err)
	case transfer.Cancelled:
		return res.Err
	default:
		return fmt.Errorf("%w: %w", errors.ErrConnectivity, res.Err)
	}
}

// FetchMessages returns the canonical message list for a conversation,
// in server order.
func (c *Client) FetchMessages(ctx context.Context, convID string) ([]chat.Message, error) {
	endpoint := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, url.PathEscape(convID))

	res := c.ctrl.Get(ctx, endpoint, c.token, transfer.MetadataDeadline)
	if !res.OK() {
		return nil, fmt.Errorf("fetching messages: %w", resultError(res))
	}

	msgs, err := chat.DecodeMessages(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	return msgs, nil
}

// SendText posts a text message to a conversation.
func (c *Client) SendText(ctx context.Context, convID, text string) error {
	endpoint := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, url.PathEscape(convID))

	body, err := json.Marshal(map[string]string{
		"text": text,
		"type": "text",
	})
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	res := c.ctrl.PostJSON(ctx, endpoint, c.token, body, transfer.MetadataDeadline)
	if !res.OK() {
		return fmt.Errorf("sending message: %w", resultError(res))
	}

	return nil
}

// UploadAttachment posts a file to the attachments endpoint. isImage
// tells the server which rendering path the attachment takes.
func (c *Client) UploadAttachment(ctx context.Context, convID, filename string, r io.Reader, isImage bool) error {
	fields := map[string]string{
		"conversationId": convID,
	}
	if isImage {
		fields["isImage"] = "true"
	}

	file := transfer.MultipartFile{
		FieldName: "files",
		FileName:  filename,
		Reader:    r,
	}

	res := c.ctrl.PostMultipart(ctx, c.baseURL+"/attachments", c.token, file, fields, transfer.FileDeadline)
	if !res.OK() {
		return fmt.Errorf("uploading attachment: %w", resultError(res))
	}

	return nil
}
