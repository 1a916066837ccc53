// Package chat holds the conversation data model shared by the sync
// engine and the attachment pipelines.
package chat

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Sender is the logical originator of a message, relative to this client.
// The server still sends a handful of legacy role labels; ParseSender
// collapses them onto these two values.
type Sender int

const (
	// SenderCounterparty is the other participant (clinic side).
	SenderCounterparty Sender = iota

	// SenderSelf is the current user.
	SenderSelf
)

func (s Sender) String() string {
	if s == SenderSelf {
		return "self"
	}

	return "counterparty"
}

// selfLabels are the legacy server role labels that mean "the current
// user" in a patient-side client. Anything else, including labels we
// have never seen, is treated as the counterparty: a wrongly classified
// counterpart message is only a missed alert, while a wrongly classified
// self message would alert the user about their own words.
var selfLabels = map[string]struct{}{
	"patient": {},
	"user":    {},
	"self":    {},
	"me":      {},
}

// ParseSender maps a server role label onto the two-valued Sender enum.
func ParseSender(label string) Sender {
	if _, ok := selfLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return SenderSelf
	}

	return SenderCounterparty
}

// Kind classifies a message by its content.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDocument:
		return "document"
	default:
		return "text"
	}
}

// ParseKind maps the wire "type" field onto a Kind. Unknown values fall
// back to text so an unrecognized message still renders as its body.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img", "photo":
		return KindImage
	case "document", "doc", "file":
		return KindDocument
	default:
		return KindText
	}
}

// Attachment is a binary payload owned by exactly one message.
type Attachment struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`

	// DerivedKind is image or document. Populated from the server's
	// fileType when present, otherwise derived from MimeType and the
	// filename extension.
	DerivedKind Kind `json:"-"`
}

// Message is immutable once received from the server.
type Message struct {
	ID         int64       `json:"id"`
	Sender     Sender      `json:"-"`
	Body       string      `json:"text"`
	Kind       Kind        `json:"-"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"-"`
}

// wireMessage mirrors the server payload for a single message.
type wireMessage struct {
	ID        int64           `json:"id"`
	From      string          `json:"from"`
	Text      string          `json:"text"`
	Type      string          `json:"type"`
	Attach    *wireAttachment `json:"attachment"`
	CreatedAt json.RawMessage `json:"createdAt"`
}

type wireAttachment struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	FileType string `json:"fileType"`
}

// DecodeMessages parses the server's message list payload
// ({"messages": [...]}) into the client model, preserving server order.
func DecodeMessages(data []byte) ([]Message, error) {
	var envelope struct {
		Messages []wireMessage `json:"messages"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding message list: %w", err)
	}

	msgs := make([]Message, 0, len(envelope.Messages))
	for i, wm := range envelope.Messages {
		m, err := wm.toMessage()
		if err != nil {
			return nil, fmt.Errorf("decoding message %d: %w", i, err)
		}

		msgs = append(msgs, m)
	}

	return msgs, nil
}

func (wm wireMessage) toMessage() (Message, error) {
	m := Message{
		ID:     wm.ID,
		Sender: ParseSender(wm.From),
		Body:   wm.Text,
		Kind:   ParseKind(wm.Type),
	}

	if len(wm.CreatedAt) > 0 {
		ts, err := parseTimestamp(wm.CreatedAt)
		if err != nil {
			return Message{}, err
		}

		m.CreatedAt = ts
	}

	if wm.Attach != nil {
		att := Attachment{
			Name:      wm.Attach.Name,
			SizeBytes: wm.Attach.Size,
			URL:       wm.Attach.URL,
			MimeType:  wm.Attach.MimeType,
		}
		att.DerivedKind = deriveAttachmentKind(wm.Attach.FileType, att.MimeType, att.Name)
		m.Attachment = &att

		// A message carrying an attachment but tagged "text" is
		// re-tagged from the attachment itself.
		if m.Kind == KindText {
			m.Kind = att.DerivedKind
		}
	}

	return m, nil
}

// parseTimestamp accepts the two formats the server has been observed to
// send: an RFC 3339 string or epoch milliseconds as a bare number.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing createdAt %q: %w", s, err)
		}

		return ts, nil
	}

	millis, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing createdAt %s: %w", raw, err)
	}

	return time.UnixMilli(millis).UTC(), nil
}

// imageMimes are the mime types rendered as images. Kept in sync with
// the upload validator's allowed image set.
var imageMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/heic": {},
	"image/heif": {},
}

var imageExts = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "heic": {}, "heif": {},
}

// deriveAttachmentKind resolves an attachment to image or document.
// The server's fileType wins when present; otherwise the mime type is
// consulted, then the filename extension.
func deriveAttachmentKind(fileType, mimeType, name string) Kind {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "image":
		return KindImage
	case "document", "doc", "file":
		return KindDocument
	}

	if _, ok := imageMimes[strings.ToLower(mimeType)]; ok {
		return KindImage
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}

	return KindDocument
}
