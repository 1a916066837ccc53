package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseSender ---

func TestParseSender_LegacyLabels(t *testing.T) {
	cases := map[string]Sender{
		"patient": SenderSelf,
		"PATIENT": SenderSelf,
		"user":    SenderSelf,
		"me":      SenderSelf,
		"clinic":  SenderCounterparty,
		"CLINIC":  SenderCounterparty,
		"admin":   SenderCounterparty,
		"doctor":  SenderCounterparty,
	}
	for label, want := range cases {
		assert.Equal(t, want, ParseSender(label), "label %q", label)
	}
}

func TestParseSender_UnknownLabelIsCounterparty(t *testing.T) {
	// A misclassified counterpart message is a missed alert; a
	// misclassified self message would alert the user about their own
	// words. Unknown labels take the safe side.
	assert.Equal(t, SenderCounterparty, ParseSender("receptionist"))
	assert.Equal(t, SenderCounterparty, ParseSender(""))
}

// --- ParseKind ---

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindText, ParseKind("text"))
	assert.Equal(t, KindImage, ParseKind("image"))
	assert.Equal(t, KindDocument, ParseKind("document"))
	assert.Equal(t, KindText, ParseKind("something-new"))
}

// --- DecodeMessages ---

func TestDecodeMessages_ServerOrderPreserved(t *testing.T) {
	payload := []byte(`{"messages":[
		{"id":3,"from":"clinic","text":"c","type":"text","createdAt":"2026-03-01T10:02:00Z"},
		{"id":1,"from":"patient","text":"a","type":"text","createdAt":"2026-03-01T10:00:00Z"},
		{"id":2,"from":"clinic","text":"b","type":"text","createdAt":"2026-03-01T10:01:00Z"}
	]}`)

	msgs, err := DecodeMessages(payload)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// No client-side re-sorting: the server list is the truth.
	assert.Equal(t, int64(3), msgs[0].ID)
	assert.Equal(t, int64(1), msgs[1].ID)
	assert.Equal(t, int64(2), msgs[2].ID)
}

func TestDecodeMessages_Fields(t *testing.T) {
	payload := []byte(`{"messages":[
		{"id":7,"from":"clinic","text":"see attached","type":"document",
		 "attachment":{"name":"results.pdf","size":2048,"url":"/files/results.pdf","mimeType":"application/pdf"},
		 "createdAt":"2026-03-01T09:30:00Z"}
	]}`)

	msgs, err := DecodeMessages(payload)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, SenderCounterparty, m.Sender)
	assert.Equal(t, KindDocument, m.Kind)
	assert.Equal(t, "see attached", m.Body)
	require.NotNil(t, m.Attachment)
	assert.Equal(t, "results.pdf", m.Attachment.Name)
	assert.Equal(t, int64(2048), m.Attachment.SizeBytes)
	assert.Equal(t, KindDocument, m.Attachment.DerivedKind)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), m.CreatedAt)
}

func TestDecodeMessages_EpochMillisTimestamp(t *testing.T) {
	payload := []byte(`{"messages":[{"id":1,"from":"clinic","text":"x","type":"text","createdAt":1767225600000}]}`)

	msgs, err := DecodeMessages(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(1767225600000), msgs[0].CreatedAt.UnixMilli())
}

func TestDecodeMessages_EmptyList(t *testing.T) {
	msgs, err := DecodeMessages([]byte(`{"messages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDecodeMessages_Malformed(t *testing.T) {
	_, err := DecodeMessages([]byte(`{broken`))
	assert.Error(t, err)
}

// --- attachment kind derivation ---

func TestDeriveAttachmentKind_ServerFileTypeWins(t *testing.T) {
	assert.Equal(t, KindImage, deriveAttachmentKind("image", "application/pdf", "scan.pdf"))
	assert.Equal(t, KindDocument, deriveAttachmentKind("document", "image/png", "x.png"))
}

func TestDeriveAttachmentKind_FallsBackToMime(t *testing.T) {
	assert.Equal(t, KindImage, deriveAttachmentKind("", "image/png", "whatever.bin"))
	assert.Equal(t, KindDocument, deriveAttachmentKind("", "application/pdf", "x.pdf"))
}

func TestDeriveAttachmentKind_FallsBackToExtension(t *testing.T) {
	assert.Equal(t, KindImage, deriveAttachmentKind("", "", "photo.HEIC"))
	assert.Equal(t, KindDocument, deriveAttachmentKind("", "", "notes.txt"))
}

func TestMessageWithAttachmentRetagged(t *testing.T) {
	// A message tagged "text" but carrying an image attachment renders
	// as an image.
	payload := []byte(`{"messages":[
		{"id":1,"from":"clinic","text":"","type":"text",
		 "attachment":{"name":"x.png","size":10,"url":"/f/x.png","mimeType":"image/png"}}
	]}`)

	msgs, err := DecodeMessages(payload)
	require.NoError(t, err)
	assert.Equal(t, KindImage, msgs[0].Kind)
}
