package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewhitmore/clinic-chat/internal/chat"
	errs "github.com/ewhitmore/clinic-chat/internal/errors"
	"github.com/ewhitmore/clinic-chat/internal/transfer"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctrl := transfer.NewController(&http.Client{}, slog.Default())

	return NewClient(srv.URL, "tok-test", ctrl, slog.Default()), srv
}

// --- FetchMessages ---

func TestFetchMessages_DecodesAndMapsSenders(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/c-1/messages", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"messages":[
			{"id":1,"from":"patient","text":"hi","type":"text","createdAt":"2026-03-01T10:00:00Z"},
			{"id":2,"from":"clinic","text":"hello","type":"text","createdAt":"2026-03-01T10:01:00Z"}
		]}`))
	}))

	msgs, err := client.FetchMessages(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.SenderSelf, msgs[0].Sender)
	assert.Equal(t, chat.SenderCounterparty, msgs[1].Sender)
}

func TestFetchMessages_401IsSessionError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad_token"}`))
	}))

	_, err := client.FetchMessages(context.Background(), "c-1")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "bad_token", se.Code)
	assert.Equal(t, errs.CategorySession, se.Category())
}

func TestFetchMessages_403LockedIsAccessPending(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"CHAT_LOCKED","message":"not approved yet"}`))
	}))

	_, err := client.FetchMessages(context.Background(), "c-1")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errs.CategoryAccessPending, se.Category())
	assert.Equal(t, "not approved yet", se.Message)
}

func TestFetchMessages_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	ctrl := transfer.NewController(&http.Client{}, slog.Default())
	client := NewClient(srv.URL, "t", ctrl, slog.Default())

	_, err := client.FetchMessages(context.Background(), "c-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConnectivity)

	var se *StatusError
	assert.False(t, errors.As(err, &se), "network failure is not a StatusError")
}

func TestFetchMessages_ConversationIDEscaped(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotContains(t, r.URL.RawPath+r.URL.Path, "../")
		w.Write([]byte(`{"messages":[]}`))
	}))

	_, err := client.FetchMessages(context.Background(), "../admin")
	require.NoError(t, err)
}

// --- SendText ---

func TestSendText_PostsPayload(t *testing.T) {
	var got string

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/conversations/c-2/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		got = buf.String()
	}))

	require.NoError(t, client.SendText(context.Background(), "c-2", "how are you"))
	assert.JSONEq(t, `{"text":"how are you","type":"text"}`, got)
}

func TestSendText_ServerFault(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.SendText(context.Background(), "c-2", "x")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errs.CategoryServer, se.Category())
}

// --- UploadAttachment ---

func TestUploadAttachment_MultipartShape(t *testing.T) {
	var gotConv, gotIsImage, gotName string

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/attachments", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotConv = r.FormValue("conversationId")
		gotIsImage = r.FormValue("isImage")

		_, header, err := r.FormFile("files")
		require.NoError(t, err)
		gotName = header.Filename

		w.Write([]byte(`{"message":"ok"}`))
	}))

	err := client.UploadAttachment(context.Background(), "c-3", "scan.png", strings.NewReader("bytes"), true)
	require.NoError(t, err)
	assert.Equal(t, "c-3", gotConv)
	assert.Equal(t, "true", gotIsImage)
	assert.Equal(t, "scan.png", gotName)
}

func TestUploadAttachment_IsImageOmittedForDocuments(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("isImage"))
	}))

	require.NoError(t, client.UploadAttachment(context.Background(), "c-3", "doc.pdf", strings.NewReader("x"), false))
}

func TestUploadAttachment_Timeout(t *testing.T) {
	release := make(chan struct{})

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer close(release)

	// A short caller deadline stands in for the 60s file deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.UploadAttachment(ctx, "c-3", "doc.pdf", strings.NewReader("x"), false)
	require.Error(t, err)
}
