package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/resp"
)

func newAPIServer(t *testing.T, h http.HandlerFunc) *API {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPI(srv.URL+"/", "tok", srv.Client())
}

func TestAPI_FetchHistory(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/messages", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		resp.RespondSuccess(w, r, []message.ChatMessage{msg(2, at.Add(time.Second)), msg(1, at)})
	})

	msgs, err := api.FetchHistory(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(msgs))
	assert.True(t, msgs[1].CreatedAt.Equal(at))
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusUnauthorized, resp.Envelope[any]{Code: 3001, Message: "Please sign in to continue."})
	})

	_, err := api.CurrentUser(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 3001, apiErr.Code)
}

func TestAPI_CurrentUser(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/user", r.URL.Path)
		resp.RespondSuccess(w, r, map[string]string{"id": "u1", "firstName": "Ada"})
	})

	u, err := api.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.DisplayName())
}

func TestAPI_UploadAttachment(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/files", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		assert.Equal(t, "voice", r.FormValue("messageType"))
		f, h, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "note.ogg", h.Filename)
		assert.Equal(t, "audio/ogg", h.Header.Get("Content-Type"))
		body, _ := io.ReadAll(f)
		assert.Equal(t, "OggS", string(body))

		resp.RespondSuccess(w, r, map[string]string{"fileKey": "chat/u1/abc.ogg", "fileName": h.Filename})
	})

	key, err := api.UploadAttachment(context.Background(), message.TypeVoice, "note.ogg", strings.NewReader("OggS"))
	require.NoError(t, err)
	assert.Equal(t, "chat/u1/abc.ogg", key)
}

func TestAPI_UploadAttachmentRejectsUnknownExtension(t *testing.T) {
	api := NewAPI("http://127.0.0.1:1", "", nil)

	_, err := api.UploadAttachment(context.Background(), message.TypeFile, "script.sh", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestAPI_UndecodableBody(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := api.FetchHistory(context.Background(), 0)
	require.Error(t, err)
	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{base: "https://chat.example.com/", want: "wss://chat.example.com/ws"},
		{base: "https://example.com/mood?x=1", want: "wss://example.com/mood/ws"},
		{base: "ws://127.0.0.1:9000", want: "ws://127.0.0.1:9000/ws"},
		{base: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := WebSocketURL(tt.base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
