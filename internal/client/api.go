package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moodchat/internal/app/chat"
	"moodchat/internal/app/message"
	"moodchat/internal/app/user"
	"moodchat/internal/pkg/resp"
)

const maxResponseBody = 8 << 20

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// API calls the REST endpoints with a bearer identity token.
type API struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewAPI returns an API for the server at baseURL. A nil hc uses a client
// with a 15s timeout.
func NewAPI(baseURL, token string, hc *http.Client) *API {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), token: token, hc: hc}
}

// FetchHistory returns up to limit recent messages, newest first. A
// non-positive limit leaves the choice to the server.
func (a *API) FetchHistory(ctx context.Context, limit int) ([]message.ChatMessage, error) {
	path := "/api/chat/messages"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var msgs []message.ChatMessage
	if err := a.get(ctx, path, &msgs); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return msgs, nil
}

// CurrentUser returns the user the token belongs to.
func (a *API) CurrentUser(ctx context.Context) (user.User, error) {
	var u user.User
	if err := a.get(ctx, "/api/auth/user", &u); err != nil {
		return user.User{}, fmt.Errorf("current user: %w", err)
	}
	return u, nil
}

// UploadAttachment stores body as a voice or file payload and returns the
// object key to send as the message content.
func (a *API) UploadAttachment(ctx context.Context, kind message.Type, fileName string, body io.Reader) (string, error) {
	contentType, ok := chat.ContentTypeFor(fileName)
	if !ok {
		return "", fmt.Errorf("upload %s: unsupported file extension", fileName)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("messageType", string(kind)); err != nil {
		return "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, io.LimitReader(body, chat.MaxAttachmentSize+1)); err != nil {
		return "", fmt.Errorf("upload %s: read: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		FileKey string `json:"fileKey"`
	}
	if err := a.do(req, &out); err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}
	return out.FileKey, nil
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	res, err := a.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var env resp.Envelope[json.RawMessage]
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBody)).Decode(&env); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", res.StatusCode, err)
	}

	if env.Code != 0 || res.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: res.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// WebSocketURL derives the socket endpoint from the server base URL. The
// scheme follows the base: https gives wss, http gives ws.
func WebSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
