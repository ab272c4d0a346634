package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	sent     []map[string]string
	failSend bool
}

func (s *botServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"tracker","username":"tracker_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		s.mu.Lock()
		s.sent = append(s.sent, map[string]string{
			"chat_id":                  r.PostForm.Get("chat_id"),
			"text":                     r.PostForm.Get("text"),
			"parse_mode":               r.PostForm.Get("parse_mode"),
			"disable_web_page_preview": r.PostForm.Get("disable_web_page_preview"),
		})
		s.mu.Unlock()
		if s.failSend {
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, s *botServer) Notifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)

	c, err := newClient("TOKEN", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	return c
}

func TestClient_SendMessage(t *testing.T) {
	s := &botServer{}
	c := newTestClient(t, s)

	require.NoError(t, c.SendMessage(context.Background(), "*Daily run* done"))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "42", s.sent[0]["chat_id"])
	assert.Equal(t, "*Daily run* done", s.sent[0]["text"])
	assert.Equal(t, "Markdown", s.sent[0]["parse_mode"])
	assert.Equal(t, "true", s.sent[0]["disable_web_page_preview"])
}

func TestClient_SendMessageWrapsAPIError(t *testing.T) {
	s := &botServer{failSend: true}
	c := newTestClient(t, s)

	err := c.SendMessage(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 42")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_SendMessageSkipsCancelledContext(t *testing.T) {
	s := &botServer{}
	c := newTestClient(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.SendMessage(ctx, "hello")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.sent)
}
