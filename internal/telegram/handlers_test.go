package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/surebet-router/internal/config"
	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

// fakeAPI answers the Bot API and records sendMessage bodies.
type fakeAPI struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"test","username":"test_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sends = append(f.sends, string(body))
		f.mu.Unlock()
		io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	default:
		io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{BotToken: "123:test", DefaultMinProfit: 1}
	b, err := New(cfg, store, taxonomy.Default(), slog.New(slog.DiscardHandler), bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, api
}

func findCommand(t *testing.T, b *Bot, pattern string) command {
	t.Helper()
	for _, c := range b.commands() {
		if c.pattern == pattern {
			return c
		}
	}
	t.Fatalf("command %q not registered", pattern)
	return command{}
}

func TestHelpAliasSendsHelp(t *testing.T) {
	b, api := newTestBot(t)

	for _, pattern := range []string{"/ayuda", "/help"} {
		c := findCommand(t, b, pattern)
		if c.match != bot.MatchTypeExact {
			t.Errorf("%s match = %v, want exact", pattern, c.match)
		}
		c.handler(context.Background(), b.bot, &models.Update{Message: &models.Message{
			Text: pattern,
			Chat: models.Chat{ID: 5},
			From: &models.User{ID: 5},
		}})
	}

	sent := api.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	for i, body := range sent {
		if !strings.Contains(body, "Ayuda") {
			t.Errorf("message %d is not the help text:\n%s", i, body)
		}
	}
}

func TestHandlersIgnoreMessagesWithoutSender(t *testing.T) {
	b, api := newTestBot(t)

	for _, c := range b.commands() {
		t.Run(c.pattern, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("handler panicked: %v", r)
				}
			}()
			c.handler(context.Background(), b.bot, &models.Update{Message: &models.Message{
				Text: strings.TrimSpace(c.pattern) + " 123 30",
				Chat: models.Chat{ID: -100},
			}})
		})
	}
	b.defaultHandler(context.Background(), b.bot, &models.Update{Message: &models.Message{
		Text: "50",
		Chat: models.Chat{ID: -100},
	}})

	if sent := api.sent(); len(sent) != 0 {
		t.Errorf("sent %d messages for sender-less updates", len(sent))
	}
}
