package payments

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/tonapi"
)

const wallet = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"

type fakeEvents struct {
	events []tonapi.Event
	err    error
}

func (f *fakeEvents) GetEvents(ctx context.Context, address string, limit int) ([]tonapi.Event, error) {
	return f.events, f.err
}

type fakeMessenger struct {
	texts map[int64][]string
}

func (f *fakeMessenger) SendText(ctx context.Context, userID int64, text string) error {
	if f.texts == nil {
		f.texts = make(map[int64][]string)
	}
	f.texts[userID] = append(f.texts[userID], text)
	return nil
}

func transfer(eventID, to string, nano int64, comment string) tonapi.Event {
	return tonapi.Event{
		EventID: eventID,
		Actions: []tonapi.Action{{
			Type: "TonTransfer",
			TonTransfer: &tonapi.TonTransfer{
				Sender:    tonapi.Account{Address: "0:aa"},
				Recipient: tonapi.Account{Address: to},
				Amount:    nano,
				Comment:   comment,
			},
		}},
	}
}

func setup(t *testing.T, events ...tonapi.Event) (*Watcher, *storage.Storage, *fakeMessenger) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	msg := &fakeMessenger{}
	cfg := Config{ServiceWallet: wallet, PriceTON: 5, Days: 30, DefaultMinProfit: 1}
	w := NewWatcher(cfg, &fakeEvents{events: events}, store, msg, slog.New(slog.DiscardHandler))
	return w, store, msg
}

func TestCheckRenewsOncePerEvent(t *testing.T) {
	w, store, msg := setup(t, transfer("ev1", wallet, 5_000_000_000, "id 123456"))
	now := time.Now()
	w.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := w.Check(context.Background()); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}

	sub, err := store.GetSubscriber(123456)
	if err != nil {
		t.Fatalf("GetSubscriber: %v", err)
	}
	want := now.Add(30 * 24 * time.Hour)
	if sub.Expiration == nil || sub.Expiration.Sub(want).Abs() > time.Second {
		t.Fatalf("expiration = %v, want %v", sub.Expiration, want)
	}
	if len(msg.texts[123456]) != 1 || !strings.Contains(msg.texts[123456][0], "30 días") {
		t.Fatalf("notices = %v", msg.texts)
	}
}

func TestCheckRenewsEveryTransferInEvent(t *testing.T) {
	ev := transfer("batch", wallet, 5_000_000_000, "123456")
	second := transfer("batch", wallet, 5_000_000_000, "654321")
	ev.Actions = append(ev.Actions, second.Actions...)

	w, store, msg := setup(t, ev)
	for i := 0; i < 2; i++ {
		if err := w.Check(context.Background()); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}

	for _, userID := range []int64{123456, 654321} {
		sub, err := store.GetSubscriber(userID)
		if err != nil {
			t.Fatalf("GetSubscriber(%d): %v", userID, err)
		}
		if !sub.IsSubscribed(time.Now()) {
			t.Errorf("user %d not renewed", userID)
		}
		if got := len(msg.texts[userID]); got != 1 {
			t.Errorf("user %d got %d notices, want 1", userID, got)
		}
	}
}

func TestCheckMatchesPendingAmount(t *testing.T) {
	amount := storage.GenerateUniqueAmount(777001, 5)
	w, store, _ := setup(t, transfer("ev2", wallet, int64(amount*1e9+0.5), ""))
	store.RegisterSubscriber(777001, 1)
	store.RegisterPendingPayment(777001, amount)

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}

	sub, _ := store.GetSubscriber(777001)
	if !sub.IsSubscribed(time.Now()) {
		t.Fatal("subscription not renewed")
	}
	if _, err := store.GetUserByPaymentAmount(amount); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("pending payment not cleared: %v", err)
	}
}

func TestCheckIgnores(t *testing.T) {
	other := "0:0000000000000000000000000000000000000000000000000000000000000001"
	w, store, msg := setup(t,
		transfer("small", wallet, 1_000_000_000, "123456"),
		transfer("elsewhere", other, 9_000_000_000, "123456"),
		transfer("anonymous", wallet, 5_500_000_000, "thanks"),
	)

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if _, err := store.GetSubscriber(123456); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unexpected renewal: %v", err)
	}
	if len(msg.texts) != 0 {
		t.Fatalf("unexpected notices: %v", msg.texts)
	}
}

func TestNewWatcherDisabled(t *testing.T) {
	if w := NewWatcher(Config{}, &fakeEvents{}, nil, nil, slog.New(slog.DiscardHandler)); w != nil {
		t.Fatal("watcher without wallet should be nil")
	}
}

func TestCheckSourceError(t *testing.T) {
	w, _, _ := setup(t)
	w.events = &fakeEvents{err: errors.New("timeout")}
	if err := w.Check(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
