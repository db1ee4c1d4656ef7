package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/tonapi"
)

var userIDRegex = regexp.MustCompile(`(\d{5,15})`)

// amountTolerance absorbs float noise in nanoTON conversions.
const amountTolerance = 0.000001

// EventSource lists recent events of a wallet
type EventSource interface {
	GetEvents(ctx context.Context, address string, limit int) ([]tonapi.Event, error)
}

// Store is what the watcher needs from persistence
type Store interface {
	MarkPayment(transferID string, userID int64, amount float64, sender string) (bool, error)
	GetUserByPaymentAmount(amount float64) (int64, error)
	ClearPendingPayment(userID int64) error
	RegisterSubscriber(userID int64, minProfit float64) error
	ExtendSubscription(userID int64, days int, now time.Time) (time.Time, error)
}

// Messenger tells a user their subscription was renewed
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Config for the watcher
type Config struct {
	ServiceWallet    string
	PriceTON         float64
	Days             int
	DefaultMinProfit float64
}

// Watcher turns incoming payments on the service wallet into renewals
type Watcher struct {
	cfg       Config
	wallet    string // raw form
	events    EventSource
	store     Store
	messenger Messenger
	log       *slog.Logger

	now func() time.Time
}

// NewWatcher returns nil when no service wallet is configured.
func NewWatcher(cfg Config, events EventSource, store Store, messenger Messenger, log *slog.Logger) *Watcher {
	if cfg.ServiceWallet == "" {
		return nil
	}
	return &Watcher{
		cfg:       cfg,
		wallet:    tonapi.NormalizeAddress(cfg.ServiceWallet),
		events:    events,
		store:     store,
		messenger: messenger,
		log:       log,
		now:       time.Now,
	}
}

// Check reads the latest wallet events once and applies new payments.
func (w *Watcher) Check(ctx context.Context) error {
	events, err := w.events.GetEvents(ctx, w.wallet, 20)
	if err != nil {
		return fmt.Errorf("get events: %w", err)
	}

	for i := range events {
		if events[i].InProgress {
			continue
		}
		w.processEvent(ctx, &events[i])
	}
	return nil
}

func (w *Watcher) processEvent(ctx context.Context, event *tonapi.Event) {
	for i, action := range event.Actions {
		if action.Type != "TonTransfer" || action.TonTransfer == nil {
			continue
		}
		tt := action.TonTransfer

		if tonapi.NormalizeAddress(tt.Recipient.Address) != w.wallet {
			continue
		}

		amount := tonapi.NanoToTON(tt.Amount)
		if amount+amountTolerance < w.cfg.PriceTON {
			continue
		}

		userID, ok := w.resolveUser(tt.Comment, amount)
		if !ok {
			w.log.Debug("payment without user id", "amount", amount, "sender", tt.Sender.Address)
			continue
		}

		isNew, err := w.store.MarkPayment(paymentKey(event.EventID, i), userID, amount, tt.Sender.Address)
		if err != nil {
			w.log.Error("mark payment", "error", err)
			continue
		}
		if !isNew {
			continue
		}

		if err := w.renew(ctx, userID); err != nil {
			w.log.Error("renew subscription", "user_id", userID, "event_id", event.EventID, "error", err)
			continue
		}

		w.log.Info("subscription paid",
			"user_id", userID,
			"amount", amount,
			"sender", tt.Sender.Address,
			"event_id", event.EventID,
		)
	}
}

// paymentKey identifies one transfer. An event may carry several.
func paymentKey(eventID string, action int) string {
	return eventID + ":" + strconv.Itoa(action)
}

// resolveUser reads the user id from the comment, falling back to the
// pending unique amount.
func (w *Watcher) resolveUser(comment string, amount float64) (int64, bool) {
	if m := userIDRegex.FindStringSubmatch(comment); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		return id, err == nil
	}

	userID, err := w.store.GetUserByPaymentAmount(amount)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			w.log.Warn("lookup pending payment", "error", err)
		}
		return 0, false
	}
	return userID, true
}

func (w *Watcher) renew(ctx context.Context, userID int64) error {
	if err := w.store.RegisterSubscriber(userID, w.cfg.DefaultMinProfit); err != nil {
		return err
	}

	expiration, err := w.store.ExtendSubscription(userID, w.cfg.Days, w.now())
	if err != nil {
		return err
	}

	if err := w.store.ClearPendingPayment(userID); err != nil {
		w.log.Warn("clear pending payment", "user_id", userID, "error", err)
	}

	text := fmt.Sprintf("🎉 <b>¡Pago recibido!</b>\n\nTu suscripción se ha renovado %d días.\n📅 Caduca el: <b>%s</b>",
		w.cfg.Days, expiration.Format("02/01/2006 15:04"))
	if err := w.messenger.SendText(ctx, userID, text); err != nil {
		w.log.Warn("send renewal notice", "user_id", userID, "error", err)
	}
	return nil
}
