package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/suspectuso/surebet-router/internal/matcher"
	"github.com/suspectuso/surebet-router/internal/storage"
)

// Sender delivers a formatted surebet to one user
type Sender interface {
	SendSurebet(ctx context.Context, userID int64, text string, surebetID int64) error
}

// Store is the read side the matching loop needs
type Store interface {
	MaxSurebetID() (int64, error)
	SurebetsSince(cursor int64) ([]storage.Surebet, error)
	ListActiveSubscribers() ([]storage.Subscriber, error)
}

// Cursor is the matching loop's position in the surebet log. A cursor
// that is not Ready has not been bootstrapped yet.
type Cursor struct {
	ID    int64
	Ready bool
}

// Notifier matches new surebets against subscribers and delivers them
type Notifier struct {
	store  Store
	engine *matcher.Engine
	sender Sender
	delay  time.Duration
	log    *slog.Logger

	now func() time.Time
}

// New creates a new Notifier. delay paces consecutive sends.
func New(store Store, engine *matcher.Engine, sender Sender, delay time.Duration, log *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		engine: engine,
		sender: sender,
		delay:  delay,
		log:    log,
		now:    time.Now,
	}
}

// TickStats summarizes one matching tick
type TickStats struct {
	Surebets  int
	Delivered int
	Failed    int
}

// Tick processes every surebet after cur and returns the advanced cursor.
// The first tick only positions the cursor at the newest stored surebet,
// so a restart never replays history. On a read failure the cursor is
// returned unchanged and the tick is retried next time.
func (n *Notifier) Tick(ctx context.Context, cur Cursor) (Cursor, TickStats, error) {
	var stats TickStats

	if !cur.Ready {
		maxID, err := n.store.MaxSurebetID()
		if err != nil {
			return cur, stats, err
		}
		n.log.Info("cursor bootstrapped", "id", maxID)
		return Cursor{ID: maxID, Ready: true}, stats, nil
	}

	surebets, err := n.store.SurebetsSince(cur.ID)
	if err != nil {
		return cur, stats, err
	}
	if len(surebets) == 0 {
		return cur, stats, nil
	}

	subs, err := n.store.ListActiveSubscribers()
	if err != nil {
		return cur, stats, err
	}

	n.log.Debug("matching surebets", "count", len(surebets), "subscribers", len(subs), "after_id", cur.ID)

	next := cur
	for i := range surebets {
		sb := &surebets[i]
		stats.Surebets++

		if len(sb.Legs) == 0 {
			n.log.Warn("surebet without legs", "id", sb.ID)
		}

		matched := n.engine.Match(sb, subs, n.now())
		if len(matched) > 0 {
			text := n.Format(sb)
			for _, sub := range matched {
				if err := n.deliver(ctx, sub.UserID, text, sb.ID); err != nil {
					stats.Failed++
					n.log.Error("deliver surebet", "user_id", sub.UserID, "surebet_id", sb.ID, "error", err)
					continue
				}
				stats.Delivered++
			}
		}

		// Advance past the surebet even if nobody matched.
		if sb.ID > next.ID {
			next.ID = sb.ID
		}
	}

	if stats.Delivered > 0 || stats.Failed > 0 {
		n.log.Info("surebets delivered",
			"surebets", stats.Surebets,
			"delivered", stats.Delivered,
			"failed", stats.Failed,
			"cursor", next.ID,
		)
	}

	return next, stats, nil
}

func (n *Notifier) deliver(ctx context.Context, userID int64, text string, surebetID int64) error {
	err := n.sender.SendSurebet(ctx, userID, text, surebetID)

	if n.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(n.delay):
		}
	}
	return err
}

// Format renders the alert sent to subscribers
func (n *Notifier) Format(sb *storage.Surebet) string {
	sport := n.engine.Classify(sb)
	icon := n.engine.Icon(sport)

	date := sb.StartsAt
	if date == "" {
		date = sb.FoundAt.Format("02/01/2006 15:04")
	}

	lines := []string{
		"🏹 <b>ALERTA DE SUREBET</b>",
		"",
		fmt.Sprintf("📈 PROFIT: <b>%s%%</b>", formatProfit(sb.Profit)),
		"",
		fmt.Sprintf("%s Liga: %s", icon, html.EscapeString(sb.League)),
		fmt.Sprintf("📆 Fecha: %s", html.EscapeString(date)),
		fmt.Sprintf("🏆 Partido: %s", html.EscapeString(sb.Event)),
	}

	for i, leg := range sb.Legs {
		lines = append(lines,
			"",
			fmt.Sprintf("🏦 Casa %d: %s", i+1, html.EscapeString(leg.Bookmaker)),
			fmt.Sprintf("   🎯 Mercado: %s", html.EscapeString(leg.Market)),
			fmt.Sprintf("   📊 Cuota: %s", html.EscapeString(leg.Odds)),
		)
	}

	return strings.Join(lines, "\n")
}

func formatProfit(p float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", p), "0"), ".")
}
