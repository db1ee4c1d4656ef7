package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/suspectuso/surebet-router/internal/filter"
)

// Leg is one wager of a surebet
type Leg struct {
	Bookmaker string `json:"bookie"`
	Market    string `json:"market"`
	Odds      string `json:"odds"`
}

// Surebet is a persisted arbitrage opportunity. Immutable once stored.
type Surebet struct {
	ID        int64
	FoundAt   time.Time
	StartsAt  string // as scraped, empty when unknown
	Event     string
	League    string
	Profit    float64
	Legs      []Leg
	Signature string
}

// Subscriber holds per-user delivery preferences
type Subscriber struct {
	ID         int64
	UserID     int64
	MinProfit  float64
	Bookmakers filter.Set
	Sports     filter.Set
	Leagues    map[string]filter.Set
	Active     bool
	Expiration *time.Time
}

// IsSubscribed reports whether the subscription is valid at now.
func (s *Subscriber) IsSubscribed(now time.Time) bool {
	return s.Expiration != nil && s.Expiration.After(now)
}

// LeagueFilter returns the league allow-list for a sport. A sport without
// an entry allows all of its leagues.
func (s *Subscriber) LeagueFilter(sport string) filter.Set {
	if set, ok := s.Leagues[sport]; ok {
		return set
	}
	return filter.AllOf()
}

// Bet is a stake a subscriber registered against a delivered surebet
type Bet struct {
	ID             int64
	UserID         int64
	SurebetID      int64
	ProfitPercent  float64
	Stake          decimal.Decimal
	RealizedProfit decimal.Decimal
}

// BetStats aggregates a subscriber's ledger
type BetStats struct {
	Count  int
	Volume decimal.Decimal
	Profit decimal.Decimal
}

// ROI returns profit over volume in percent, zero without volume.
func (s BetStats) ROI() decimal.Decimal {
	if s.Volume.IsZero() {
		return decimal.Zero
	}
	return s.Profit.Div(s.Volume).Mul(decimal.NewFromInt(100))
}

// PendingPayment for tracking unique payment amounts
type PendingPayment struct {
	UserID       int64
	UniqueAmount float64
	CreatedAt    time.Time
}
