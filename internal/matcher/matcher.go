package matcher

import (
	"time"

	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

// Gate is one step of the matching pipeline
type Gate uint8

const (
	Pass Gate = iota
	GateSubscription
	GateProfit
	GateSport
	GateLeague
	GateBookmaker
)

func (g Gate) String() string {
	switch g {
	case Pass:
		return "pass"
	case GateSubscription:
		return "subscription"
	case GateProfit:
		return "profit"
	case GateSport:
		return "sport"
	case GateLeague:
		return "league"
	case GateBookmaker:
		return "bookmaker"
	default:
		return "unknown"
	}
}

// Engine routes surebets to subscribers
type Engine struct {
	tax *taxonomy.Taxonomy
}

func New(tax *taxonomy.Taxonomy) *Engine {
	return &Engine{tax: tax}
}

// Classify returns the sport of a surebet from its league and event text.
func (e *Engine) Classify(sb *storage.Surebet) string {
	return e.tax.Classify(sb.League + " " + sb.Event)
}

// Icon returns the emoji of a sport
func (e *Engine) Icon(sport string) string {
	return e.tax.Icon(sport)
}

// Evaluate runs the gates in order and returns the first that rejects
// the surebet, or Pass.
func (e *Engine) Evaluate(sb *storage.Surebet, sport string, sub *storage.Subscriber, now time.Time) Gate {
	if !sub.IsSubscribed(now) {
		return GateSubscription
	}
	if sb.Profit < sub.MinProfit {
		return GateProfit
	}
	if !sub.Sports.Contains(sport) {
		return GateSport
	}
	if !sub.LeagueFilter(sport).Allows(sb.League) {
		return GateLeague
	}
	if !coversLegs(sub, sb.Legs) {
		return GateBookmaker
	}
	return Pass
}

// Match returns the subscribers that pass every gate for sb, in input order.
func (e *Engine) Match(sb *storage.Surebet, subs []storage.Subscriber, now time.Time) []storage.Subscriber {
	sport := e.Classify(sb)

	var matched []storage.Subscriber
	for i := range subs {
		if e.Evaluate(sb, sport, &subs[i], now) == Pass {
			matched = append(matched, subs[i])
		}
	}
	return matched
}

// coversLegs requires every leg's bookmaker to be allowed. A surebet
// without legs is never covered.
func coversLegs(sub *storage.Subscriber, legs []storage.Leg) bool {
	if len(legs) == 0 {
		return false
	}
	for _, leg := range legs {
		if !sub.Bookmakers.Allows(leg.Bookmaker) {
			return false
		}
	}
	return true
}
