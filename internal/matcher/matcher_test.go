package matcher

import (
	"testing"
	"time"

	"github.com/suspectuso/surebet-router/internal/filter"
	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func laLigaSurebet() *storage.Surebet {
	return &storage.Surebet{
		ID:     1,
		Event:  "Team A vs Team B",
		League: "La Liga",
		Profit: 5.0,
		Legs: []storage.Leg{
			{Bookmaker: "bet365", Market: "1X2", Odds: "2.1"},
			{Bookmaker: "Winamax", Market: "1X2", Odds: "2.0"},
		},
	}
}

func subscriber(userID int64, minProfit float64) storage.Subscriber {
	exp := now.Add(24 * time.Hour)
	return storage.Subscriber{
		UserID:     userID,
		MinProfit:  minProfit,
		Bookmakers: filter.SubsetOf("bet365", "winamax"),
		Sports:     filter.AllOf(),
		Leagues:    map[string]filter.Set{},
		Active:     true,
		Expiration: &exp,
	}
}

func TestMatchEndToEnd(t *testing.T) {
	e := New(taxonomy.Default())
	sb := laLigaSurebet()

	matched := e.Match(sb, []storage.Subscriber{subscriber(1, 3.0), subscriber(2, 6.0)}, now)
	if len(matched) != 1 || matched[0].UserID != 1 {
		t.Fatalf("matched = %+v, want only user 1", matched)
	}

	sub := subscriber(2, 6.0)
	if g := e.Evaluate(sb, e.Classify(sb), &sub, now); g != GateProfit {
		t.Errorf("Evaluate() = %v, want profit", g)
	}
}

func TestLeagueGate(t *testing.T) {
	e := New(taxonomy.Default())
	sb := laLigaSurebet()
	if sport := e.Classify(sb); sport != "Soccer" {
		t.Fatalf("Classify() = %q, want Soccer", sport)
	}

	tests := []struct {
		name    string
		leagues map[string]filter.Set
		want    Gate
	}{
		{"no entry", map[string]filter.Set{}, Pass},
		{"other league", map[string]filter.Set{"Soccer": filter.SubsetOf("Premier League")}, GateLeague},
		{"none", map[string]filter.Set{"Soccer": filter.NoneOf()}, GateLeague},
		{"variant name", map[string]filter.Set{"Soccer": filter.SubsetOf("Spanish La Liga Primera")}, Pass},
		{"other sport restricted", map[string]filter.Set{"Tennis": filter.NoneOf()}, Pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := subscriber(1, 1.0)
			sub.Leagues = tt.leagues
			if got := e.Evaluate(sb, "Soccer", &sub, now); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSportGate(t *testing.T) {
	e := New(taxonomy.Default())
	soccer := laLigaSurebet()
	tennis := laLigaSurebet()
	tennis.League = "ATP Madrid"
	tennis.Event = "Alcaraz vs Sinner"

	tests := []struct {
		name   string
		sports filter.Set
		sb     *storage.Surebet
		want   bool
	}{
		{"all, soccer", filter.AllOf(), soccer, true},
		{"all, tennis", filter.AllOf(), tennis, true},
		{"none", filter.NoneOf(), soccer, false},
		{"tennis only, tennis", filter.SubsetOf("Tennis"), tennis, true},
		{"tennis only, soccer", filter.SubsetOf("Tennis"), soccer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := subscriber(1, 1.0)
			sub.Sports = tt.sports
			got := len(e.Match(tt.sb, []storage.Subscriber{sub}, now)) == 1
			if got != tt.want {
				t.Errorf("matched = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfitBoundary(t *testing.T) {
	e := New(taxonomy.Default())
	sb := laLigaSurebet()

	sub := subscriber(1, 5.0)
	if g := e.Evaluate(sb, "Soccer", &sub, now); g != Pass {
		t.Errorf("profit == min_profit: got %v, want pass", g)
	}
	sub = subscriber(1, 5.01)
	if g := e.Evaluate(sb, "Soccer", &sub, now); g != GateProfit {
		t.Errorf("profit below min_profit: got %v, want profit", g)
	}
}

func TestSubscriptionGate(t *testing.T) {
	e := New(taxonomy.Default())
	sb := laLigaSurebet()

	never := subscriber(1, 1.0)
	never.Expiration = nil

	expired := subscriber(2, 1.0)
	past := now.Add(-time.Minute)
	expired.Expiration = &past

	for _, sub := range []storage.Subscriber{never, expired} {
		if g := e.Evaluate(sb, "Soccer", &sub, now); g != GateSubscription {
			t.Errorf("user %d: got %v, want subscription", sub.UserID, g)
		}
	}
}

func TestBookmakerGate(t *testing.T) {
	e := New(taxonomy.Default())

	tests := []struct {
		name       string
		bookmakers filter.Set
		legs       []storage.Leg
		want       Gate
	}{
		{"all ignores legs", filter.AllOf(), []storage.Leg{{Bookmaker: "Obscure Bookie"}}, Pass},
		{"none", filter.NoneOf(), []storage.Leg{{Bookmaker: "bet365"}}, GateBookmaker},
		{"every leg covered", filter.SubsetOf("bet365", "Betfair"), []storage.Leg{{Bookmaker: "BET365"}, {Bookmaker: "betfair exchange"}}, Pass},
		{"one leg uncovered", filter.SubsetOf("bet365"), []storage.Leg{{Bookmaker: "bet365"}, {Bookmaker: "Winamax"}}, GateBookmaker},
		{"no legs", filter.SubsetOf("bet365"), nil, GateBookmaker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := laLigaSurebet()
			sb.Legs = tt.legs
			sub := subscriber(1, 1.0)
			sub.Bookmakers = tt.bookmakers
			if got := e.Evaluate(sb, "Soccer", &sub, now); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGateOrder(t *testing.T) {
	e := New(taxonomy.Default())
	sb := laLigaSurebet()

	// Fails profit, sport and bookmaker at once; profit comes first.
	sub := subscriber(1, 10.0)
	sub.Sports = filter.NoneOf()
	sub.Bookmakers = filter.NoneOf()
	if g := e.Evaluate(sb, "Soccer", &sub, now); g != GateProfit {
		t.Errorf("Evaluate() = %v, want profit", g)
	}

	sub.MinProfit = 1.0
	if g := e.Evaluate(sb, "Soccer", &sub, now); g != GateSport {
		t.Errorf("Evaluate() = %v, want sport", g)
	}
}
