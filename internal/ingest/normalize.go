package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/suspectuso/surebet-router/internal/storage"
)

var (
	ErrMalformedRow  = errors.New("malformed row")
	ErrFatalUpstream = errors.New("row source permanently unavailable")
)

// Placeholders for fields the extractor could not read.
const (
	UnknownLeague    = "Unknown League"
	UnknownEvent     = "Unknown Event"
	UnknownBookmaker = "Unknown"
	UnknownOdds      = "0.0"
	UnknownMarket    = "-"
)

// RawBookmaker is one bookmaker cell of a scraped row
type RawBookmaker struct {
	Name string `json:"name"`
	Odds string `json:"odds"`
}

// RawRow is one opportunity row as extracted from the source page. Markets
// and bookmakers are stacked columns paired by position.
type RawRow struct {
	Profit     string         `json:"profit"`
	Event      string         `json:"event"`
	League     string         `json:"league"`
	StartTime  string         `json:"start_time"`
	Markets    []string       `json:"markets"`
	Bookmakers []RawBookmaker `json:"bookmakers"`
}

// Normalize converts a raw row into a surebet ready for the store.
// Rows without a parseable profit or without any leg are rejected with
// ErrMalformedRow.
func Normalize(row RawRow) (*storage.Surebet, error) {
	profit, err := parseProfit(row.Profit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	legs := pairLegs(row.Markets, row.Bookmakers)
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: no legs", ErrMalformedRow)
	}

	sb := &storage.Surebet{
		Event:    orDefault(row.Event, UnknownEvent),
		League:   orDefault(row.League, UnknownLeague),
		StartsAt: strings.TrimSpace(row.StartTime),
		Profit:   profit,
		Legs:     legs,
	}
	sb.Signature = Signature(sb)
	return sb, nil
}

// Signature identifies a surebet within a run: event, profit and the odds
// of the first leg. Distinct but similar opportunities may collide.
func Signature(sb *storage.Surebet) string {
	firstOdds := ""
	if len(sb.Legs) > 0 {
		firstOdds = sb.Legs[0].Odds
	}
	return sb.Event + "_" + strconv.FormatFloat(sb.Profit, 'f', -1, 64) + "_" + firstOdds
}

func parseProfit(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, errors.New("missing profit")
	}

	profit, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("profit %q: %w", raw, err)
	}
	if math.IsNaN(profit) || math.IsInf(profit, 0) {
		return 0, fmt.Errorf("profit %q is not finite", raw)
	}
	if profit < 0 {
		return 0, fmt.Errorf("negative profit %v", profit)
	}
	return profit, nil
}

func pairLegs(markets []string, bookmakers []RawBookmaker) []storage.Leg {
	n := min(len(markets), len(bookmakers))

	legs := make([]storage.Leg, 0, n)
	for i := 0; i < n; i++ {
		legs = append(legs, storage.Leg{
			Bookmaker: cleanBookmaker(bookmakers[i].Name),
			Market:    orDefault(markets[i], UnknownMarket),
			Odds:      orDefault(bookmakers[i].Odds, UnknownOdds),
		})
	}
	return legs
}

// cleanBookmaker strips the " logo" suffix of image alt texts.
func cleanBookmaker(name string) string {
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), " logo"))
	return orDefault(name, UnknownBookmaker)
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
