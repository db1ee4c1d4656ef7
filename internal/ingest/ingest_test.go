package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/suspectuso/surebet-router/internal/storage"
)

var discard = slog.New(slog.DiscardHandler)

func TestNormalize(t *testing.T) {
	row := RawRow{
		Profit:    " 3,5% ",
		Event:     "Real Madrid vs Barcelona",
		League:    "La Liga",
		StartTime: "Hoy 21:00",
		Markets:   []string{"1X2 - 1", "1X2 - X2"},
		Bookmakers: []RawBookmaker{
			{Name: "bet365 logo", Odds: "2.10"},
			{Name: "Winamax", Odds: "2.05"},
		},
	}

	sb, err := Normalize(row)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if sb.Profit != 3.5 {
		t.Errorf("Profit = %v, want 3.5", sb.Profit)
	}
	if len(sb.Legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(sb.Legs))
	}
	if sb.Legs[0].Bookmaker != "bet365" || sb.Legs[0].Market != "1X2 - 1" || sb.Legs[0].Odds != "2.10" {
		t.Errorf("leg 0 = %+v", sb.Legs[0])
	}
	if sb.StartsAt != "Hoy 21:00" {
		t.Errorf("StartsAt = %q", sb.StartsAt)
	}
	if want := "Real Madrid vs Barcelona_3.5_2.10"; sb.Signature != want {
		t.Errorf("Signature = %q, want %q", sb.Signature, want)
	}
}

func TestNormalizePlaceholders(t *testing.T) {
	row := RawRow{
		Profit:     "1",
		Markets:    []string{"", "Over 2.5", "extra market"},
		Bookmakers: []RawBookmaker{{Name: "  "}, {Name: "Betfair", Odds: "1.9"}},
	}

	sb, err := Normalize(row)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if sb.Event != UnknownEvent || sb.League != UnknownLeague {
		t.Errorf("event/league = %q/%q", sb.Event, sb.League)
	}
	if len(sb.Legs) != 2 {
		t.Fatalf("legs pair up to the shorter column, got %d", len(sb.Legs))
	}
	first := sb.Legs[0]
	if first.Bookmaker != UnknownBookmaker || first.Market != UnknownMarket || first.Odds != UnknownOdds {
		t.Errorf("leg 0 = %+v", first)
	}
}

func TestNormalizeRejects(t *testing.T) {
	legs := []RawBookmaker{{Name: "bet365", Odds: "2.0"}}
	tests := []struct {
		name string
		row  RawRow
	}{
		{"empty profit", RawRow{Profit: "", Markets: []string{"1"}, Bookmakers: legs}},
		{"garbage profit", RawRow{Profit: "abc%", Markets: []string{"1"}, Bookmakers: legs}},
		{"negative profit", RawRow{Profit: "-1.2%", Markets: []string{"1"}, Bookmakers: legs}},
		{"nan profit", RawRow{Profit: "NaN", Markets: []string{"1"}, Bookmakers: legs}},
		{"inf profit", RawRow{Profit: "Inf", Markets: []string{"1"}, Bookmakers: legs}},
		{"signed inf percent", RawRow{Profit: "+Inf%", Markets: []string{"1"}, Bookmakers: legs}},
		{"infinity profit", RawRow{Profit: "infinity", Markets: []string{"1"}, Bookmakers: legs}},
		{"no markets", RawRow{Profit: "2%", Bookmakers: legs}},
		{"no bookmakers", RawRow{Profit: "2%", Markets: []string{"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.row)
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("Normalize() err = %v, want ErrMalformedRow", err)
			}
		})
	}
}

func TestDedupAccept(t *testing.T) {
	d := NewDedup()
	if !d.Accept("a") {
		t.Fatal("first sighting rejected")
	}
	if d.Accept("a") {
		t.Fatal("second sighting accepted")
	}
	if !d.Accept("b") {
		t.Fatal("distinct signature rejected")
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
}

type fakeSource struct {
	rows []RawRow
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]RawRow, error) {
	return f.rows, f.err
}

type fakeStore struct {
	appended []*storage.Surebet
	failOn   string
	stored   map[string]bool
}

func (f *fakeStore) AppendSurebet(sb *storage.Surebet) (int64, error) {
	if sb.Signature == f.failOn {
		return 0, fmt.Errorf("insert: %w", storage.ErrWrite)
	}
	if f.stored[sb.Signature] {
		return 0, storage.ErrDuplicate
	}
	f.appended = append(f.appended, sb)
	return int64(len(f.appended)), nil
}

func row(event, profit, odds string) RawRow {
	return RawRow{
		Profit:     profit,
		Event:      event,
		League:     "Premier League",
		Markets:    []string{"1", "2"},
		Bookmakers: []RawBookmaker{{Name: "bet365", Odds: odds}, {Name: "Pinnacle", Odds: "2.0"}},
	}
}

func TestTickAppendsNewRowsOnce(t *testing.T) {
	src := &fakeSource{rows: []RawRow{
		row("A vs B", "2%", "2.1"),
		row("A vs B", "2%", "2.1"),
		{Profit: "n/a"},
		row("C vs D", "1.5%", "3.0"),
	}}
	store := &fakeStore{}
	in := New(src, store, discard)

	stats, err := in.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Appended != 2 || stats.Duplicate != 1 || stats.Malformed != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	// The same page on the next tick adds nothing.
	stats, err = in.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Appended != 0 || len(store.appended) != 2 {
		t.Fatalf("second tick appended %d, store has %d", stats.Appended, len(store.appended))
	}
}

func TestTickStoreConflictIsSilent(t *testing.T) {
	src := &fakeSource{rows: []RawRow{row("A vs B", "2%", "2.1")}}
	store := &fakeStore{stored: map[string]bool{"A vs B_2_2.1": true}}

	stats, err := New(src, store, discard).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Duplicate != 1 || stats.Appended != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestTickWriteFailureDropsRecord(t *testing.T) {
	src := &fakeSource{rows: []RawRow{row("A vs B", "2%", "2.1"), row("C vs D", "3%", "1.8")}}
	store := &fakeStore{failOn: "A vs B_2_2.1"}
	in := New(src, store, discard)

	stats, err := in.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Failed != 1 || stats.Appended != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	store.failOn = ""
	stats, _ = in.Tick(context.Background())
	if stats.Appended != 0 {
		t.Fatalf("dropped record was retried: %+v", stats)
	}
}

func TestTickFetchErrors(t *testing.T) {
	in := New(&fakeSource{err: errors.New("timeout")}, &fakeStore{}, discard)
	if _, err := in.Tick(context.Background()); err != nil {
		t.Fatalf("transient error escaped: %v", err)
	}

	in = New(&fakeSource{err: fmt.Errorf("listener closed: %w", ErrFatalUpstream)}, &fakeStore{}, discard)
	if _, err := in.Tick(context.Background()); !errors.Is(err, ErrFatalUpstream) {
		t.Fatalf("Tick err = %v, want ErrFatalUpstream", err)
	}
}
