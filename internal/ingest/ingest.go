package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/suspectuso/surebet-router/internal/storage"
)

// Source yields the rows currently visible upstream. Transient failures
// are returned as plain errors; errors wrapping ErrFatalUpstream stop the
// service.
type Source interface {
	Fetch(ctx context.Context) ([]RawRow, error)
}

// Store is the write side of the surebet log
type Store interface {
	AppendSurebet(sb *storage.Surebet) (int64, error)
}

// Dedup remembers signatures seen during this run
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Accept reports whether sig is new and records it.
func (d *Dedup) Accept(sig string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[sig]; ok {
		return false
	}
	d.seen[sig] = struct{}{}
	return true
}

func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Ingester turns upstream rows into appended surebets
type Ingester struct {
	source Source
	store  Store
	dedup  *Dedup
	log    *slog.Logger
}

func New(source Source, store Store, log *slog.Logger) *Ingester {
	return &Ingester{
		source: source,
		store:  store,
		dedup:  NewDedup(),
		log:    log,
	}
}

// TickStats summarizes one ingestion tick
type TickStats struct {
	Rows      int
	Appended  int
	Malformed int
	Duplicate int
	Failed    int
}

// Tick fetches the current rows once and appends every new surebet.
// A transient fetch error skips the tick; only ErrFatalUpstream is
// returned to the caller.
func (in *Ingester) Tick(ctx context.Context) (TickStats, error) {
	var stats TickStats

	rows, err := in.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrFatalUpstream) {
			return stats, err
		}
		in.log.Warn("fetch rows failed", "error", err)
		return stats, nil
	}
	stats.Rows = len(rows)

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}

		sb, err := Normalize(row)
		if err != nil {
			stats.Malformed++
			in.log.Warn("skip row", "error", err, "event", row.Event)
			continue
		}

		if !in.dedup.Accept(sb.Signature) {
			stats.Duplicate++
			continue
		}

		id, err := in.store.AppendSurebet(sb)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			stats.Duplicate++
			in.log.Debug("surebet already stored", "signature", sb.Signature)
		case err != nil:
			// The signature stays accepted: the record is dropped, not retried.
			stats.Failed++
			in.log.Error("append surebet failed", "error", err, "signature", sb.Signature)
		default:
			stats.Appended++
			in.log.Info("new surebet", "id", id, "event", sb.Event, "profit", sb.Profit)
		}
	}

	return stats, nil
}
