package rowsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/suspectuso/surebet-router/internal/ingest"
)

const (
	maxBodyBytes = 8 << 20
	maxBuffered  = 10_000
)

// Batch is the body of POST /rows
type Batch struct {
	Rows []ingest.RawRow `json:"rows"`
}

// Receiver accepts rows pushed by the extractor and hands them to the
// ingestion loop. It implements ingest.Source.
type Receiver struct {
	staleAfter time.Duration
	log        *slog.Logger

	mu        sync.Mutex
	rows      []ingest.RawRow
	started   time.Time
	lastPush  time.Time
	listenErr error

	server *http.Server
	now    func() time.Time
}

// NewReceiver creates a receiver. With staleAfter > 0, Fetch reports the
// upstream as gone once no batch arrived for that long.
func NewReceiver(staleAfter time.Duration, log *slog.Logger) *Receiver {
	return &Receiver{
		staleAfter: staleAfter,
		log:        log,
		started:    time.Now(),
		now:        time.Now,
	}
}

// Handler returns the HTTP routes of the receiver
func (r *Receiver) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(10 * time.Second))

	router.Get("/health", r.handleHealth)
	router.With(middleware.AllowContentType("application/json")).Post("/rows", r.handleRows)

	return router
}

// Start serves the receiver until ctx is done. A listener failure is
// remembered and surfaces as a fatal upstream error on the next Fetch.
func (r *Receiver) Start(ctx context.Context, port int) error {
	r.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	r.log.Info("starting row receiver", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.server.Shutdown(shutdownCtx)
	}()

	err := r.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	r.mu.Lock()
	r.listenErr = err
	r.mu.Unlock()
	return err
}

// Fetch drains the rows received since the previous call
func (r *Receiver) Fetch(ctx context.Context) ([]ingest.RawRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listenErr != nil {
		return nil, fmt.Errorf("%w: receiver: %v", ingest.ErrFatalUpstream, r.listenErr)
	}

	if r.staleAfter > 0 {
		last := r.lastPush
		if last.IsZero() {
			last = r.started
		}
		if idle := r.now().Sub(last); idle > r.staleAfter {
			return nil, fmt.Errorf("%w: no rows for %s", ingest.ErrFatalUpstream, idle.Round(time.Second))
		}
	}

	rows := r.rows
	r.rows = nil
	return rows, nil
}

func (r *Receiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (r *Receiver) handleRows(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var batch Batch
	if err := json.NewDecoder(req.Body).Decode(&batch); err != nil {
		r.log.Warn("invalid rows payload", "error", err, "request_id", middleware.GetReqID(req.Context()))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	r.lastPush = r.now()
	r.rows = append(r.rows, batch.Rows...)
	dropped := 0
	if over := len(r.rows) - maxBuffered; over > 0 {
		r.rows = append([]ingest.RawRow(nil), r.rows[over:]...)
		dropped = over
	}
	buffered := len(r.rows)
	r.mu.Unlock()

	if dropped > 0 {
		r.log.Warn("row buffer full, dropped oldest", "dropped", dropped)
	}
	r.log.Debug("rows received", "count", len(batch.Rows), "buffered", buffered)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{"accepted": len(batch.Rows)})
}
