package storage

import (
	"database/sql"
	"encoding/json"
	"time"
)

// --- Surebets ---

// AppendSurebet persists a surebet and returns its new id. Returns
// ErrDuplicate when the signature is already stored.
func (s *Storage) AppendSurebet(sb *Surebet) (int64, error) {
	legs, err := json.Marshal(sb.Legs)
	if err != nil {
		return 0, writeErr("marshal legs", err)
	}

	foundAt := sb.FoundAt
	if foundAt.IsZero() {
		foundAt = time.Now()
	}

	var startsAt sql.NullString
	if sb.StartsAt != "" {
		startsAt = sql.NullString{String: sb.StartsAt, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO surebets (found_at, starts_at, event, league, profit, legs_json, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		foundAt.Unix(), startsAt, sb.Event, sb.League, sb.Profit, string(legs), sb.Signature,
	)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, writeErr("insert surebet", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, writeErr("surebet id", err)
	}

	sb.ID = id
	sb.FoundAt = time.Unix(foundAt.Unix(), 0)
	return id, nil
}

// MaxSurebetID returns the highest stored id, 0 for an empty store
func (s *Storage) MaxSurebetID() (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM surebets").Scan(&id)
	if err != nil {
		return 0, readErr("max surebet id", err)
	}
	return id, nil
}

// SurebetsSince returns every surebet with id > cursor in id order
func (s *Storage) SurebetsSince(cursor int64) ([]Surebet, error) {
	rows, err := s.db.Query(
		`SELECT id, found_at, starts_at, event, league, profit, legs_json, signature
		 FROM surebets WHERE id > ? ORDER BY id ASC`,
		cursor,
	)
	if err != nil {
		return nil, readErr("query surebets", err)
	}
	defer rows.Close()

	var surebets []Surebet
	for rows.Next() {
		sb, err := scanSurebet(rows)
		if err != nil {
			return nil, readErr("scan surebet", err)
		}
		surebets = append(surebets, *sb)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate surebets", err)
	}

	return surebets, nil
}

// GetSurebet returns a surebet by ID
func (s *Storage) GetSurebet(id int64) (*Surebet, error) {
	row := s.db.QueryRow(
		`SELECT id, found_at, starts_at, event, league, profit, legs_json, signature
		 FROM surebets WHERE id = ?`,
		id,
	)

	sb, err := scanSurebet(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, readErr("get surebet", err)
	}
	return sb, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSurebet(sc scanner) (*Surebet, error) {
	var sb Surebet
	var foundAt int64
	var startsAt sql.NullString
	var legs string

	err := sc.Scan(&sb.ID, &foundAt, &startsAt, &sb.Event, &sb.League, &sb.Profit, &legs, &sb.Signature)
	if err != nil {
		return nil, err
	}

	sb.FoundAt = time.Unix(foundAt, 0)
	sb.StartsAt = startsAt.String

	// A corrupt legs column leaves Legs empty; such a surebet never matches.
	if err := json.Unmarshal([]byte(legs), &sb.Legs); err != nil {
		sb.Legs = nil
	}

	return &sb, nil
}
