package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/suspectuso/surebet-router/internal/filter"
)

// --- Subscribers ---

const subscriberColumns = `id, user_id, min_profit, bookmakers, sports, leagues, active, expiration`

// RegisterSubscriber creates a subscriber on first interaction. Calling it
// again for an existing user changes nothing.
func (s *Storage) RegisterSubscriber(userID int64, minProfit float64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO subscribers (user_id, min_profit, expiration)
		 VALUES (?, ?, NULL)`,
		userID, minProfit,
	)
	if err != nil {
		return writeErr("register subscriber", err)
	}
	return nil
}

// GetSubscriber returns a subscriber by telegram user ID
func (s *Storage) GetSubscriber(userID int64) (*Subscriber, error) {
	row := s.db.QueryRow(
		"SELECT "+subscriberColumns+" FROM subscribers WHERE user_id = ?",
		userID,
	)

	sub, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, readErr("get subscriber", err)
	}
	return sub, nil
}

// ListActiveSubscribers returns every subscriber with the active flag set.
// Subscription validity is checked by the caller.
func (s *Storage) ListActiveSubscribers() ([]Subscriber, error) {
	rows, err := s.db.Query(
		"SELECT " + subscriberColumns + " FROM subscribers WHERE active = 1 ORDER BY id",
	)
	if err != nil {
		return nil, readErr("query subscribers", err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, readErr("scan subscriber", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate subscribers", err)
	}

	return subs, nil
}

// SetMinProfit sets the profit floor of a subscriber
func (s *Storage) SetMinProfit(userID int64, minProfit float64) error {
	return s.updateField(userID, "min_profit", minProfit)
}

// SetBookmakers replaces the bookmaker allow-list
func (s *Storage) SetBookmakers(userID int64, set filter.Set) error {
	raw, err := filter.EmptyMeansNone.Encode(set)
	if err != nil {
		return err
	}
	return s.updateField(userID, "bookmakers", raw)
}

// SetSports replaces the sport allow-list
func (s *Storage) SetSports(userID int64, set filter.Set) error {
	raw, err := filter.EmptyMeansAll.Encode(set)
	if err != nil {
		return err
	}
	return s.updateField(userID, "sports", raw)
}

// SetLeagues replaces the per-sport league allow-lists
func (s *Storage) SetLeagues(userID int64, leagues map[string]filter.Set) error {
	raw, err := filter.EncodeLeagues(leagues)
	if err != nil {
		return err
	}
	return s.updateField(userID, "leagues", raw)
}

// SetActive flips the housekeeping flag
func (s *Storage) SetActive(userID int64, active bool) error {
	return s.updateField(userID, "active", active)
}

// updateField only ever receives column names from this file.
func (s *Storage) updateField(userID int64, column string, value any) error {
	result, err := s.db.Exec(
		fmt.Sprintf("UPDATE subscribers SET %s = ? WHERE user_id = ?", column),
		value, userID,
	)
	if err != nil {
		return writeErr("update "+column, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ExtendSubscription adds days to a subscription. Renewals stack on an
// expiration still in the future; an expired or missing one restarts at now.
func (s *Storage) ExtendSubscription(userID int64, days int, now time.Time) (time.Time, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return time.Time{}, writeErr("begin renewal", err)
	}
	defer tx.Rollback()

	var expiration sql.NullInt64
	err = tx.QueryRow("SELECT expiration FROM subscribers WHERE user_id = ?", userID).Scan(&expiration)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, readErr("read expiration", err)
	}

	start := now
	if expiration.Valid {
		if current := time.Unix(expiration.Int64, 0); current.After(now) {
			start = current
		}
	}
	next := start.Add(time.Duration(days) * 24 * time.Hour)

	if _, err := tx.Exec(
		"UPDATE subscribers SET expiration = ? WHERE user_id = ?",
		next.Unix(), userID,
	); err != nil {
		return time.Time{}, writeErr("update expiration", err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, writeErr("commit renewal", err)
	}

	return time.Unix(next.Unix(), 0), nil
}

func scanSubscriber(sc scanner) (*Subscriber, error) {
	var sub Subscriber
	var bookmakers, sports, leagues string
	var active int
	var expiration sql.NullInt64

	err := sc.Scan(&sub.ID, &sub.UserID, &sub.MinProfit, &bookmakers, &sports, &leagues, &active, &expiration)
	if err != nil {
		return nil, err
	}

	sub.Active = active != 0
	if expiration.Valid {
		exp := time.Unix(expiration.Int64, 0)
		sub.Expiration = &exp
	}

	// Unreadable preferences fall back to allowing nothing, so one corrupt
	// row cannot stall matching for everybody else.
	if sub.Bookmakers, err = filter.EmptyMeansNone.Decode(bookmakers); err != nil {
		sub.Bookmakers = filter.NoneOf()
	}
	if sub.Sports, err = filter.EmptyMeansAll.Decode(sports); err != nil {
		sub.Sports = filter.NoneOf()
	}
	if sub.Leagues, err = filter.DecodeLeagues(leagues); err != nil {
		sub.Leagues = map[string]filter.Set{}
	}

	return &sub, nil
}
