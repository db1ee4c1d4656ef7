package storage

import (
	"database/sql"
	"math"
	"time"
)

// --- Subscription payments ---

// MarkPayment records a subscription payment keyed by transfer, returns true
// if new
func (s *Storage) MarkPayment(transferID string, userID int64, amount float64, sender string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO subscription_payments (event_id, user_id, amount, sender_address)
		 VALUES (?, ?, ?, ?)`,
		transferID, userID, amount, sender,
	)
	if err != nil {
		return false, writeErr("mark payment", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RegisterPendingPayment remembers the unique amount a user was asked to pay
func (s *Storage) RegisterPendingPayment(userID int64, uniqueAmount float64) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pending_payments (user_id, unique_amount, created_at)
		 VALUES (?, ?, ?)`,
		userID, uniqueAmount, now,
	)
	if err != nil {
		return writeErr("register pending payment", err)
	}
	return nil
}

// GetUserByPaymentAmount finds a user by their unique payment amount
func (s *Storage) GetUserByPaymentAmount(amount float64) (int64, error) {
	var userID int64
	err := s.db.QueryRow(
		`SELECT user_id FROM pending_payments
		 WHERE ABS(unique_amount - ?) < 0.0001
		 ORDER BY created_at DESC LIMIT 1`,
		amount,
	).Scan(&userID)

	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, readErr("pending payment", err)
	}
	return userID, nil
}

// ClearPendingPayment removes a pending payment
func (s *Storage) ClearPendingPayment(userID int64) error {
	_, err := s.db.Exec(
		"DELETE FROM pending_payments WHERE user_id = ?",
		userID,
	)
	return err
}

// GenerateUniqueAmount derives a per-user payment amount so a transfer
// without a comment can still be attributed.
func GenerateUniqueAmount(userID int64, basePrice float64) float64 {
	suffix := float64(userID%1000) / 10000.0
	return math.Round((basePrice+suffix)*10000) / 10000
}
