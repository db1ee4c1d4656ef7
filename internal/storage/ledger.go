package storage

import (
	"github.com/shopspring/decimal"
)

// --- Stake ledger ---

// RecordBet registers a stake on a stored surebet. The realized profit is
// the stake times the surebet's guaranteed profit percentage.
func (s *Storage) RecordBet(userID, surebetID int64, stake decimal.Decimal) (*Bet, error) {
	sb, err := s.GetSurebet(surebetID)
	if err != nil {
		return nil, err
	}

	profitPct := decimal.NewFromFloat(sb.Profit)
	realized := stake.Mul(profitPct).Div(decimal.NewFromInt(100)).Round(2)

	result, err := s.db.Exec(
		`INSERT INTO subscriber_bets (user_id, surebet_id, profit_percent, stake, realized_profit)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, surebetID, sb.Profit, stake.InexactFloat64(), realized.InexactFloat64(),
	)
	if err != nil {
		return nil, writeErr("insert bet", err)
	}

	id, _ := result.LastInsertId()
	return &Bet{
		ID:             id,
		UserID:         userID,
		SurebetID:      surebetID,
		ProfitPercent:  sb.Profit,
		Stake:          stake,
		RealizedProfit: realized,
	}, nil
}

// GetBetStats sums a subscriber's ledger
func (s *Storage) GetBetStats(userID int64) (*BetStats, error) {
	rows, err := s.db.Query(
		"SELECT stake, realized_profit FROM subscriber_bets WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, readErr("query bets", err)
	}
	defer rows.Close()

	stats := &BetStats{Volume: decimal.Zero, Profit: decimal.Zero}
	for rows.Next() {
		var stake, profit float64
		if err := rows.Scan(&stake, &profit); err != nil {
			return nil, readErr("scan bet", err)
		}
		stats.Count++
		stats.Volume = stats.Volume.Add(decimal.NewFromFloat(stake))
		stats.Profit = stats.Profit.Add(decimal.NewFromFloat(profit))
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate bets", err)
	}

	return stats, nil
}
