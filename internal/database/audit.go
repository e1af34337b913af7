package database

import (
	"fmt"
	"time"

	"github.com/talkai/tickerbot/internal/models"
)

// CreateTradeAudit inserts a consumed trade event into the audit mirror
func (db *DB) CreateTradeAudit(a *models.TradeAudit) error {
	query := `
		INSERT INTO trade_audit (
			event_id, user_id, ticker, side, quantity, amount, executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query,
		a.EventID, a.UserID, a.Ticker, a.Side, a.Quantity, a.Amount, a.ExecutedAt, now,
	).Scan(&a.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade audit: %w", err)
	}
	a.CreatedAt = now
	return nil
}

// TradeAuditExists checks whether an event has already been mirrored
func (db *DB) TradeAuditExists(eventID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trade_audit WHERE event_id = $1)`
	var exists bool
	err := db.conn.QueryRow(query, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trade audit existence: %w", err)
	}
	return exists, nil
}

// GetTradeAuditsByUser retrieves a user's mirrored trade events, most recent first
func (db *DB) GetTradeAuditsByUser(userID int, limit int) ([]*models.TradeAudit, error) {
	query := `
		SELECT id, event_id, user_id, ticker, side, quantity, amount, executed_at, created_at
		FROM trade_audit
		WHERE user_id = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.TradeAudit
	for rows.Next() {
		var a models.TradeAudit
		err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.Ticker, &a.Side,
			&a.Quantity, &a.Amount, &a.ExecutedAt, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade audit: %w", err)
		}
		audits = append(audits, &a)
	}

	return audits, nil
}
