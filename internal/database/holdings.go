package database

import (
	"database/sql"
	"fmt"

	"github.com/talkai/tickerbot/internal/models"
)

// GetHolding retrieves a user's position in one ticker. Absence of a row
// means the user holds nothing of that ticker.
func (db *DB) GetHolding(userID int, ticker string) (*models.Holding, error) {
	query := `
		SELECT id, user_id, ticker, quantity
		FROM holdings
		WHERE user_id = $1 AND ticker = $2
	`
	var h models.Holding
	err := db.conn.QueryRow(query, userID, ticker).Scan(&h.ID, &h.UserID, &h.Ticker, &h.Quantity)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// GetHoldingsByUser retrieves all of a user's positions ordered by ticker
func (db *DB) GetHoldingsByUser(userID int) ([]*models.Holding, error) {
	query := `
		SELECT id, user_id, ticker, quantity
		FROM holdings
		WHERE user_id = $1
		ORDER BY ticker ASC
	`
	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.Ticker, &h.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}

	return holdings, nil
}

// CountHoldings returns the number of open positions for a user
func (db *DB) CountHoldings(userID int) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM holdings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return count, nil
}
