package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/talkai/tickerbot/internal/models"
)

// GetPortfolioValue retrieves the cached valuation for one user and day,
// or nil when no entry exists yet
func (db *DB) GetPortfolioValue(userID int, on time.Time) (*models.PortfolioValue, error) {
	query := `
		SELECT id, user_id, "on", value
		FROM portfolio_values
		WHERE user_id = $1 AND "on" = $2
	`
	var pv models.PortfolioValue
	err := db.conn.QueryRow(query, userID, dateOnly(on)).Scan(&pv.ID, &pv.UserID, &pv.On, &pv.Value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio value: %w", err)
	}

	return &pv, nil
}

// CreatePortfolioValue stores a computed daily valuation. Entries are
// write-once: a concurrent computation of the same day loses the race and
// keeps the first committed value, so repeated reads stay identical.
func (db *DB) CreatePortfolioValue(pv *models.PortfolioValue) error {
	query := `
		INSERT INTO portfolio_values (user_id, "on", value)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, "on") DO NOTHING
		RETURNING id
	`
	pv.On = dateOnly(pv.On)
	err := db.conn.QueryRow(query, pv.UserID, pv.On, pv.Value).Scan(&pv.ID)

	if err == sql.ErrNoRows {
		// Lost the race; surface the entry that won.
		existing, getErr := db.GetPortfolioValue(pv.UserID, pv.On)
		if getErr != nil {
			return getErr
		}
		*pv = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create portfolio value: %w", err)
	}
	return nil
}

// GetPortfolioValues retrieves all cached valuations for a user in a date
// range, oldest first
func (db *DB) GetPortfolioValues(userID int, from, to time.Time) ([]*models.PortfolioValue, error) {
	query := `
		SELECT id, user_id, "on", value
		FROM portfolio_values
		WHERE user_id = $1 AND "on" >= $2 AND "on" <= $3
		ORDER BY "on" ASC
	`
	rows, err := db.conn.Query(query, userID, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio values: %w", err)
	}
	defer rows.Close()

	var values []*models.PortfolioValue
	for rows.Next() {
		var pv models.PortfolioValue
		if err := rows.Scan(&pv.ID, &pv.UserID, &pv.On, &pv.Value); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio value: %w", err)
		}
		values = append(values, &pv)
	}

	return values, nil
}

// dateOnly truncates a timestamp to its UTC calendar date
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
