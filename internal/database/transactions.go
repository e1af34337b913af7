package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/talkai/tickerbot/internal/models"
)

const transactionColumns = `id, user_id, ticker, quantity, buy, amount, created_at`

// GetTransactionsByUser retrieves a user's ledger, most recent first
func (db *DB) GetTransactionsByUser(userID int, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return db.scanTransactions(db.conn.Query(query, userID, limit))
}

// GetTransactionsAfter retrieves every transaction created strictly after
// the cutoff, most recent first. This is the replay window the valuation
// engine undoes when reconstructing a past day.
func (db *DB) GetTransactionsAfter(userID int, cutoff time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at DESC, id DESC
	`
	return db.scanTransactions(db.conn.Query(query, userID, cutoff))
}

// CountTransactions returns the number of ledger entries for a user
func (db *DB) CountTransactions(userID int) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (db *DB) scanTransactions(rows *sql.Rows, err error) ([]*models.Transaction, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Ticker, &t.Quantity, &t.Buy, &t.Amount, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}

	return transactions, nil
}
