package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/talkai/tickerbot/internal/models"
)

// ExecuteBuy commits a buy as a single database transaction: the cash
// decrement, the holding upsert and the ledger append all land together or
// not at all. The cash check rides on the conditional UPDATE, so a
// concurrent spend cannot slip between check and decrement.
//
// Returns the remaining cash and the appended ledger entry, or
// models.ErrInsufficientFunds with zero mutations.
func (db *DB) ExecuteBuy(userID int, ticker string, quantity int64, amount decimal.Decimal) (decimal.Decimal, *models.Transaction, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to begin buy: %w", err)
	}
	defer tx.Rollback()

	var newCash decimal.Decimal
	err = tx.QueryRow(`
		UPDATE users SET cash = cash - $2
		WHERE id = $1 AND cash >= $2
		RETURNING cash
	`, userID, amount).Scan(&newCash)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, nil, models.ErrInsufficientFunds
		}
		return decimal.Zero, nil, fmt.Errorf("failed to debit cash: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO holdings (user_id, ticker, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, ticker) DO UPDATE SET
			quantity = holdings.quantity + EXCLUDED.quantity
	`, userID, ticker, quantity)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to upsert holding: %w", err)
	}

	record := &models.Transaction{
		UserID:    userID,
		Ticker:    ticker,
		Quantity:  quantity,
		Buy:       true,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	err = tx.QueryRow(`
		INSERT INTO transactions (user_id, ticker, quantity, buy, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, record.UserID, record.Ticker, record.Quantity, record.Buy, record.Amount, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to commit buy: %w", err)
	}
	return newCash, record, nil
}

// ExecuteSell commits a sell as a single database transaction: the cash
// credit, the holding decrement (or removal when it reaches zero) and the
// ledger append. The caller has already clamped quantity to the held amount;
// the conditional UPDATE still refuses to take a holding negative, so a
// concurrent sell of the same position fails cleanly instead of corrupting it.
func (db *DB) ExecuteSell(userID int, ticker string, quantity int64, amount decimal.Decimal) (decimal.Decimal, *models.Transaction, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to begin sell: %w", err)
	}
	defer tx.Rollback()

	var remaining int64
	err = tx.QueryRow(`
		UPDATE holdings SET quantity = quantity - $3
		WHERE user_id = $1 AND ticker = $2 AND quantity >= $3
		RETURNING quantity
	`, userID, ticker, quantity).Scan(&remaining)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, nil, models.ErrNoPosition
		}
		return decimal.Zero, nil, fmt.Errorf("failed to decrement holding: %w", err)
	}

	if remaining == 0 {
		_, err = tx.Exec(`DELETE FROM holdings WHERE user_id = $1 AND ticker = $2`, userID, ticker)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("failed to delete holding: %w", err)
		}
	}

	var newCash decimal.Decimal
	err = tx.QueryRow(`
		UPDATE users SET cash = cash + $2
		WHERE id = $1
		RETURNING cash
	`, userID, amount).Scan(&newCash)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to credit cash: %w", err)
	}

	record := &models.Transaction{
		UserID:    userID,
		Ticker:    ticker,
		Quantity:  quantity,
		Buy:       false,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	err = tx.QueryRow(`
		INSERT INTO transactions (user_id, ticker, quantity, buy, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, record.UserID, record.Ticker, record.Quantity, record.Buy, record.Amount, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to commit sell: %w", err)
	}
	return newCash, record, nil
}
