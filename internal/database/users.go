package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/talkai/tickerbot/internal/models"
)

// CreateUser inserts a new user account with the default starting cash.
// ResetOn is assigned by the server: it is the epoch before which the
// account has no history.
func (db *DB) CreateUser(u *models.User) error {
	query := `
		INSERT INTO users (
			email, name, slack_id, team_id, notification_frequency,
			cash, reset_on, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now()
	if u.NotificationFrequency == "" {
		u.NotificationFrequency = models.NotifyWeekly
	}
	if u.Cash.IsZero() {
		u.Cash = models.DefaultCash
	}

	err := db.conn.QueryRow(query,
		u.Email, u.Name, u.SlackID, u.TeamID, u.NotificationFrequency,
		u.Cash, now, now,
	).Scan(&u.ID)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ResetOn = now
	u.CreatedAt = now
	return nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(id int) (*models.User, error) {
	query := `
		SELECT id, email, name, slack_id, team_id, notification_frequency,
		       cash, reset_on, created_at
		FROM users
		WHERE id = $1
	`
	return db.scanUser(db.conn.QueryRow(query, id))
}

// GetUserBySlackID retrieves a user by chat identity
func (db *DB) GetUserBySlackID(slackID string) (*models.User, error) {
	query := `
		SELECT id, email, name, slack_id, team_id, notification_frequency,
		       cash, reset_on, created_at
		FROM users
		WHERE slack_id = $1
	`
	return db.scanUser(db.conn.QueryRow(query, slackID))
}

// GetUsersByTeam retrieves all users in a ranking cohort, oldest account first
func (db *DB) GetUsersByTeam(teamID string) ([]*models.User, error) {
	query := `
		SELECT id, email, name, slack_id, team_id, notification_frequency,
		       cash, reset_on, created_at
		FROM users
		WHERE team_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.conn.Query(query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var name, slackID sql.NullString
		err := rows.Scan(
			&u.ID, &u.Email, &name, &slackID, &u.TeamID, &u.NotificationFrequency,
			&u.Cash, &u.ResetOn, &u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if name.Valid {
			u.Name = name.String
		}
		if slackID.Valid {
			u.SlackID = slackID.String
		}
		users = append(users, &u)
	}

	return users, nil
}

// UpdateNotificationFrequency sets a user's notification preference
func (db *DB) UpdateNotificationFrequency(userID int, frequency string) error {
	query := `UPDATE users SET notification_frequency = $2 WHERE id = $1`
	result, err := db.conn.Exec(query, userID, frequency)
	if err != nil {
		return fmt.Errorf("failed to update notification frequency: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %d", userID)
	}
	return nil
}

// ResetUser restores an account to the default starting cash, removes all
// holdings and moves the account epoch forward. The transaction log is left
// intact; valuations before the new epoch report the default cash.
func (db *DB) ResetUser(userID int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`UPDATE users SET cash = $2, reset_on = $3 WHERE id = $1`,
		userID, models.DefaultCash, now)
	if err != nil {
		return fmt.Errorf("failed to reset user: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %d", userID)
	}

	if _, err := tx.Exec(`DELETE FROM holdings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var name, slackID sql.NullString

	err := row.Scan(
		&u.ID, &u.Email, &name, &slackID, &u.TeamID, &u.NotificationFrequency,
		&u.Cash, &u.ResetOn, &u.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if name.Valid {
		u.Name = name.String
	}
	if slackID.Valid {
		u.SlackID = slackID.String
	}

	return &u, nil
}
