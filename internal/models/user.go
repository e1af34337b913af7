package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCash is the simulated starting balance every account begins with,
// and the balance an account returns to on reset.
var DefaultCash = decimal.NewFromFloat(10000.00)

// Notification frequency constants
const (
	NotifyDaily  = "daily"
	NotifyWeekly = "weekly"
	NotifyOff    = "off"
)

// User represents a player account tied to a chat identity
type User struct {
	ID                    int             `json:"id"`
	Email                 string          `json:"email"`
	Name                  string          `json:"name,omitempty"`
	SlackID               string          `json:"slack_id,omitempty"`
	TeamID                string          `json:"team_id"`
	NotificationFrequency string          `json:"notification_frequency"`
	Cash                  decimal.Decimal `json:"cash"`
	ResetOn               time.Time       `json:"reset_on"`
	CreatedAt             time.Time       `json:"created_at"`
}

// NaturalIdentifier returns the name a user is addressed by in messages,
// falling back to the email when no display name is known.
func (u *User) NaturalIdentifier() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
