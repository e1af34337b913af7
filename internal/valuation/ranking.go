package valuation

import (
	"context"
	"fmt"
	"sort"

	"github.com/talkai/tickerbot/internal/models"
)

// Standing describes one user's place in their team's ranking
type Standing struct {
	Rank   int                `json:"rank"`
	Value  *models.RankedUser `json:"value"`
	Best   *models.RankedUser `json:"best"`
	Ahead  *models.RankedUser `json:"ahead,omitempty"`
	Behind *models.RankedUser `json:"behind,omitempty"`
}

// RankTeam orders a team's users by current portfolio value, highest
// first. The sort is stable: tied users keep their account-creation order.
// A pricing failure for any one user fails the whole ranking.
func (e *Engine) RankTeam(ctx context.Context, teamID string) ([]*models.RankedUser, error) {
	users, err := e.store.GetUsersByTeam(teamID)
	if err != nil {
		return nil, err
	}

	ranked := make([]*models.RankedUser, 0, len(users))
	for _, user := range users {
		value, err := e.currentValueOf(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to value %s: %w", user.NaturalIdentifier(), err)
		}
		ranked = append(ranked, &models.RankedUser{User: user, Value: value})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value.GreaterThan(ranked[j].Value)
	})
	return ranked, nil
}

// Standing ranks the user's team and reports the user's own rank together
// with the leader and immediate neighbors
func (e *Engine) Standing(ctx context.Context, userID int) (*Standing, error) {
	user, err := e.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	ranked, err := e.RankTeam(ctx, user.TeamID)
	if err != nil {
		return nil, err
	}

	for i, entry := range ranked {
		if entry.User.ID != userID {
			continue
		}
		standing := &Standing{
			Rank:  i + 1,
			Value: entry,
			Best:  ranked[0],
		}
		if i > 0 {
			standing.Ahead = ranked[i-1]
		}
		if i < len(ranked)-1 {
			standing.Behind = ranked[i+1]
		}
		return standing, nil
	}
	return nil, fmt.Errorf("user %d not found in team %s ranking", userID, user.TeamID)
}
