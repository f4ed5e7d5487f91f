package memory

import (
	"context"

	"gauntlet-game-service/internal/domain"
)

// TeamStore is an in-memory credential store keyed by normalized team ID.
type TeamStore struct {
	teams map[string]domain.Team
}

func NewTeamStore(teams []domain.Team) *TeamStore {
	byID := make(map[string]domain.Team, len(teams))
	for _, t := range teams {
		byID[domain.NormalizeTeamID(t.ID)] = t
	}
	return &TeamStore{teams: byID}
}

func (s *TeamStore) Get(_ context.Context, teamID string) (domain.Team, error) {
	team, ok := s.teams[domain.NormalizeTeamID(teamID)]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return team, nil
}
