package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gauntlet-game-service/internal/domain"
)

// TeamStore reads credential records from Postgres.
type TeamStore struct {
	pool *pgxpool.Pool
}

func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

func (s *TeamStore) Get(ctx context.Context, teamID string) (domain.Team, error) {
	var team domain.Team
	err := s.pool.QueryRow(ctx,
		`SELECT id, password_hash FROM teams WHERE id=$1`,
		domain.NormalizeTeamID(teamID),
	).Scan(&team.ID, &team.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("load team: %w", err)
	}
	return team, nil
}
