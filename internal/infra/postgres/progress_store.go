package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gauntlet-game-service/internal/domain"
)

// ProgressStore persists per-team progress in Postgres. Update runs the
// mutation inside a transaction holding a row lock (SELECT ... FOR UPDATE),
// so submissions for one team are serialized without blocking other teams.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

const progressColumns = `team_id, start_time, end_time, completed_rounds, locks, assigned, variant`

func (s *ProgressStore) GetOrCreate(ctx context.Context, p domain.Progress) (domain.Progress, error) {
	locks, assigned, err := marshalState(p)
	if err != nil {
		return domain.Progress{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress (team_id, start_time, end_time, completed_rounds, locks, assigned, variant)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (team_id) DO NOTHING`,
		p.TeamID, p.StartTime, p.EndTime, p.CompletedRounds, locks, assigned, string(p.Variant))
	if err != nil {
		return domain.Progress{}, fmt.Errorf("create progress: %w", err)
	}
	return s.Get(ctx, p.TeamID)
}

func (s *ProgressStore) Get(ctx context.Context, teamID string) (domain.Progress, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE team_id=$1`, teamID)
	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.Progress, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+progressColumns+` FROM progress`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []domain.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ProgressStore) Update(ctx context.Context, teamID string, mutate func(*domain.Progress) error) (domain.Progress, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE team_id=$1 FOR UPDATE`, teamID)
	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("lock progress: %w", err)
	}

	if err := mutate(&p); err != nil {
		return domain.Progress{}, err
	}

	locks, assigned, err := marshalState(p)
	if err != nil {
		return domain.Progress{}, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE progress
		 SET end_time=$2, completed_rounds=$3, locks=$4, assigned=$5, variant=$6
		 WHERE team_id=$1`,
		teamID, p.EndTime, p.CompletedRounds, locks, assigned, string(p.Variant))
	if err != nil {
		return domain.Progress{}, fmt.Errorf("save progress: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Progress{}, fmt.Errorf("commit progress: %w", err)
	}
	return p, nil
}

func marshalState(p domain.Progress) ([]byte, []byte, error) {
	locks, err := json.Marshal(p.Locks)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal locks: %w", err)
	}
	assigned, err := json.Marshal(p.Assigned)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal assigned: %w", err)
	}
	return locks, assigned, nil
}

func scanProgress(row rowScanner) (domain.Progress, error) {
	var (
		p           domain.Progress
		endTime     *time.Time
		locksRaw    []byte
		assignedRaw []byte
		variant     string
	)
	err := row.Scan(&p.TeamID, &p.StartTime, &endTime, &p.CompletedRounds, &locksRaw, &assignedRaw, &variant)
	if err != nil {
		return domain.Progress{}, err
	}
	p.EndTime = endTime
	p.Variant = domain.Variant(variant)
	if err := json.Unmarshal(locksRaw, &p.Locks); err != nil {
		return domain.Progress{}, fmt.Errorf("unmarshal locks: %w", err)
	}
	if err := json.Unmarshal(assignedRaw, &p.Assigned); err != nil {
		return domain.Progress{}, fmt.Errorf("unmarshal assigned: %w", err)
	}
	if p.Assigned == nil {
		p.Assigned = make(map[domain.RoundKey][]string)
	}
	return p, nil
}
