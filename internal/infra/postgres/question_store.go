package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gauntlet-game-service/internal/domain"
)

// QuestionStore reads question records from Postgres. Answers stay inside
// the service; only domain.PublicQuestion projections reach clients.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

const questionColumns = `id, qtype, prompt, choices, asset_url, answer`

func (s *QuestionStore) FindByType(ctx context.Context, t domain.QuestionType) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE qtype=$1`, string(t))
	if err != nil {
		return nil, fmt.Errorf("find questions by type: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (s *QuestionStore) FindByID(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *QuestionStore) FindByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find questions by ids: %w", err)
	}
	defer rows.Close()
	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(ids) {
		return nil, domain.ErrQuestionNotFound
	}
	return questions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (domain.Question, error) {
	var (
		q          domain.Question
		choicesRaw []byte
	)
	if err := row.Scan(&q.ID, &q.Type, &q.Prompt, &choicesRaw, &q.AssetURL, &q.Answer); err != nil {
		return domain.Question{}, err
	}
	if len(choicesRaw) > 0 {
		if err := json.Unmarshal(choicesRaw, &q.Choices); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal choices: %w", err)
		}
	}
	return q, nil
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
