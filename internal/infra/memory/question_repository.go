package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gauntlet-game-service/internal/app"
	"gauntlet-game-service/internal/domain"
)

// StaticQuestionRepository serves questions from an in-memory slice (useful
// for tests, demos, and the no-database fallback).
type StaticQuestionRepository struct {
	questions []domain.Question
	byID      map[string]domain.Question
}

func NewStaticQuestionRepository(questions []domain.Question) *StaticQuestionRepository {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &StaticQuestionRepository{questions: questions, byID: byID}
}

func (r *StaticQuestionRepository) FindByType(_ context.Context, t domain.QuestionType) ([]domain.Question, error) {
	out := make([]domain.Question, 0)
	for _, q := range r.questions {
		if q.Type == t {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *StaticQuestionRepository) FindByID(_ context.Context, id string) (domain.Question, error) {
	q, ok := r.byID[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (r *StaticQuestionRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := r.byID[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		out = append(out, q)
	}
	return out, nil
}

// CachedQuestionRepository caches per-type question lists with a TTL to
// avoid repeated backing-store hits. Lookups by ID pass straight through.
type CachedQuestionRepository struct {
	source app.QuestionRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[domain.QuestionType]cachedList
}

type cachedList struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionRepository(source app.QuestionRepository, ttl time.Duration) *CachedQuestionRepository {
	return &CachedQuestionRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.QuestionType]cachedList),
	}
}

func (r *CachedQuestionRepository) FindByType(ctx context.Context, t domain.QuestionType) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[t]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(string(t), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[t]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.source.FindByType(ctx, t)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[t] = cachedList{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *CachedQuestionRepository) FindByID(ctx context.Context, id string) (domain.Question, error) {
	return r.source.FindByID(ctx, id)
}

func (r *CachedQuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	return r.source.FindByIDs(ctx, ids)
}

func (r *CachedQuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
