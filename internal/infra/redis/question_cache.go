package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"gauntlet-game-service/internal/app"
	"gauntlet-game-service/internal/domain"
)

// QuestionCache caches per-type question lists in Redis (one JSON value per
// type tag) and falls back to the backing repository on a miss.
// Cached entries live server-side only; public projections are still
// stripped of answers at the domain boundary.
type QuestionCache struct {
	client *redis.Client
	source app.QuestionRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// cachedQuestion is the persistence form. domain.Question deliberately drops
// the answer from JSON, so the cache uses its own encoding that keeps it.
type cachedQuestion struct {
	ID       string              `json:"id"`
	Type     domain.QuestionType `json:"type"`
	Prompt   string              `json:"prompt"`
	Choices  []string            `json:"choices,omitempty"`
	AssetURL string              `json:"assetUrl,omitempty"`
	Answer   string              `json:"answer"`
}

func (c *QuestionCache) FindByType(ctx context.Context, t domain.QuestionType) ([]domain.Question, error) {
	key := c.key(t)

	if questions, ok := c.readCache(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(string(t), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.readCache(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.source.FindByType(ctx, t)
		if err != nil {
			return nil, err
		}

		encoded := make([]cachedQuestion, 0, len(questions))
		for _, q := range questions {
			encoded = append(encoded, cachedQuestion{
				ID: q.ID, Type: q.Type, Prompt: q.Prompt,
				Choices: q.Choices, AssetURL: q.AssetURL, Answer: q.Answer,
			})
		}
		if data, err := json.Marshal(encoded); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) FindByID(ctx context.Context, id string) (domain.Question, error) {
	return c.source.FindByID(ctx, id)
}

func (c *QuestionCache) FindByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	return c.source.FindByIDs(ctx, ids)
}

func (c *QuestionCache) readCache(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var encoded []cachedQuestion
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, false
	}
	questions := make([]domain.Question, 0, len(encoded))
	for _, q := range encoded {
		questions = append(questions, domain.Question{
			ID: q.ID, Type: q.Type, Prompt: q.Prompt,
			Choices: q.Choices, AssetURL: q.AssetURL, Answer: q.Answer,
		})
	}
	return questions, true
}

func (c *QuestionCache) key(t domain.QuestionType) string {
	return "questions:" + string(t)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
