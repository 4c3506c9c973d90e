package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Source caches the serialized question record set in Redis and falls back to
// the wrapped source on miss.
// Records are stored as: SET questions:records {json array}
type Source struct {
	client *redis.Client
	inner  app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const recordsKey = "questions:records"

func NewSource(client *redis.Client, inner app.QuestionSource, ttl time.Duration) *Source {
	return &Source{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Source) FetchQuestions(ctx context.Context) ([]domain.RawRecord, error) {
	if records, ok := s.cached(ctx); ok {
		return records, nil
	}

	result, err, _ := s.sf.Do(recordsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := s.cached(ctx); ok {
			return records, nil
		}

		records, err := s.inner.FetchQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(records); err == nil {
			// best-effort cache fill
			_ = s.client.Set(ctx, recordsKey, data, s.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawRecord), nil
}

// cached returns the record set from Redis, treating any read or decode
// failure as a miss.
func (s *Source) cached(ctx context.Context) ([]domain.RawRecord, bool) {
	data, err := s.client.Get(ctx, recordsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var records []domain.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (s *Source) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
