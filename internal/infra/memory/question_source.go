package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// CachingSource caches the fetched record set with TTL to avoid repeated
// backing-store hits.
type CachingSource struct {
	inner app.QuestionSource
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu        sync.RWMutex
	records   []domain.RawRecord
	expiresAt time.Time
}

const recordsSFKey = "questions"

func NewCachingSource(inner app.QuestionSource, ttl time.Duration) *CachingSource {
	return &CachingSource{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CachingSource) FetchQuestions(ctx context.Context) ([]domain.RawRecord, error) {
	now := s.clock()

	s.mu.RLock()
	if s.records != nil && s.expiresAt.After(now) {
		records := s.records
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(recordsSFKey, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.records != nil && s.expiresAt.After(now) {
			records := s.records
			s.mu.RUnlock()
			return records, nil
		}
		s.mu.RUnlock()

		records, err := s.inner.FetchQuestions(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.records = records
		s.expiresAt = now.Add(s.ttlWithJitter())
		s.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawRecord), nil
}

func (s *CachingSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticSource serves a fixed record set (useful for tests/demos).
type StaticSource struct {
	records []domain.RawRecord
}

func NewStaticSource(records []domain.RawRecord) *StaticSource {
	return &StaticSource{records: records}
}

func (s *StaticSource) FetchQuestions(_ context.Context) ([]domain.RawRecord, error) {
	out := make([]domain.RawRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}
