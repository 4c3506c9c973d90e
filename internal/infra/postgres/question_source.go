package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-session-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Source loads the question set from Postgres JSONB rows, in presentation
// order.
type Source struct {
	pool *pgxpool.Pool
}

func NewSource(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

func (s *Source) FetchQuestions(ctx context.Context) ([]domain.RawRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var record domain.RawRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return records, nil
}
