package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/formlio/surveybot-backend/internal/config"
	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AnswerService pushes respondent answers onto the persistence queue. Writes
// never touch PostgreSQL on the request path; the answer worker drains the
// queue in the background.
type AnswerService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(rdb *redis.Client, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		rdb: rdb,
		log: log.With().Str("component", "answer_service").Logger(),
	}
}

// Enqueue serializes an answer onto the persist queue.
func (s *AnswerService) Enqueue(ctx context.Context, a *model.ResponseAnswer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue answer: %w", err)
	}
	return nil
}
