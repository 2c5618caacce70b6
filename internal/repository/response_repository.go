package repository

import (
	"context"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseRepository handles respondent answer data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert stores an answer, overwriting a respondent's previous answer to the
// same question (back-navigation in the bot channel re-submits).
func (r *ResponseRepository) Upsert(ctx context.Context, a *model.ResponseAnswer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO response_answers (survey_id, question_id, respondent_id, answer)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (survey_id, question_id, respondent_id) DO UPDATE
		 SET answer = EXCLUDED.answer, created_at = NOW()
		 RETURNING id, created_at`,
		a.SurveyID, a.QuestionID, a.RespondentID, a.Answer,
	).Scan(&a.ID, &a.CreatedAt)
}

// ListBySurveyPaginated retrieves answers for a survey with total count.
func (r *ResponseRepository) ListBySurveyPaginated(ctx context.Context, surveyID uuid.UUID, limit, offset int) ([]model.ResponseAnswer, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, survey_id, question_id, respondent_id, answer, created_at
		 FROM response_answers WHERE survey_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, surveyID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var answers []model.ResponseAnswer
	for rows.Next() {
		var a model.ResponseAnswer
		if err := rows.Scan(&a.ID, &a.SurveyID, &a.QuestionID, &a.RespondentID, &a.Answer, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM response_answers WHERE survey_id = $1`, surveyID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return answers, total, nil
}
