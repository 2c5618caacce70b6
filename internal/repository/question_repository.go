package repository

import (
	"context"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySurvey retrieves all questions for a survey, ordered by order_index.
func (r *QuestionRepository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, survey_id, order_index, question_type, prompt, options, flow
		 FROM questions WHERE survey_id = $1
		 ORDER BY order_index`, surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.OrderIndex, &q.Type, &q.Prompt, &q.Options, &q.Flow); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves one question, scoped to its survey.
func (r *QuestionRepository) GetByID(ctx context.Context, surveyID uuid.UUID, questionID int64) (*model.Question, error) {
	var q model.Question
	err := r.pool.QueryRow(ctx,
		`SELECT id, survey_id, order_index, question_type, prompt, options, flow
		 FROM questions WHERE id = $1 AND survey_id = $2`, questionID, surveyID,
	).Scan(&q.ID, &q.SurveyID, &q.OrderIndex, &q.Type, &q.Prompt, &q.Options, &q.Flow)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (survey_id, order_index, question_type, prompt, options, flow)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.SurveyID, q.OrderIndex, q.Type, q.Prompt, q.Options, q.Flow,
	).Scan(&q.ID)
}

// Update modifies a question's prompt, options, and flow config.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE questions SET prompt = $1, options = $2, flow = $3
		 WHERE id = $4 AND survey_id = $5`,
		q.Prompt, q.Options, q.Flow, q.ID, q.SurveyID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateFlow replaces a question's flow config in a single statement, so a
// branching-rule mutation either fully applies or not at all.
func (r *QuestionRepository) UpdateFlow(ctx context.Context, surveyID uuid.UUID, questionID int64, flow model.FlowConfig) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE questions SET flow = $1 WHERE id = $2 AND survey_id = $3`,
		flow, questionID, surveyID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteWithRepair removes a question and applies the precomputed repairs —
// nulled back-references and renumbered order indexes — to the surviving
// questions, all in one transaction.
func (r *QuestionRepository) DeleteWithRepair(ctx context.Context, surveyID uuid.UUID, questionID int64, repaired []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx,
			`DELETE FROM questions WHERE id = $1 AND survey_id = $2`,
			questionID, surveyID,
		)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		for i := range repaired {
			q := &repaired[i]
			if _, err := tx.Exec(ctx,
				`UPDATE questions SET order_index = $1, flow = $2
				 WHERE id = $3 AND survey_id = $4`,
				q.OrderIndex, q.Flow, q.ID, q.SurveyID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reorder rewrites order_index for every listed question in one transaction.
// Indexes are assigned by position in ids.
func (r *QuestionRepository) Reorder(ctx context.Context, surveyID uuid.UUID, ids []int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Two passes avoid transient unique-index collisions.
		for i, id := range ids {
			cmdTag, err := tx.Exec(ctx,
				`UPDATE questions SET order_index = $1 WHERE id = $2 AND survey_id = $3`,
				-(i + 1), id, surveyID,
			)
			if err != nil {
				return err
			}
			if cmdTag.RowsAffected() == 0 {
				return pgx.ErrNoRows
			}
		}
		for i, id := range ids {
			if _, err := tx.Exec(ctx,
				`UPDATE questions SET order_index = $1 WHERE id = $2 AND survey_id = $3`,
				i, id, surveyID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
