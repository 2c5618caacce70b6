package repository

import (
	"context"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SurveyRepository handles survey data access.
type SurveyRepository struct {
	pool *pgxpool.Pool
}

// NewSurveyRepository creates a new SurveyRepository.
func NewSurveyRepository(pool *pgxpool.Pool) *SurveyRepository {
	return &SurveyRepository{pool: pool}
}

// GetByID retrieves a survey by its UUID.
func (r *SurveyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Survey, error) {
	var s model.Survey
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, author_id, status, created_at, updated_at
		 FROM surveys WHERE id = $1`, id,
	).Scan(&s.ID, &s.Title, &s.AuthorID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByAuthorPaginated retrieves surveys for an author with total count.
// authorID 0 lists all surveys.
func (r *SurveyRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Survey, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, author_id, status, created_at, updated_at
		 FROM surveys
		 WHERE ($1 = 0 OR author_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var surveys []model.Survey
	for rows.Next() {
		var s model.Survey
		if err := rows.Scan(&s.ID, &s.Title, &s.AuthorID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		surveys = append(surveys, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM surveys WHERE ($1 = 0 OR author_id = $1)`, authorID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return surveys, total, nil
}

// ListPublished retrieves all surveys currently in PUBLISHED status.
func (r *SurveyRepository) ListPublished(ctx context.Context) ([]model.Survey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, author_id, status, created_at, updated_at
		 FROM surveys WHERE status = $1
		 ORDER BY created_at`, model.SurveyStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var surveys []model.Survey
	for rows.Next() {
		var s model.Survey
		if err := rows.Scan(&s.ID, &s.Title, &s.AuthorID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

// Create inserts a new survey.
func (r *SurveyRepository) Create(ctx context.Context, s *model.Survey) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO surveys (title, author_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		s.Title, s.AuthorID, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update modifies a survey's title.
func (r *SurveyRepository) Update(ctx context.Context, s *model.Survey) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE surveys SET title = $1, updated_at = NOW() WHERE id = $2`,
		s.Title, s.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateStatus transitions a survey's lifecycle status.
func (r *SurveyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SurveyStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE surveys SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a survey. Questions and answers cascade at the schema level.
func (r *SurveyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
