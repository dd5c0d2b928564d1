package repository

import (
	"context"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

type RecommendationInsert struct {
	AssessmentID  uuid.UUID
	ProgramID     uuid.UUID
	MatchScore    int
	SkillsCovered []uuid.UUID
}

type RecommendationRepository interface {
	Insert(ctx context.Context, in RecommendationInsert) (uuid.UUID, error)
	MarkClicked(ctx context.Context, id uuid.UUID) error
	MarkEnrolled(ctx context.Context, id uuid.UUID) error
}

type PostgresRecommendationRepository struct {
	db database.DB
}

func NewPostgresRecommendationRepository(db database.DB) *PostgresRecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

func (r *PostgresRecommendationRepository) Insert(ctx context.Context, in RecommendationInsert) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO program_recommendations
		   (id, assessment_id, program_id, match_score, skills_covered, user_clicked, user_enrolled)
		 VALUES ($1, $2, $3, $4, $5, false, false)`,
		id, in.AssessmentID, in.ProgramID, in.MatchScore, in.SkillsCovered,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PostgresRecommendationRepository) MarkClicked(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE program_recommendations SET user_clicked = true WHERE id = $1`, id)
	return err
}

func (r *PostgresRecommendationRepository) MarkEnrolled(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE program_recommendations SET user_enrolled = true WHERE id = $1`, id)
	return err
}
