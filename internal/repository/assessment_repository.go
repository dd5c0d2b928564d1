package repository

import (
	"context"
	"errors"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

var ErrAssessmentNotFound = errors.New("assessment not found")

const (
	BandNeedsDevelopment = "needs_development"
	BandBuilding         = "building"
	BandProficient       = "proficient"
)

type Assessment struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	JobID   uuid.UUID
	SOCCode string
}

// AssessmentSkillResult rows are immutable once written; matching treats them
// as read-only input.
type AssessmentSkillResult struct {
	AssessmentID uuid.UUID
	SkillID      uuid.UUID
	ScorePct     float64
	Band         string
}

type AssessmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Assessment, error)
	ListSkillResults(ctx context.Context, assessmentID uuid.UUID) ([]AssessmentSkillResult, error)
}

type PostgresAssessmentRepository struct {
	db database.DB
}

func NewPostgresAssessmentRepository(db database.DB) *PostgresAssessmentRepository {
	return &PostgresAssessmentRepository{db: db}
}

func (r *PostgresAssessmentRepository) Get(ctx context.Context, id uuid.UUID) (Assessment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT a.id, a.user_id, a.job_id, COALESCE(j.soc_code, '')
		 FROM assessments a
		 JOIN jobs j ON j.id = a.job_id
		 WHERE a.id = $1`,
		id,
	)

	var out Assessment
	if err := row.Scan(&out.ID, &out.UserID, &out.JobID, &out.SOCCode); err != nil {
		if isNoRows(err) {
			return Assessment{}, ErrAssessmentNotFound
		}
		return Assessment{}, err
	}
	return out, nil
}

func (r *PostgresAssessmentRepository) ListSkillResults(ctx context.Context, assessmentID uuid.UUID) ([]AssessmentSkillResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT assessment_id, skill_id, score_pct, band
		 FROM assessment_skill_results
		 WHERE assessment_id = $1`,
		assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AssessmentSkillResult, 0)
	for rows.Next() {
		var it AssessmentSkillResult
		if err := rows.Scan(&it.AssessmentID, &it.SkillID, &it.ScorePct, &it.Band); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
