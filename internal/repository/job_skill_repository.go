package repository

import (
	"context"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

type JobSkillRequirement struct {
	JobID                uuid.UUID
	SkillID              uuid.UUID
	SkillName            string
	SkillCategory        string
	ImportanceLevel      string
	ProficiencyThreshold *int
	Weight               float64
	ImportanceValue      float64
}

type JobSkillUpsert struct {
	SkillID              uuid.UUID
	ImportanceLevel      string
	ProficiencyThreshold int
	Weight               float64
}

type JobSkillRepository interface {
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]JobSkillRequirement, error)
	ListByJobIDs(ctx context.Context, jobIDs []uuid.UUID) ([]JobSkillRequirement, error)
	UpsertForJob(ctx context.Context, jobID uuid.UUID, skills []JobSkillUpsert) error
}

type PostgresJobSkillRepository struct {
	db database.DB
}

func NewPostgresJobSkillRepository(db database.DB) *PostgresJobSkillRepository {
	return &PostgresJobSkillRepository{db: db}
}

func (r *PostgresJobSkillRepository) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]JobSkillRequirement, error) {
	return r.list(ctx, `WHERE js.job_id = $1`, jobID)
}

func (r *PostgresJobSkillRepository) ListByJobIDs(ctx context.Context, jobIDs []uuid.UUID) ([]JobSkillRequirement, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `WHERE js.job_id = ANY($1)`, jobIDs)
}

func (r *PostgresJobSkillRepository) list(ctx context.Context, where string, arg any) ([]JobSkillRequirement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT js.job_id, js.skill_id, s.name, COALESCE(s.category, ''),
		        COALESCE(js.importance_level, 'helpful'), js.proficiency_threshold,
		        COALESCE(js.weight, 0), COALESCE(js.onet_importance, 0)
		 FROM job_skills js
		 JOIN skills s ON s.id = js.skill_id
		 `+where+`
		 ORDER BY js.weight DESC`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]JobSkillRequirement, 0)
	for rows.Next() {
		var it JobSkillRequirement
		if err := rows.Scan(&it.JobID, &it.SkillID, &it.SkillName, &it.SkillCategory,
			&it.ImportanceLevel, &it.ProficiencyThreshold, &it.Weight, &it.ImportanceValue); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobSkillRepository) UpsertForJob(ctx context.Context, jobID uuid.UUID, skills []JobSkillUpsert) error {
	if len(skills) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range skills {
		_, err := tx.Exec(ctx,
			`INSERT INTO job_skills (job_id, skill_id, importance_level, proficiency_threshold, weight)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (job_id, skill_id) DO UPDATE SET
			   importance_level = EXCLUDED.importance_level,
			   proficiency_threshold = EXCLUDED.proficiency_threshold,
			   weight = EXCLUDED.weight`,
			jobID, s.SkillID, s.ImportanceLevel, s.ProficiencyThreshold, s.Weight,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
