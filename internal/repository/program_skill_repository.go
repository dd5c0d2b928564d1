package repository

import (
	"context"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

type ProgramSkillRow struct {
	ProgramID uuid.UUID
	SkillID   uuid.UUID
	SkillName string
	Weight    float64
	Coverage  string
}

type ProgramSkillUpsert struct {
	SkillID  uuid.UUID
	Coverage string
	Weight   float64
}

type ProgramSkillRepository interface {
	ListBySkillIDs(ctx context.Context, skillIDs []uuid.UUID) ([]ProgramSkillRow, error)
	ListByProgramID(ctx context.Context, programID uuid.UUID) ([]ProgramSkillRow, error)
	UpsertForProgram(ctx context.Context, programID uuid.UUID, skills []ProgramSkillUpsert) error
}

type PostgresProgramSkillRepository struct {
	db database.DB
}

func NewPostgresProgramSkillRepository(db database.DB) *PostgresProgramSkillRepository {
	return &PostgresProgramSkillRepository{db: db}
}

func (r *PostgresProgramSkillRepository) ListBySkillIDs(ctx context.Context, skillIDs []uuid.UUID) ([]ProgramSkillRow, error) {
	if len(skillIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `WHERE ps.skill_id = ANY($1)`, skillIDs)
}

func (r *PostgresProgramSkillRepository) ListByProgramID(ctx context.Context, programID uuid.UUID) ([]ProgramSkillRow, error) {
	return r.list(ctx, `WHERE ps.program_id = $1`, programID)
}

func (r *PostgresProgramSkillRepository) list(ctx context.Context, where string, arg any) ([]ProgramSkillRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ps.program_id, ps.skill_id, s.name, COALESCE(ps.weight, 0), COALESCE(ps.coverage_level, 'supplemental')
		 FROM program_skills ps
		 JOIN skills s ON s.id = ps.skill_id
		 `+where,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ProgramSkillRow, 0)
	for rows.Next() {
		var it ProgramSkillRow
		if err := rows.Scan(&it.ProgramID, &it.SkillID, &it.SkillName, &it.Weight, &it.Coverage); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertForProgram writes one row per (program, skill) pair. Re-extraction
// updates weights in place rather than accumulating duplicates.
func (r *PostgresProgramSkillRepository) UpsertForProgram(ctx context.Context, programID uuid.UUID, skills []ProgramSkillUpsert) error {
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
			`INSERT INTO program_skills (program_id, skill_id, coverage_level, weight)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (program_id, skill_id) DO UPDATE SET
			   coverage_level = EXCLUDED.coverage_level,
			   weight = EXCLUDED.weight`,
			programID, s.SkillID, s.Coverage, s.Weight,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
