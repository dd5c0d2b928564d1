package repository

import (
	"context"
	"strings"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

const SkillSourceExtractor = "LAISER"

type Skill struct {
	ID           uuid.UUID
	Name         string
	Category     string
	Description  string
	Source       string
	IsAssessable bool
	IsActive     bool
}

type SkillCreate struct {
	Name         string
	Category     string
	Description  string
	Source       string
	IsAssessable bool
}

type SkillRepository interface {
	FindCandidatesByName(ctx context.Context, name string) ([]Skill, error)
	CreateSkill(ctx context.Context, in SkillCreate) (Skill, error)
	DeactivateSkill(ctx context.Context, id uuid.UUID) error
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

// FindCandidatesByName returns active skills whose name contains the given
// name, case insensitively. Callers apply the stricter containment check.
func (r *PostgresSkillRepository) FindCandidatesByName(ctx context.Context, name string) ([]Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, name, COALESCE(category, ''), COALESCE(description, ''), COALESCE(source, ''), is_assessable, is_active
		 FROM skills
		 WHERE is_active = true
		   AND (name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || name || '%')
		 ORDER BY name ASC
		 LIMIT 5`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Skill, 0)
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.Source, &s.IsAssessable, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSkillRepository) CreateSkill(ctx context.Context, in SkillCreate) (Skill, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO skills (id, name, category, description, source, is_assessable, is_active)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, true)`,
		id, strings.TrimSpace(in.Name), in.Category, in.Description, in.Source, in.IsAssessable,
	)
	if err != nil {
		return Skill{}, err
	}
	return Skill{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Category:     in.Category,
		Description:  in.Description,
		Source:       in.Source,
		IsAssessable: in.IsAssessable,
		IsActive:     true,
	}, nil
}

// DeactivateSkill soft-deletes: taxonomy rows are referenced by job and
// program associations and are never removed.
func (r *PostgresSkillRepository) DeactivateSkill(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE skills SET is_active = false WHERE id = $1`, id)
	return err
}
