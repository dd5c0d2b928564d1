package seeder

import (
	"context"
	"fmt"

	"skillsync/internal/database"
)

// SkillsSeeder loads the baseline assessable skills for the healthcare and
// technology pilot occupations.
type SkillsSeeder struct{}

func (SkillsSeeder) Name() string { return "skills" }

func (SkillsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "skills", "id", "name", "category", "source", "is_assessable", "is_active"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	items := []struct {
		Name     string
		Category string
	}{
		{Name: "Patient Care", Category: "Clinical"},
		{Name: "Medical Documentation", Category: "Clinical"},
		{Name: "Infection Control", Category: "Clinical"},
		{Name: "Medication Administration", Category: "Clinical"},
		{Name: "Vital Signs Monitoring", Category: "Clinical"},
		{Name: "Electronic Health Records", Category: "Health IT"},
		{Name: "HIPAA Compliance", Category: "Health IT"},
		{Name: "SQL", Category: "Data"},
		{Name: "Data Analysis", Category: "Data"},
		{Name: "Python", Category: "Programming Language"},
		{Name: "Network Administration", Category: "IT Infrastructure"},
		{Name: "Customer Service", Category: "Professional"},
		{Name: "Team Communication", Category: "Professional"},
	}

	for _, it := range items {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO skills (id, name, category, source, is_assessable, is_active)
			 VALUES (gen_random_uuid(), $1, $2, 'seed', true, true)
			 ON CONFLICT DO NOTHING`,
			it.Name,
			it.Category,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
