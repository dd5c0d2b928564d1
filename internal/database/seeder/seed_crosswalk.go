package seeder

import (
	"context"
	"fmt"

	"skillsync/internal/database"
)

// CrosswalkSeeder loads the CIP to SOC mappings used by the pilot program
// catalog. Codes follow the NCES CIP 2020 and BLS SOC 2018 taxonomies.
type CrosswalkSeeder struct{}

func (CrosswalkSeeder) Name() string { return "cip_soc_crosswalk" }

func (CrosswalkSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "cip_soc_crosswalk", "cip_code", "soc_code"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	pairs := []struct {
		CIP string
		SOC string
	}{
		{CIP: "51.3901", SOC: "29-2061"}, // Practical Nursing -> LPN/LVN
		{CIP: "51.3801", SOC: "29-1141"}, // Registered Nursing -> RN
		{CIP: "51.0801", SOC: "31-9092"}, // Medical Assisting -> Medical Assistants
		{CIP: "51.0707", SOC: "29-2072"}, // Health Information -> Medical Records Specialists
		{CIP: "11.0201", SOC: "15-1252"}, // Computer Programming -> Software Developers
		{CIP: "11.0301", SOC: "15-1232"}, // Data Processing -> User Support Specialists
		{CIP: "11.1001", SOC: "15-1244"}, // Network Admin -> Network and Systems Administrators
		{CIP: "52.1201", SOC: "15-2051"}, // Management Info Systems -> Data Scientists
	}

	for _, p := range pairs {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO cip_soc_crosswalk (cip_code, soc_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.CIP,
			p.SOC,
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
