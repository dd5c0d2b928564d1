package repository

import (
	"context"

	"skillsync/internal/database"
)

// CrosswalkRepository maps CIP education-program codes to the SOC occupation
// codes they feed into.
type CrosswalkRepository interface {
	SOCsForCIP(ctx context.Context, cipCode string) ([]string, error)
}

type PostgresCrosswalkRepository struct {
	db database.DB
}

func NewPostgresCrosswalkRepository(db database.DB) *PostgresCrosswalkRepository {
	return &PostgresCrosswalkRepository{db: db}
}

func (r *PostgresCrosswalkRepository) SOCsForCIP(ctx context.Context, cipCode string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT soc_code FROM cip_soc_crosswalk WHERE cip_code = $1 ORDER BY soc_code`,
		cipCode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
