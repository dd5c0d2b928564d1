package repository

import (
	"context"
	"time"

	"skillsync/internal/database"
)

type WageDataRow struct {
	SOCCode         string
	AreaCode        string
	AreaName        string
	MedianWage      *float64
	MeanWage        *float64
	EmploymentLevel *int
	DataYear        int
	ExpiresAt       time.Time
}

type WageCacheRepository interface {
	Upsert(ctx context.Context, row WageDataRow) error
	LatestExpiry(ctx context.Context, socCode string, areaCodes []string) (time.Time, bool, error)
	Latest(ctx context.Context, socCode string) (WageDataRow, bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type PostgresWageCacheRepository struct {
	db database.DB
}

func NewPostgresWageCacheRepository(db database.DB) *PostgresWageCacheRepository {
	return &PostgresWageCacheRepository{db: db}
}

func (r *PostgresWageCacheRepository) Upsert(ctx context.Context, row WageDataRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO bls_wage_data
		   (soc_code, area_code, area_name, median_wage, mean_wage, employment_level, data_year, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8)
		 ON CONFLICT (soc_code, area_code, data_year) DO UPDATE SET
		   area_name = EXCLUDED.area_name,
		   median_wage = EXCLUDED.median_wage,
		   mean_wage = EXCLUDED.mean_wage,
		   employment_level = EXCLUDED.employment_level,
		   updated_at = EXCLUDED.updated_at,
		   expires_at = EXCLUDED.expires_at`,
		row.SOCCode, row.AreaCode, row.AreaName, row.MedianWage, row.MeanWage,
		row.EmploymentLevel, row.DataYear, row.ExpiresAt,
	)
	return err
}

// LatestExpiry returns the expiry of the newest cache row for the code within
// the given areas. ok=false means no row exists at all.
func (r *PostgresWageCacheRepository) LatestExpiry(ctx context.Context, socCode string, areaCodes []string) (time.Time, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT expires_at
		 FROM bls_wage_data
		 WHERE soc_code = $1 AND area_code = ANY($2)
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		socCode, areaCodes,
	)

	var expiresAt time.Time
	if err := row.Scan(&expiresAt); err != nil {
		if isNoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return expiresAt, true, nil
}

func (r *PostgresWageCacheRepository) Latest(ctx context.Context, socCode string) (WageDataRow, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT soc_code, area_code, COALESCE(area_name, ''), median_wage, mean_wage, employment_level, data_year, expires_at
		 FROM bls_wage_data
		 WHERE soc_code = $1 AND expires_at > now()
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		socCode,
	)

	var out WageDataRow
	if err := row.Scan(&out.SOCCode, &out.AreaCode, &out.AreaName, &out.MedianWage,
		&out.MeanWage, &out.EmploymentLevel, &out.DataYear, &out.ExpiresAt); err != nil {
		if isNoRows(err) {
			return WageDataRow{}, false, nil
		}
		return WageDataRow{}, false, err
	}
	return out, true, nil
}

// DeleteExpired is periodic cleanup; expiry itself never blocks reads since
// validity is checked against expires_at.
func (r *PostgresWageCacheRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM bls_wage_data WHERE expires_at <= now()`)
}
