package repository

import (
	"context"
	"time"

	"skillsync/internal/database"
)

// OccupationCacheRow holds the CareerOneStop occupation snapshot cached per
// SOC code. Tasks and tools are stored as JSON arrays.
type OccupationCacheRow struct {
	SOCCode            string
	ONetCode           string
	Title              string
	Description        string
	BrightOutlook      string
	BrightOutlookCat   string
	VideoURL           string
	CareerOutlook      string
	AveragePayState    *float64
	AveragePayNational *float64
	TypicalTraining    string
	Tasks              []string
	Tools              []string
	ExpiresAt          time.Time
}

type OccupationCacheRepository interface {
	Upsert(ctx context.Context, row OccupationCacheRow) error
	LatestExpiry(ctx context.Context, socCode string) (time.Time, bool, error)
	Get(ctx context.Context, socCode string) (OccupationCacheRow, bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type PostgresOccupationCacheRepository struct {
	db database.DB
}

func NewPostgresOccupationCacheRepository(db database.DB) *PostgresOccupationCacheRepository {
	return &PostgresOccupationCacheRepository{db: db}
}

func (r *PostgresOccupationCacheRepository) Upsert(ctx context.Context, row OccupationCacheRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cos_occupation_cache
		   (soc_code, onet_code, title, description, bright_outlook, bright_outlook_category,
		    video_url, career_outlook, average_pay_state, average_pay_national, typical_training,
		    tasks, tools_and_technology, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), $14)
		 ON CONFLICT (soc_code) DO UPDATE SET
		   onet_code = EXCLUDED.onet_code,
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   bright_outlook = EXCLUDED.bright_outlook,
		   bright_outlook_category = EXCLUDED.bright_outlook_category,
		   video_url = EXCLUDED.video_url,
		   career_outlook = EXCLUDED.career_outlook,
		   average_pay_state = EXCLUDED.average_pay_state,
		   average_pay_national = EXCLUDED.average_pay_national,
		   typical_training = EXCLUDED.typical_training,
		   tasks = EXCLUDED.tasks,
		   tools_and_technology = EXCLUDED.tools_and_technology,
		   updated_at = EXCLUDED.updated_at,
		   expires_at = EXCLUDED.expires_at`,
		row.SOCCode, row.ONetCode, row.Title, row.Description, row.BrightOutlook,
		row.BrightOutlookCat, row.VideoURL, row.CareerOutlook, row.AveragePayState,
		row.AveragePayNational, row.TypicalTraining, row.Tasks, row.Tools, row.ExpiresAt,
	)
	return err
}

func (r *PostgresOccupationCacheRepository) LatestExpiry(ctx context.Context, socCode string) (time.Time, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT expires_at
		 FROM cos_occupation_cache
		 WHERE soc_code = $1`,
		socCode,
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

func (r *PostgresOccupationCacheRepository) Get(ctx context.Context, socCode string) (OccupationCacheRow, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT soc_code, COALESCE(onet_code, ''), COALESCE(title, ''), COALESCE(description, ''),
		        COALESCE(bright_outlook, ''), COALESCE(bright_outlook_category, ''), COALESCE(video_url, ''),
		        COALESCE(career_outlook, ''), average_pay_state, average_pay_national,
		        COALESCE(typical_training, ''), COALESCE(tasks, '{}'), COALESCE(tools_and_technology, '{}'), expires_at
		 FROM cos_occupation_cache
		 WHERE soc_code = $1 AND expires_at > now()`,
		socCode,
	)

	var out OccupationCacheRow
	if err := row.Scan(&out.SOCCode, &out.ONetCode, &out.Title, &out.Description,
		&out.BrightOutlook, &out.BrightOutlookCat, &out.VideoURL, &out.CareerOutlook,
		&out.AveragePayState, &out.AveragePayNational, &out.TypicalTraining,
		&out.Tasks, &out.Tools, &out.ExpiresAt); err != nil {
		if isNoRows(err) {
			return OccupationCacheRow{}, false, nil
		}
		return OccupationCacheRow{}, false, err
	}
	return out, true, nil
}

func (r *PostgresOccupationCacheRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM cos_occupation_cache WHERE expires_at <= now()`)
}
