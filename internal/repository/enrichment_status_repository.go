package repository

import (
	"context"
	"time"

	"skillsync/internal/database"
)

const (
	EnrichmentPending    = "pending"
	EnrichmentInProgress = "in_progress"
	EnrichmentCompleted  = "completed"
	EnrichmentFailed     = "failed"
)

type EnrichmentStatus struct {
	SOCCode       string
	Status        string
	LastAttemptAt *time.Time
	ErrorMessage  string
}

type EnrichmentStatusRepository interface {
	SetStatus(ctx context.Context, socCode, status, errorMessage string) error
	Get(ctx context.Context, socCode string) (EnrichmentStatus, bool, error)
}

type PostgresEnrichmentStatusRepository struct {
	db database.DB
}

func NewPostgresEnrichmentStatusRepository(db database.DB) *PostgresEnrichmentStatusRepository {
	return &PostgresEnrichmentStatusRepository{db: db}
}

// SetStatus upserts the single status row per SOC code. A completed write
// also stamps the per-source refresh times.
func (r *PostgresEnrichmentStatusRepository) SetStatus(ctx context.Context, socCode, status, errorMessage string) error {
	if status == EnrichmentCompleted {
		_, err := r.db.Exec(ctx,
			`INSERT INTO occupation_enrichment_status
			   (soc_code, enrichment_status, last_enrichment_attempt, error_message,
			    bls_wage_updated_at, cos_programs_updated_at, updated_at)
			 VALUES ($1, $2, now(), NULLIF($3, ''), now(), now(), now())
			 ON CONFLICT (soc_code) DO UPDATE SET
			   enrichment_status = EXCLUDED.enrichment_status,
			   last_enrichment_attempt = EXCLUDED.last_enrichment_attempt,
			   error_message = EXCLUDED.error_message,
			   bls_wage_updated_at = EXCLUDED.bls_wage_updated_at,
			   cos_programs_updated_at = EXCLUDED.cos_programs_updated_at,
			   updated_at = EXCLUDED.updated_at`,
			socCode, status, errorMessage,
		)
		return err
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO occupation_enrichment_status
		   (soc_code, enrichment_status, last_enrichment_attempt, error_message, updated_at)
		 VALUES ($1, $2, now(), NULLIF($3, ''), now())
		 ON CONFLICT (soc_code) DO UPDATE SET
		   enrichment_status = EXCLUDED.enrichment_status,
		   last_enrichment_attempt = EXCLUDED.last_enrichment_attempt,
		   error_message = EXCLUDED.error_message,
		   updated_at = EXCLUDED.updated_at`,
		socCode, status, errorMessage,
	)
	return err
}

func (r *PostgresEnrichmentStatusRepository) Get(ctx context.Context, socCode string) (EnrichmentStatus, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT soc_code, enrichment_status, last_enrichment_attempt, COALESCE(error_message, '')
		 FROM occupation_enrichment_status
		 WHERE soc_code = $1`,
		socCode,
	)

	var out EnrichmentStatus
	if err := row.Scan(&out.SOCCode, &out.Status, &out.LastAttemptAt, &out.ErrorMessage); err != nil {
		if isNoRows(err) {
			return EnrichmentStatus{}, false, nil
		}
		return EnrichmentStatus{}, false, err
	}
	return out, true, nil
}
