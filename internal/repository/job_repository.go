package repository

import (
	"context"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

type OccupationJob struct {
	ID        uuid.UUID
	SOCCode   string
	Title     string
	ShortDesc string
}

// OccupationSummaryUpdate carries the denormalized fields written back onto
// occupation rows after an enrichment pass. Nil/empty fields are left alone.
type OccupationSummaryUpdate struct {
	MedianWageUSD     *float64
	ONetCode          string
	Title             string
	LongDesc          string
	BrightOutlook     string
	BrightOutlookCat  string
	VideoURL          string
	EmploymentOutlook string
	EducationLevel    string
	Tasks             []string
	Tools             []string
}

type JobRepository interface {
	ListBySOCCodes(ctx context.Context, socCodes []string) ([]OccupationJob, error)
	UpdateOccupationSummary(ctx context.Context, socCode string, upd OccupationSummaryUpdate) error
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) ListBySOCCodes(ctx context.Context, socCodes []string) ([]OccupationJob, error) {
	if len(socCodes) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, soc_code, title, COALESCE(short_desc, '')
		 FROM jobs
		 WHERE soc_code = ANY($1)`,
		socCodes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]OccupationJob, 0)
	for rows.Next() {
		var it OccupationJob
		if err := rows.Scan(&it.ID, &it.SOCCode, &it.Title, &it.ShortDesc); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobRepository) UpdateOccupationSummary(ctx context.Context, socCode string, upd OccupationSummaryUpdate) error {
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET
		   median_wage_usd = COALESCE($2, median_wage_usd),
		   onet_code = COALESCE(NULLIF($3, ''), onet_code),
		   title = COALESCE(NULLIF($4, ''), title),
		   long_desc = COALESCE(NULLIF($5, ''), long_desc),
		   bright_outlook = COALESCE(NULLIF($6, ''), bright_outlook),
		   bright_outlook_category = COALESCE(NULLIF($7, ''), bright_outlook_category),
		   video_url = COALESCE(NULLIF($8, ''), video_url),
		   employment_outlook = COALESCE(NULLIF($9, ''), employment_outlook),
		   education_level = COALESCE(NULLIF($10, ''), education_level),
		   tasks = CASE WHEN cardinality($11::text[]) > 0 THEN $11 ELSE tasks END,
		   tools_and_technology = CASE WHEN cardinality($12::text[]) > 0 THEN $12 ELSE tools_and_technology END,
		   updated_at = now()
		 WHERE soc_code = $1 AND job_kind = 'occupation'`,
		socCode, upd.MedianWageUSD, upd.ONetCode, upd.Title, upd.LongDesc,
		upd.BrightOutlook, upd.BrightOutlookCat, upd.VideoURL, upd.EmploymentOutlook,
		upd.EducationLevel, upd.Tasks, upd.Tools,
	)
	return err
}
