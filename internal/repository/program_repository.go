package repository

import (
	"context"
	"errors"

	"skillsync/internal/database"

	"github.com/google/uuid"
)

var ErrProgramNotFound = errors.New("program not found")

type Program struct {
	ID              uuid.UUID
	Name            string
	CIPCode         string
	ShortDesc       string
	LongDesc        string
	ProgramGuideURL string
}

type ProgramDetail struct {
	ID              uuid.UUID
	Name            string
	CIPCode         string
	ProviderName    string
	ProviderLogoURL string
	Modality        string
	DurationWeeks   int
	CostUSD         *float64
	Location        string
}

type ProgramRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Program, error)
	GetDetails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProgramDetail, error)
}

type PostgresProgramRepository struct {
	db database.DB
}

func NewPostgresProgramRepository(db database.DB) *PostgresProgramRepository {
	return &PostgresProgramRepository{db: db}
}

func (r *PostgresProgramRepository) Get(ctx context.Context, id uuid.UUID) (Program, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(cip_code, ''), COALESCE(short_desc, ''), COALESCE(long_desc, ''), COALESCE(program_guide_url, '')
		 FROM programs
		 WHERE id = $1`,
		id,
	)

	var out Program
	if err := row.Scan(&out.ID, &out.Name, &out.CIPCode, &out.ShortDesc, &out.LongDesc, &out.ProgramGuideURL); err != nil {
		if isNoRows(err) {
			return Program{}, ErrProgramNotFound
		}
		return Program{}, err
	}
	return out, nil
}

func (r *PostgresProgramRepository) GetDetails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProgramDetail, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ProgramDetail{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.name, COALESCE(p.cip_code, ''), COALESCE(pr.name, 'Unknown'), COALESCE(pr.logo_url, ''),
		        COALESCE(p.modality, ''), COALESCE(p.duration_weeks, 0), p.cost_usd, COALESCE(p.location, '')
		 FROM programs p
		 LEFT JOIN providers pr ON pr.id = p.provider_id
		 WHERE p.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]ProgramDetail, len(ids))
	for rows.Next() {
		var it ProgramDetail
		if err := rows.Scan(&it.ID, &it.Name, &it.CIPCode, &it.ProviderName, &it.ProviderLogoURL,
			&it.Modality, &it.DurationWeeks, &it.CostUSD, &it.Location); err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
