// Package enrichment orchestrates the external wage and occupation data
// fetches, their Postgres caches and the per-SOC status machine.
package enrichment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"skillsync/internal/client/bls"
	"skillsync/internal/client/careeronestop"
	"skillsync/internal/config"
	"skillsync/internal/infrastructure/cache"
	"skillsync/internal/repository"
	"skillsync/internal/soc"

	"golang.org/x/time/rate"
)

// enrichLockTTL bounds how long a crashed enrichment can hold its lock.
// enrichedCacheTTL is the Redis read-through TTL; the durable TTLs live in
// the Postgres rows.
const (
	enrichLockTTL    = 2 * time.Minute
	enrichedCacheTTL = 10 * time.Minute
)

type WageClient interface {
	RegionalWageData(ctx context.Context, socCode string) (*bls.WageData, error)
}

type OccupationClient interface {
	ComprehensiveOccupationData(ctx context.Context, socCode string) (*careeronestop.OccupationData, error)
}

type DataUpdated struct {
	BLSWage       bool
	COSOccupation bool
}

type CacheStatus struct {
	BLSWageExpired       bool
	COSOccupationExpired bool
}

// Result is the per-SOC outcome. Success means no source failed or at least
// one produced fresh data; Errors carries every per-source failure either way.
type Result struct {
	SOCCode     string
	Success     bool
	DataUpdated DataUpdated
	Errors      []string
	CacheStatus CacheStatus
}

// EnrichedOccupation is the merged cache view served to callers.
type EnrichedOccupation struct {
	SOCCode         string    `json:"soc_code"`
	MedianWage      *float64  `json:"median_wage"`
	MeanWage        *float64  `json:"mean_wage"`
	EmploymentLevel *int      `json:"employment_level"`
	WageAreaName    string    `json:"wage_area_name"`
	DataYear        int       `json:"data_year"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	BrightOutlook   string    `json:"bright_outlook"`
	CareerOutlook   string    `json:"career_outlook"`
	TypicalTraining string    `json:"typical_training"`
	AveragePayState *float64  `json:"average_pay_state"`
	VideoURL        string    `json:"video_url"`
	Tasks           []string  `json:"tasks"`
	Tools           []string  `json:"tools"`
	RetrievedAt     time.Time `json:"retrieved_at"`
}

type Service struct {
	cfg       config.EnrichConfig
	wageAreas []string

	wages       WageClient
	occupations OccupationClient

	wageCache repository.WageCacheRepository
	occCache  repository.OccupationCacheRepository
	status    repository.EnrichmentStatusRepository
	jobs      repository.JobRepository

	redis   *cache.Redis
	limiter *rate.Limiter
	log     *log.Logger
	now     func() time.Time
}

func NewService(
	cfg config.Config,
	wages WageClient,
	occupations OccupationClient,
	wageCache repository.WageCacheRepository,
	occCache repository.OccupationCacheRepository,
	status repository.EnrichmentStatusRepository,
	jobs repository.JobRepository,
	redis *cache.Redis,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:         cfg.Enrich,
		wageAreas:   []string{cfg.BLS.MSACode, "0000"},
		wages:       wages,
		occupations: occupations,
		wageCache:   wageCache,
		occCache:    occCache,
		status:      status,
		jobs:        jobs,
		redis:       redis,
		limiter:     rate.NewLimiter(rate.Every(cfg.Enrich.BatchDelay), 1),
		log:         logger,
		now:         time.Now,
	}
}

// EnrichOccupation refreshes whichever caches are stale for one SOC code,
// then rolls the fresh values into the denormalized jobs row. An error is
// returned only for malformed SOC codes; everything downstream lands in the
// Result instead.
func (s *Service) EnrichOccupation(ctx context.Context, socCode string, forceRefresh bool) (Result, error) {
	canonical, err := soc.Canonical(socCode)
	if err != nil {
		return Result{}, fmt.Errorf("enrichment: %w", err)
	}

	result := Result{SOCCode: canonical}

	acquired, _ := s.redis.SetIfNotExists(ctx, cache.EnrichLockKey(canonical), enrichLockTTL)
	if !acquired {
		result.Errors = append(result.Errors, "enrichment already in progress")
		return result, nil
	}
	defer func() { _ = s.redis.Delete(ctx, cache.EnrichLockKey(canonical)) }()

	if err := s.status.SetStatus(ctx, canonical, repository.EnrichmentInProgress, ""); err != nil {
		s.log.Printf("enrich=status soc=%s err=%v", canonical, err)
	}

	result.CacheStatus = s.checkCacheStatus(ctx, canonical)

	if forceRefresh || result.CacheStatus.BLSWageExpired {
		if err := s.refreshWageData(ctx, canonical); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("BLS wage data: %v", err))
		} else {
			result.DataUpdated.BLSWage = true
		}
	}

	if forceRefresh || result.CacheStatus.COSOccupationExpired {
		if err := s.refreshOccupationData(ctx, canonical); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("CareerOneStop data: %v", err))
		} else {
			result.DataUpdated.COSOccupation = true
		}
	}

	result.Success = len(result.Errors) == 0 || result.DataUpdated.BLSWage || result.DataUpdated.COSOccupation

	if result.Success {
		if err := s.updateJobSummary(ctx, canonical); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("jobs summary: %v", err))
		}
	}

	if result.Success {
		if err := s.status.SetStatus(ctx, canonical, repository.EnrichmentCompleted, ""); err != nil {
			s.log.Printf("enrich=status soc=%s err=%v", canonical, err)
		}
		_ = s.redis.Delete(ctx, cache.OccupationKey(canonical))
	} else {
		if err := s.status.SetStatus(ctx, canonical, repository.EnrichmentFailed, strings.Join(result.Errors, "; ")); err != nil {
			s.log.Printf("enrich=status soc=%s err=%v", canonical, err)
		}
	}

	s.log.Printf("enrich=occupation soc=%s success=%v bls=%v cos=%v errors=%d",
		canonical, result.Success, result.DataUpdated.BLSWage, result.DataUpdated.COSOccupation, len(result.Errors))
	return result, nil
}

// EnrichBatch processes codes sequentially with the configured delay between
// iterations. Every code yields a Result; malformed codes become failed
// entries rather than aborting the batch.
func (s *Service) EnrichBatch(ctx context.Context, socCodes []string, forceRefresh bool) []Result {
	results := make([]Result, 0, len(socCodes))
	for i, code := range socCodes {
		if i > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				results = append(results, Result{SOCCode: code, Errors: []string{err.Error()}})
				continue
			}
		}

		result, err := s.EnrichOccupation(ctx, code, forceRefresh)
		if err != nil {
			results = append(results, Result{SOCCode: code, Errors: []string{err.Error()}})
			continue
		}
		results = append(results, result)
	}
	return results
}

// GetEnriched serves the merged cache view, read through Redis. A SOC with
// no cached data at all yields nil.
func (s *Service) GetEnriched(ctx context.Context, socCode string) (*EnrichedOccupation, error) {
	canonical, err := soc.Canonical(socCode)
	if err != nil {
		return nil, fmt.Errorf("enrichment: %w", err)
	}

	var cached EnrichedOccupation
	if hit, _ := s.redis.GetJSON(ctx, cache.OccupationKey(canonical), &cached); hit {
		return &cached, nil
	}

	wage, haveWage, err := s.wageCache.Latest(ctx, canonical)
	if err != nil {
		return nil, err
	}
	occ, haveOcc, err := s.occCache.Get(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if !haveWage && !haveOcc {
		return nil, nil
	}

	out := &EnrichedOccupation{SOCCode: canonical, RetrievedAt: s.now().UTC()}
	if haveWage {
		out.MedianWage = wage.MedianWage
		out.MeanWage = wage.MeanWage
		out.EmploymentLevel = wage.EmploymentLevel
		out.WageAreaName = wage.AreaName
		out.DataYear = wage.DataYear
	}
	if haveOcc {
		out.Title = occ.Title
		out.Description = occ.Description
		out.BrightOutlook = occ.BrightOutlook
		out.CareerOutlook = occ.CareerOutlook
		out.TypicalTraining = occ.TypicalTraining
		out.AveragePayState = occ.AveragePayState
		out.VideoURL = occ.VideoURL
		out.Tasks = occ.Tasks
		out.Tools = occ.Tools
	}

	if err := s.redis.SetJSON(ctx, cache.OccupationKey(canonical), out, enrichedCacheTTL); err != nil {
		s.log.Printf("enrich=cache soc=%s err=%v", canonical, err)
	}
	return out, nil
}

// Status reports the current enrichment status row for a SOC code.
func (s *Service) Status(ctx context.Context, socCode string) (repository.EnrichmentStatus, bool, error) {
	canonical, err := soc.Canonical(socCode)
	if err != nil {
		return repository.EnrichmentStatus{}, false, err
	}
	return s.status.Get(ctx, canonical)
}

// CleanExpired deletes expired cache rows from both stores and reports the
// total removed.
func (s *Service) CleanExpired(ctx context.Context) (int64, error) {
	wageN, err := s.wageCache.DeleteExpired(ctx)
	if err != nil {
		return wageN, err
	}
	occN, err := s.occCache.DeleteExpired(ctx)
	if err != nil {
		return wageN + occN, err
	}
	s.log.Printf("enrich=clean wage_rows=%d occupation_rows=%d", wageN, occN)
	return wageN + occN, nil
}

// checkCacheStatus treats a row expiring exactly now as expired: validity
// requires expires_at strictly after the current time.
func (s *Service) checkCacheStatus(ctx context.Context, canonical string) CacheStatus {
	now := s.now()
	status := CacheStatus{BLSWageExpired: true, COSOccupationExpired: true}

	if expiry, ok, err := s.wageCache.LatestExpiry(ctx, canonical, s.wageAreas); err != nil {
		s.log.Printf("enrich=cache_check soc=%s source=bls err=%v", canonical, err)
	} else if ok && expiry.After(now) {
		status.BLSWageExpired = false
	}

	if expiry, ok, err := s.occCache.LatestExpiry(ctx, canonical); err != nil {
		s.log.Printf("enrich=cache_check soc=%s source=cos err=%v", canonical, err)
	} else if ok && expiry.After(now) {
		status.COSOccupationExpired = false
	}

	return status
}

func (s *Service) refreshWageData(ctx context.Context, canonical string) error {
	data, err := s.wages.RegionalWageData(ctx, canonical)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no wage data available")
	}

	return s.wageCache.Upsert(ctx, repository.WageDataRow{
		SOCCode:         data.SOCCode,
		AreaCode:        data.AreaCode,
		AreaName:        data.AreaName,
		MedianWage:      data.MedianWage,
		MeanWage:        data.MeanWage,
		EmploymentLevel: data.EmploymentLevel,
		DataYear:        data.DataYear,
		ExpiresAt:       s.now().Add(s.cfg.WageCacheTTL).UTC(),
	})
}

func (s *Service) refreshOccupationData(ctx context.Context, canonical string) error {
	data, err := s.occupations.ComprehensiveOccupationData(ctx, canonical)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no occupation data available")
	}

	row := repository.OccupationCacheRow{
		SOCCode:          data.SOCCode,
		ONetCode:         data.Detail.ONetCode,
		Title:            data.Detail.Title,
		Description:      data.Detail.Description,
		BrightOutlook:    data.Detail.BrightOutlook,
		BrightOutlookCat: data.Detail.BrightOutlookCategory,
		VideoURL:         data.Detail.VideoURL,
		Tasks:            data.Detail.Tasks,
		Tools:            data.Detail.ToolsAndTechnology,
		ExpiresAt:        s.now().Add(s.cfg.OccupationTTL).UTC(),
	}
	if data.LMI != nil {
		row.CareerOutlook = data.LMI.CareerOutlook
		row.AveragePayState = data.LMI.AveragePayState
		row.AveragePayNational = data.LMI.AveragePayNational
		row.TypicalTraining = data.LMI.TypicalTraining
	}
	return s.occCache.Upsert(ctx, row)
}

// updateJobSummary mirrors the cached values into the denormalized columns
// of the matching occupation jobs row. Built from the caches, never from a
// second network round trip.
func (s *Service) updateJobSummary(ctx context.Context, canonical string) error {
	wage, haveWage, err := s.wageCache.Latest(ctx, canonical)
	if err != nil {
		return err
	}
	occ, haveOcc, err := s.occCache.Get(ctx, canonical)
	if err != nil {
		return err
	}
	if !haveWage && !haveOcc {
		return nil
	}

	upd := repository.OccupationSummaryUpdate{}
	if haveWage {
		upd.MedianWageUSD = wage.MedianWage
	}
	if haveOcc {
		upd.ONetCode = occ.ONetCode
		upd.Title = occ.Title
		upd.LongDesc = occ.Description
		upd.BrightOutlook = occ.BrightOutlook
		upd.BrightOutlookCat = occ.BrightOutlookCat
		upd.VideoURL = occ.VideoURL
		upd.EducationLevel = occ.TypicalTraining
		upd.Tasks = occ.Tasks
		upd.Tools = occ.Tools
		if occ.CareerOutlook != "" {
			upd.EmploymentOutlook = occ.CareerOutlook + " (National)"
		}
		// COS national pay stands in when BLS had nothing.
		if !haveWage && occ.AveragePayNational != nil {
			upd.MedianWageUSD = occ.AveragePayNational
		}
	}

	return s.jobs.UpdateOccupationSummary(ctx, canonical, upd)
}
