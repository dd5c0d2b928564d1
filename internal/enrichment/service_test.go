package enrichment

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"skillsync/internal/client/bls"
	"skillsync/internal/client/careeronestop"
	"skillsync/internal/config"
	"skillsync/internal/repository"

	"golang.org/x/time/rate"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

type fakeWageClient struct {
	data  *bls.WageData
	err   error
	calls int
}

func (f *fakeWageClient) RegionalWageData(_ context.Context, _ string) (*bls.WageData, error) {
	f.calls++
	return f.data, f.err
}

type fakeOccClient struct {
	data  *careeronestop.OccupationData
	err   error
	calls int
}

func (f *fakeOccClient) ComprehensiveOccupationData(_ context.Context, _ string) (*careeronestop.OccupationData, error) {
	f.calls++
	return f.data, f.err
}

type fakeWageCache struct {
	expiry    time.Time
	hasExpiry bool
	latest    repository.WageDataRow
	hasLatest bool
	upserted  []repository.WageDataRow
	upsertErr error
	deleted   int64
}

func (f *fakeWageCache) Upsert(_ context.Context, row repository.WageDataRow) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, row)
	f.latest = row
	f.hasLatest = true
	return nil
}

func (f *fakeWageCache) LatestExpiry(_ context.Context, _ string, _ []string) (time.Time, bool, error) {
	return f.expiry, f.hasExpiry, nil
}

func (f *fakeWageCache) Latest(_ context.Context, _ string) (repository.WageDataRow, bool, error) {
	return f.latest, f.hasLatest, nil
}

func (f *fakeWageCache) DeleteExpired(_ context.Context) (int64, error) { return f.deleted, nil }

type fakeOccCache struct {
	expiry    time.Time
	hasExpiry bool
	row       repository.OccupationCacheRow
	hasRow    bool
	upserted  []repository.OccupationCacheRow
	deleted   int64
}

func (f *fakeOccCache) Upsert(_ context.Context, row repository.OccupationCacheRow) error {
	f.upserted = append(f.upserted, row)
	f.row = row
	f.hasRow = true
	return nil
}

func (f *fakeOccCache) LatestExpiry(_ context.Context, _ string) (time.Time, bool, error) {
	return f.expiry, f.hasExpiry, nil
}

func (f *fakeOccCache) Get(_ context.Context, _ string) (repository.OccupationCacheRow, bool, error) {
	return f.row, f.hasRow, nil
}

func (f *fakeOccCache) DeleteExpired(_ context.Context) (int64, error) { return f.deleted, nil }

type fakeStatusRepo struct {
	transitions []string
	lastError   string
}

func (f *fakeStatusRepo) SetStatus(_ context.Context, _ string, status, errorMessage string) error {
	f.transitions = append(f.transitions, status)
	f.lastError = errorMessage
	return nil
}

func (f *fakeStatusRepo) Get(_ context.Context, socCode string) (repository.EnrichmentStatus, bool, error) {
	if len(f.transitions) == 0 {
		return repository.EnrichmentStatus{}, false, nil
	}
	return repository.EnrichmentStatus{
		SOCCode:      socCode,
		Status:       f.transitions[len(f.transitions)-1],
		ErrorMessage: f.lastError,
	}, true, nil
}

type fakeJobRepo struct {
	updates   map[string]repository.OccupationSummaryUpdate
	updateErr error
}

func (f *fakeJobRepo) ListBySOCCodes(_ context.Context, _ []string) ([]repository.OccupationJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateOccupationSummary(_ context.Context, socCode string, upd repository.OccupationSummaryUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updates == nil {
		f.updates = make(map[string]repository.OccupationSummaryUpdate)
	}
	f.updates[socCode] = upd
	return nil
}

type fixture struct {
	svc       *Service
	wages     *fakeWageClient
	occs      *fakeOccClient
	wageCache *fakeWageCache
	occCache  *fakeOccCache
	status    *fakeStatusRepo
	jobs      *fakeJobRepo
}

func newFixture() *fixture {
	f := &fixture{
		wages: &fakeWageClient{data: &bls.WageData{
			SOCCode: "29-1141", AreaCode: "45300", AreaName: "Tampa-St. Petersburg-Clearwater, FL",
			MedianWage: f64(79910), DataYear: 2024,
		}},
		occs: &fakeOccClient{data: &careeronestop.OccupationData{
			SOCCode: "29-1141",
			Detail: careeronestop.OccupationDetail{
				ONetCode: "29-1141.00", Title: "Registered Nurses",
				Description: "Assess patient health problems.",
				Tasks:       []string{"Record vital signs"},
			},
			LMI: &careeronestop.LaborMarketInfo{
				CareerOutlook: "Bright", AveragePayNational: f64(94480), TypicalTraining: "Bachelor's degree",
			},
		}},
		wageCache: &fakeWageCache{},
		occCache:  &fakeOccCache{},
		status:    &fakeStatusRepo{},
		jobs:      &fakeJobRepo{},
	}

	cfg := config.Config{
		BLS: config.BLSConfig{MSACode: "45300", StateCode: "12"},
		Enrich: config.EnrichConfig{
			WageCacheTTL:  90 * 24 * time.Hour,
			OccupationTTL: 60 * 24 * time.Hour,
			BatchDelay:    time.Second,
		},
	}
	f.svc = NewService(cfg, f.wages, f.occs, f.wageCache, f.occCache, f.status, f.jobs, nil, log.New(io.Discard, "", 0))
	f.svc.now = func() time.Time { return testNow }
	f.svc.limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

func TestEnrichOccupationBothSourcesSucceed(t *testing.T) {
	f := newFixture()

	result, err := f.svc.EnrichOccupation(context.Background(), "291141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if !result.Success {
		t.Fatalf("success = false, errors = %v", result.Errors)
	}
	if !result.DataUpdated.BLSWage || !result.DataUpdated.COSOccupation {
		t.Fatalf("updated = %+v", result.DataUpdated)
	}

	if len(f.wageCache.upserted) != 1 {
		t.Fatalf("wage upserts = %d", len(f.wageCache.upserted))
	}
	wantExpiry := testNow.Add(90 * 24 * time.Hour)
	if !f.wageCache.upserted[0].ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("wage expiry = %v, want %v", f.wageCache.upserted[0].ExpiresAt, wantExpiry)
	}
	if len(f.occCache.upserted) != 1 {
		t.Fatalf("occupation upserts = %d", len(f.occCache.upserted))
	}
	if !f.occCache.upserted[0].ExpiresAt.Equal(testNow.Add(60 * 24 * time.Hour)) {
		t.Fatalf("occupation expiry = %v", f.occCache.upserted[0].ExpiresAt)
	}

	want := []string{repository.EnrichmentInProgress, repository.EnrichmentCompleted}
	if len(f.status.transitions) != 2 || f.status.transitions[0] != want[0] || f.status.transitions[1] != want[1] {
		t.Fatalf("transitions = %v", f.status.transitions)
	}

	upd, ok := f.jobs.updates["29-1141"]
	if !ok {
		t.Fatal("jobs summary not updated")
	}
	if upd.MedianWageUSD == nil || *upd.MedianWageUSD != 79910 {
		t.Fatalf("median wage = %v", upd.MedianWageUSD)
	}
	if upd.EmploymentOutlook != "Bright (National)" {
		t.Fatalf("outlook = %q", upd.EmploymentOutlook)
	}
}

func TestEnrichOccupationPartialFailureStillCompletes(t *testing.T) {
	f := newFixture()
	f.wages.err = errors.New("bls timeout")

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if !result.Success {
		t.Fatal("one succeeding source should still complete")
	}
	if result.DataUpdated.BLSWage {
		t.Fatal("wage should not be marked updated")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if f.status.transitions[len(f.status.transitions)-1] != repository.EnrichmentCompleted {
		t.Fatalf("final status = %v", f.status.transitions)
	}
}

func TestEnrichOccupationAllSourcesFail(t *testing.T) {
	f := newFixture()
	f.wages.err = errors.New("bls down")
	f.occs.err = errors.New("cos down")

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if result.Success {
		t.Fatal("success = true with all sources failing")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if f.status.transitions[len(f.status.transitions)-1] != repository.EnrichmentFailed {
		t.Fatalf("final status = %v", f.status.transitions)
	}
	if f.status.lastError == "" {
		t.Fatal("failed status should record the error message")
	}
}

func TestEnrichOccupationFreshCacheSkipsFetch(t *testing.T) {
	f := newFixture()
	f.wageCache.expiry = testNow.Add(time.Hour)
	f.wageCache.hasExpiry = true
	f.occCache.expiry = testNow.Add(time.Hour)
	f.occCache.hasExpiry = true

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if !result.Success {
		t.Fatalf("errors = %v", result.Errors)
	}
	if f.wages.calls != 0 || f.occs.calls != 0 {
		t.Fatalf("fresh cache should skip fetches, calls = %d/%d", f.wages.calls, f.occs.calls)
	}
	if result.CacheStatus.BLSWageExpired || result.CacheStatus.COSOccupationExpired {
		t.Fatalf("cache status = %+v", result.CacheStatus)
	}
}

func TestEnrichOccupationExpiryAtNowCountsAsExpired(t *testing.T) {
	f := newFixture()
	f.wageCache.expiry = testNow
	f.wageCache.hasExpiry = true

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if !result.CacheStatus.BLSWageExpired {
		t.Fatal("expires_at equal to now must count as expired")
	}
	if f.wages.calls != 1 {
		t.Fatalf("wage fetches = %d, want 1", f.wages.calls)
	}
}

func TestEnrichOccupationForceRefreshIgnoresFreshCache(t *testing.T) {
	f := newFixture()
	f.wageCache.expiry = testNow.Add(time.Hour)
	f.wageCache.hasExpiry = true
	f.occCache.expiry = testNow.Add(time.Hour)
	f.occCache.hasExpiry = true

	if _, err := f.svc.EnrichOccupation(context.Background(), "29-1141", true); err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}
	if f.wages.calls != 1 || f.occs.calls != 1 {
		t.Fatalf("force refresh should fetch, calls = %d/%d", f.wages.calls, f.occs.calls)
	}
}

func TestEnrichOccupationJobWriteFailureMarksFailed(t *testing.T) {
	f := newFixture()
	f.jobs.updateErr = errors.New("write refused")

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	if result.Success {
		t.Fatal("persistence failure should fail the enrichment")
	}
	if f.status.transitions[len(f.status.transitions)-1] != repository.EnrichmentFailed {
		t.Fatalf("final status = %v", f.status.transitions)
	}
}

func TestEnrichOccupationInvalidSOC(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.EnrichOccupation(context.Background(), "nope", false); err == nil {
		t.Fatal("expected error for malformed SOC code")
	}
	if f.wages.calls != 0 || f.occs.calls != 0 {
		t.Fatal("no network calls for invalid input")
	}
	if len(f.status.transitions) != 0 {
		t.Fatalf("status should be untouched, got %v", f.status.transitions)
	}
}

func TestEnrichBatchKeepsGoing(t *testing.T) {
	f := newFixture()

	results := f.svc.EnrichBatch(context.Background(), []string{"29-1141", "bogus", "15-1252"}, false)

	if len(results) != 3 {
		t.Fatalf("results = %d, want one per input", len(results))
	}
	if !results[0].Success || !results[2].Success {
		t.Fatalf("valid codes should succeed: %+v", results)
	}
	if results[1].Success || len(results[1].Errors) == 0 {
		t.Fatalf("invalid code should fail in place: %+v", results[1])
	}
}

func TestEnrichOccupationCOSPayFallbackWhenNoWage(t *testing.T) {
	f := newFixture()
	f.wages.data = nil // BLS has nothing for this occupation

	result, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false)
	if err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}
	if !result.Success {
		t.Fatalf("errors = %v", result.Errors)
	}

	upd := f.jobs.updates["29-1141"]
	if upd.MedianWageUSD == nil || *upd.MedianWageUSD != 94480 {
		t.Fatalf("national pay fallback = %v", upd.MedianWageUSD)
	}
}

func TestGetEnrichedMergesCaches(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.EnrichOccupation(context.Background(), "29-1141", false); err != nil {
		t.Fatalf("EnrichOccupation: %v", err)
	}

	data, err := f.svc.GetEnriched(context.Background(), "291141")
	if err != nil {
		t.Fatalf("GetEnriched: %v", err)
	}
	if data == nil {
		t.Fatal("expected enriched data")
	}
	if data.Title != "Registered Nurses" {
		t.Fatalf("title = %q", data.Title)
	}
	if data.MedianWage == nil || *data.MedianWage != 79910 {
		t.Fatalf("median = %v", data.MedianWage)
	}
}

func TestGetEnrichedNothingCached(t *testing.T) {
	f := newFixture()
	data, err := f.svc.GetEnriched(context.Background(), "29-1141")
	if err != nil {
		t.Fatalf("GetEnriched: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil, got %+v", data)
	}
}

func TestCleanExpired(t *testing.T) {
	f := newFixture()
	f.wageCache.deleted = 3
	f.occCache.deleted = 2

	n, err := f.svc.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired: %v", err)
	}
	if n != 5 {
		t.Fatalf("cleaned = %d, want 5", n)
	}
}
