package integration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"skillsync/internal/client/bls"
	"skillsync/internal/client/careeronestop"
	"skillsync/internal/config"
	"skillsync/internal/database"
	"skillsync/internal/database/migration"
	dbpostgres "skillsync/internal/database/postgres"
	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/delivery/http/routes"
	v1 "skillsync/internal/delivery/http/routes/v1"
	"skillsync/internal/enrichment"
	"skillsync/internal/matching"
	"skillsync/internal/pkg/jwt"
	"skillsync/internal/repository"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type semanticResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recommendationSetPayload struct {
	Gaps     []json.RawMessage `json:"gaps"`
	Programs []struct {
		ProgramID     uuid.UUID `json:"program_id"`
		ProgramName   string    `json:"program_name"`
		MatchScore    int       `json:"match_score"`
		SkillsCovered []string  `json:"skills_covered"`
	} `json:"programs"`
	Summary map[string]int `json:"summary"`
}

func TestIntegration_Recommendations_HTTP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	runMigrations(t, ctx, db)

	seed := seedAssessmentData(t, ctx, db)
	defer cleanupSeed(t, ctx, db, seed)

	app := newTestFiberApp(t, seed.cfg, db)

	tok := issueToken(t, seed.cfg, seed.userID)

	req := httptest.NewRequest("GET", "/api/v1/assessments/"+seed.assessmentID.String()+"/recommendations", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("recommendations request error: %v", err)
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if sr.Status != 200 {
		t.Fatalf("expected status=200, got %d (message=%s)", sr.Status, sr.Message)
	}

	var payload recommendationSetPayload
	if err := json.Unmarshal(sr.Data, &payload); err != nil {
		t.Fatalf("payload unmarshal error: %v", err)
	}

	if len(payload.Gaps) == 0 {
		t.Fatalf("expected gaps for the seeded assessment")
	}
	if len(payload.Programs) == 0 {
		t.Fatalf("expected at least one recommended program")
	}

	found := false
	for _, p := range payload.Programs {
		if p.ProgramID == seed.programID {
			found = true
			if p.MatchScore < 60 || p.MatchScore > 100 {
				t.Fatalf("match_score out of range: %d", p.MatchScore)
			}
			if len(p.SkillsCovered) == 0 {
				t.Fatalf("expected covered skills on seeded program")
			}
		}
	}
	if !found {
		t.Fatalf("seeded program missing from recommendations")
	}

	if payload.Summary["total_gaps"] != len(payload.Gaps) {
		t.Fatalf("summary total_gaps=%d, gaps=%d", payload.Summary["total_gaps"], len(payload.Gaps))
	}
}

func TestIntegration_Recommendations_RejectsMissingToken(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	runMigrations(t, ctx, db)

	seed := seedAssessmentData(t, ctx, db)
	defer cleanupSeed(t, ctx, db, seed)

	app := newTestFiberApp(t, seed.cfg, db)

	req := httptest.NewRequest("GET", "/api/v1/assessments/"+seed.assessmentID.String()+"/recommendations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

type stubWageClient struct{}

func (stubWageClient) RegionalWageData(_ context.Context, socCode string) (*bls.WageData, error) {
	median := 55310.0
	return &bls.WageData{
		SOCCode:     socCode,
		AreaCode:    "45300",
		AreaName:    "Tampa-St. Petersburg-Clearwater, FL",
		MedianWage:  &median,
		DataYear:    2024,
		RetrievedAt: time.Now(),
	}, nil
}

type stubOccupationClient struct{}

func (stubOccupationClient) ComprehensiveOccupationData(_ context.Context, socCode string) (*careeronestop.OccupationData, error) {
	return &careeronestop.OccupationData{
		SOCCode: socCode,
		Detail: careeronestop.OccupationDetail{
			ONetCode:    "29-2061.00",
			Title:       "Licensed Practical and Licensed Vocational Nurses",
			Description: "Care for ill, injured, or convalescing patients.",
			Tasks:       []string{"Administer prescribed medications"},
		},
		LMI: &careeronestop.LaborMarketInfo{
			CareerOutlook:   "Bright",
			TypicalTraining: "Postsecondary nondegree award",
		},
	}, nil
}

func TestIntegration_Enrichment_WritesCaches(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	runMigrations(t, ctx, db)

	seed := seedAssessmentData(t, ctx, db)
	defer cleanupSeed(t, ctx, db, seed)

	cfg := seed.cfg
	svc := enrichment.NewService(
		cfg, stubWageClient{}, stubOccupationClient{},
		repository.NewPostgresWageCacheRepository(db),
		repository.NewPostgresOccupationCacheRepository(db),
		repository.NewPostgresEnrichmentStatusRepository(db),
		repository.NewPostgresJobRepository(db),
		nil, nil,
	)

	result, err := svc.EnrichOccupation(ctx, seed.socCode, true)
	if err != nil {
		t.Fatalf("enrich error: %v", err)
	}
	if !result.Success {
		t.Fatalf("enrich failed: %v", result.Errors)
	}
	if !result.DataUpdated.BLSWage || !result.DataUpdated.COSOccupation {
		t.Fatalf("expected both sources updated: %+v", result.DataUpdated)
	}

	status, found, err := repository.NewPostgresEnrichmentStatusRepository(db).Get(ctx, seed.socCode)
	if err != nil || !found {
		t.Fatalf("status lookup: found=%t err=%v", found, err)
	}
	if status.Status != repository.EnrichmentCompleted {
		t.Fatalf("status = %q", status.Status)
	}

	enriched, err := svc.GetEnriched(ctx, seed.socCode)
	if err != nil {
		t.Fatalf("get enriched: %v", err)
	}
	if enriched == nil {
		t.Fatalf("expected enriched data after refresh")
	}
	if enriched.MedianWage == nil || *enriched.MedianWage != 55310.0 {
		t.Fatalf("median wage = %v", enriched.MedianWage)
	}
	if enriched.CareerOutlook != "Bright" {
		t.Fatalf("career outlook = %q", enriched.CareerOutlook)
	}

	// A second pass without force must see both caches as fresh and skip the
	// refetch entirely. This runs the validity queries against the real schema,
	// which the unit fakes cannot.
	second, err := svc.EnrichOccupation(ctx, seed.socCode, false)
	if err != nil {
		t.Fatalf("second enrich error: %v", err)
	}
	if !second.Success {
		t.Fatalf("second enrich failed: %v", second.Errors)
	}
	if second.CacheStatus.BLSWageExpired || second.CacheStatus.COSOccupationExpired {
		t.Fatalf("expected fresh caches, got status %+v", second.CacheStatus)
	}
	if second.DataUpdated.BLSWage || second.DataUpdated.COSOccupation {
		t.Fatalf("expected cache hits, got refetch: %+v", second.DataUpdated)
	}

	wage, found, err := repository.NewPostgresWageCacheRepository(db).Latest(ctx, seed.socCode)
	if err != nil || !found {
		t.Fatalf("wage cache lookup: found=%t err=%v", found, err)
	}
	if wage.AreaCode != "45300" {
		t.Fatalf("wage area = %q", wage.AreaCode)
	}
}

func connectTestDB(t *testing.T, ctx context.Context) database.DB {
	t.Helper()

	host := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := stringsOrDefault(os.Getenv("SKILLSYNC_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"))

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set SKILLSYNC_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}
	if ssl == "" {
		ssl = "disable"
	}

	dbcfg := config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     user,
		DBPassword: pass,
		DBSSLMode:  ssl,
	}

	db, err := dbpostgres.Connect(ctx, dbcfg)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, ctx context.Context, db database.DB) {
	t.Helper()

	migDir := resolveMigrationsDir(t)
	r := migration.Runner{Dir: migDir}
	if err := r.Run(ctx, db.SQLDB()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
}

func resolveMigrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve migrations dir: runtime.Caller failed")
	}

	// this file: internal/integration/recommendation_enrichment_test.go
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	migDir := filepath.Join(root, "migrations")

	if st, err := os.Stat(migDir); err != nil || !st.IsDir() {
		t.Fatalf("resolve migrations dir: not found or not a dir: %s", migDir)
	}
	return migDir
}

type seededIDs struct {
	cfg          config.Config
	userID       uuid.UUID
	jobID        uuid.UUID
	socCode      string
	assessmentID uuid.UUID
	programID    uuid.UUID
	providerID   uuid.UUID
	skillIDs     map[string]uuid.UUID
}

func seedAssessmentData(t *testing.T, ctx context.Context, db database.DB) seededIDs {
	t.Helper()

	out := seededIDs{
		cfg: config.Config{
			App: config.AppConfig{AppName: "skillsync", Environment: "test", HTTPPort: "0"},
			JWT: config.JWTConfig{
				AccessSecret:    stringsOrDefault(os.Getenv("SKILLSYNC_TEST_JWT_ACCESS_SECRET"), "test-access-secret"),
				AccessExpiresIn: 15 * time.Minute,
			},
			BLS: config.BLSConfig{MSACode: "45300", StateCode: "12"},
			COS: config.COSConfig{BatchDelay: time.Millisecond},
			Enrich: config.EnrichConfig{
				WageCacheTTL:  90 * 24 * time.Hour,
				OccupationTTL: 60 * 24 * time.Hour,
				BatchDelay:    time.Millisecond,
			},
		},
		userID:   uuid.New(),
		socCode:  "29-2061",
		skillIDs: map[string]uuid.UUID{},
	}

	for _, name := range []string{"Patient Care", "Medical Documentation", "Infection Control"} {
		out.skillIDs[name] = ensureSkill(t, ctx, db, name)
	}

	out.jobID = ensureOccupation(t, ctx, db, out.socCode, "Licensed Practical Nurse")

	ensureJobSkill(t, ctx, db, out.jobID, out.skillIDs["Patient Care"], "critical", 80)
	ensureJobSkill(t, ctx, db, out.jobID, out.skillIDs["Medical Documentation"], "important", 70)
	ensureJobSkill(t, ctx, db, out.jobID, out.skillIDs["Infection Control"], "helpful", 60)

	out.providerID = mustExecReturning(t, ctx, db,
		`INSERT INTO providers (id, name) VALUES ($1, 'SPC') ON CONFLICT DO NOTHING`,
	)
	out.programID = mustExecReturning(t, ctx, db,
		`INSERT INTO programs (id, provider_id, name, cip_code, modality) VALUES ($1, $2, 'Practical Nursing', '51.3901', 'in-person')`,
		out.providerID,
	)

	for _, name := range []string{"Patient Care", "Medical Documentation", "Infection Control"} {
		if _, err := db.Exec(ctx,
			`INSERT INTO program_skills (program_id, skill_id, coverage_level, weight)
			 VALUES ($1, $2, 'primary', 0.9)
			 ON CONFLICT (program_id, skill_id) DO NOTHING`,
			out.programID, out.skillIDs[name],
		); err != nil {
			t.Fatalf("seed program skill: %v", err)
		}
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO cip_soc_crosswalk (cip_code, soc_code) VALUES ('51.3901', $1) ON CONFLICT DO NOTHING`,
		out.socCode,
	); err != nil {
		t.Fatalf("seed crosswalk: %v", err)
	}

	out.assessmentID = mustExecReturning(t, ctx, db,
		`INSERT INTO assessments (id, user_id, job_id) VALUES ($1, $2, $3)`,
		out.userID, out.jobID,
	)

	// Low scores everywhere so every requirement shows up as a gap.
	for _, name := range []string{"Patient Care", "Medical Documentation", "Infection Control"} {
		if _, err := db.Exec(ctx,
			`INSERT INTO assessment_skill_results (assessment_id, skill_id, score_pct, band)
			 VALUES ($1, $2, 30, 'developing')
			 ON CONFLICT (assessment_id, skill_id) DO NOTHING`,
			out.assessmentID, out.skillIDs[name],
		); err != nil {
			t.Fatalf("seed assessment result: %v", err)
		}
	}

	return out
}

func cleanupSeed(t *testing.T, ctx context.Context, db database.DB, seed seededIDs) {
	t.Helper()

	_, _ = db.Exec(ctx, `DELETE FROM program_recommendations WHERE assessment_id = $1`, seed.assessmentID)
	_, _ = db.Exec(ctx, `DELETE FROM assessment_skill_results WHERE assessment_id = $1`, seed.assessmentID)
	_, _ = db.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, seed.assessmentID)
	_, _ = db.Exec(ctx, `DELETE FROM program_skills WHERE program_id = $1`, seed.programID)
	_, _ = db.Exec(ctx, `DELETE FROM programs WHERE id = $1`, seed.programID)
	_, _ = db.Exec(ctx, `DELETE FROM providers WHERE id = $1`, seed.providerID)
	_, _ = db.Exec(ctx, `DELETE FROM cip_soc_crosswalk WHERE soc_code = $1`, seed.socCode)
	_, _ = db.Exec(ctx, `DELETE FROM job_skills WHERE job_id = $1`, seed.jobID)
	_, _ = db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, seed.jobID)
	_, _ = db.Exec(ctx, `DELETE FROM bls_wage_data WHERE soc_code = $1`, seed.socCode)
	_, _ = db.Exec(ctx, `DELETE FROM cos_occupation_cache WHERE soc_code = $1`, seed.socCode)
	_, _ = db.Exec(ctx, `DELETE FROM occupation_enrichment_status WHERE soc_code = $1`, seed.socCode)
	for _, id := range seed.skillIDs {
		_, _ = db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	}
}

func newTestFiberApp(t *testing.T, cfg config.Config, db database.DB) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{})
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())

	matchingSvc := matching.NewService(
		repository.NewPostgresAssessmentRepository(db),
		repository.NewPostgresJobSkillRepository(db),
		repository.NewPostgresProgramSkillRepository(db),
		repository.NewPostgresProgramRepository(db),
		repository.NewPostgresRecommendationRepository(db),
		nil,
	)
	enrichmentSvc := enrichment.NewService(
		cfg, stubWageClient{}, stubOccupationClient{},
		repository.NewPostgresWageCacheRepository(db),
		repository.NewPostgresOccupationCacheRepository(db),
		repository.NewPostgresEnrichmentStatusRepository(db),
		repository.NewPostgresJobRepository(db),
		nil, nil,
	)

	routes.Register(app, db, nil, v1.Deps{
		Config:     cfg,
		Enrichment: enrichmentSvc,
		Matching:   matchingSvc,
	})
	return app
}

func issueToken(t *testing.T, cfg config.Config, userID uuid.UUID) string {
	t.Helper()

	tok, err := jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiresIn).GenerateToken(userID, "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func ensureSkill(t *testing.T, ctx context.Context, db database.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO skills (id, name, source, is_assessable, is_active)
		 VALUES ($1, $2, 'seed', true, true)
		 ON CONFLICT DO NOTHING`,
		id, name,
	); err != nil {
		t.Fatalf("seed skill %q: %v", name, err)
	}

	row := db.QueryRow(ctx, `SELECT id FROM skills WHERE lower(name) = lower($1) AND is_active`, name)
	if err := row.Scan(&id); err != nil {
		t.Fatalf("lookup skill %q: %v", name, err)
	}
	return id
}

func ensureOccupation(t *testing.T, ctx context.Context, db database.DB, socCode, title string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO jobs (id, job_kind, soc_code, title, short_desc)
		 VALUES ($1, 'occupation', $2, $3, 'Provides basic nursing care.')`,
		id, socCode, title,
	); err != nil {
		t.Fatalf("seed occupation: %v", err)
	}
	return id
}

func ensureJobSkill(t *testing.T, ctx context.Context, db database.DB, jobID, skillID uuid.UUID, importance string, threshold int) {
	t.Helper()

	if _, err := db.Exec(ctx,
		`INSERT INTO job_skills (job_id, skill_id, importance_level, proficiency_threshold, weight, onet_importance)
		 VALUES ($1, $2, $3, $4, 0.8, 4.0)
		 ON CONFLICT (job_id, skill_id) DO NOTHING`,
		jobID, skillID, importance, threshold,
	); err != nil {
		t.Fatalf("seed job skill: %v", err)
	}
}

// mustExecReturning runs an insert whose first argument is a fresh UUID and
// returns that UUID.
func mustExecReturning(t *testing.T, ctx context.Context, db database.DB, query string, args ...any) uuid.UUID {
	t.Helper()

	id := uuid.New()
	all := append([]any{id}, args...)
	if _, err := db.Exec(ctx, query, all...); err != nil {
		t.Fatalf("seed exec: %v", err)
	}
	return id
}

func stringsOrDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
