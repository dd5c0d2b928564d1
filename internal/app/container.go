package app

import (
	"context"
	"log"
	"os"
	"time"

	"skillsync/internal/client/bls"
	"skillsync/internal/client/careeronestop"
	"skillsync/internal/config"
	"skillsync/internal/database"
	dbpostgres "skillsync/internal/database/postgres"
	"skillsync/internal/enrichment"
	"skillsync/internal/extraction"
	"skillsync/internal/infrastructure/cache"
	"skillsync/internal/matching"
	"skillsync/internal/pipeline"
	"skillsync/internal/repository"
	"skillsync/internal/taxonomy"
)

// Container wires config, storage, external clients and services once and
// hands the rest of the app ready-to-use dependencies.
type Container struct {
	Config config.Config
	Logger *log.Logger

	DB    database.DB
	Redis *cache.Redis

	Enrichment    *enrichment.Service
	Matching      *matching.Service
	ProgramSkills *pipeline.Service
	Extractor     *extraction.Extractor
}

func NewContainer(cfg config.Config) (*Container, error) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	redis := cache.NewRedis(logger)

	wageCache := repository.NewPostgresWageCacheRepository(db)
	occCache := repository.NewPostgresOccupationCacheRepository(db)
	status := repository.NewPostgresEnrichmentStatusRepository(db)
	jobs := repository.NewPostgresJobRepository(db)
	jobSkills := repository.NewPostgresJobSkillRepository(db)
	skills := repository.NewPostgresSkillRepository(db)
	programs := repository.NewPostgresProgramRepository(db)
	programSkills := repository.NewPostgresProgramSkillRepository(db)
	crosswalk := repository.NewPostgresCrosswalkRepository(db)
	assessments := repository.NewPostgresAssessmentRepository(db)
	recommendations := repository.NewPostgresRecommendationRepository(db)

	blsClient := bls.NewClient(cfg.BLS, logger)
	cosClient := careeronestop.NewClient(cfg.COS, logger)
	extractor := extraction.New(cfg.Extractor, logger)

	enrichmentSvc := enrichment.NewService(
		cfg, blsClient, cosClient,
		wageCache, occCache, status, jobs,
		redis, logger,
	)
	matchingSvc := matching.NewService(assessments, jobSkills, programSkills, programs, recommendations, logger)

	resolver := taxonomy.NewResolver(skills, logger)
	programSkillsSvc := pipeline.NewService(
		programs, crosswalk, jobs, jobSkills, programSkills,
		extractor, resolver, pipeline.NewCollySyllabusFetcher(), logger,
	)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Redis:         redis,
		Enrichment:    enrichmentSvc,
		Matching:      matchingSvc,
		ProgramSkills: programSkillsSvc,
		Extractor:     extractor,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Printf("app=close redis err=%v", err)
		}
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
