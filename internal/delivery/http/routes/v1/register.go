package v1

import (
	"log"

	"skillsync/internal/config"
	"skillsync/internal/delivery/http/handler"
	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/enrichment"
	"skillsync/internal/matching"
	"skillsync/internal/pipeline"
	"skillsync/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

// Deps carries the wired services into route registration.
type Deps struct {
	Config config.Config
	Logger *log.Logger

	Enrichment    *enrichment.Service
	Matching      *matching.Service
	ProgramSkills *pipeline.Service
	Extractor     pipeline.Extractor
}

func Register(r fiber.Router, d Deps) {
	if r == nil {
		return
	}

	jwtSvc := jwt.NewHMACService(d.Config.JWT.AccessSecret, d.Config.JWT.AccessExpiresIn)
	authMw := middleware.NewAuthMiddleware(jwtSvc)

	enrichmentHandler := handler.NewEnrichmentHandler(d.Enrichment)
	recommendationHandler := handler.NewRecommendationHandler(d.Matching)
	programSkillsHandler := handler.NewProgramSkillsHandler(d.ProgramSkills, d.Extractor)

	// Enriched occupation reads are public.
	enrichmentHandler.RegisterRoutes(r)

	protected := r.Group("", authMw.Middleware())
	recommendationHandler.RegisterRoutes(protected)

	admin := r.Group("/admin", authMw.Middleware(), authMw.RequireAdmin())
	enrichmentHandler.RegisterAdminRoutes(admin)
	programSkillsHandler.RegisterAdminRoutes(admin)
}
