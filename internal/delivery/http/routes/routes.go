package routes

import (
	"skillsync/internal/database"
	"skillsync/internal/delivery/http/handler"
	v1 "skillsync/internal/delivery/http/routes/v1"
	"skillsync/internal/infrastructure/cache"

	"github.com/gofiber/fiber/v3"
)

func Register(app *fiber.App, db database.DB, redis *cache.Redis, deps v1.Deps) {
	if app == nil {
		return
	}

	health := handler.NewHealthHandler(db, redis)
	health.RegisterRoutes(app)

	api := app.Group("/api")
	v1.Register(api.Group("/v1"), deps)
}
