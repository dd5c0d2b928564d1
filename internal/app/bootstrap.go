package app

import (
	"fmt"
	"strings"

	"skillsync/internal/config"
	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/delivery/http/routes"
	v1 "skillsync/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
	})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

func Bootstrap(cfg config.Config) (*App, func() error, error) {
	container, err := NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	app := New(container)
	return app, container.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(c.Logger).Middleware())
	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	routes.Register(app, c.DB, c.Redis, v1.Deps{
		Config:        c.Config,
		Logger:        c.Logger,
		Enrichment:    c.Enrichment,
		Matching:      c.Matching,
		ProgramSkills: c.ProgramSkills,
		Extractor:     c.Extractor,
	})
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
