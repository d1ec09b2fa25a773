package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/cryptovault/cryptovault/docs"
	"github.com/cryptovault/cryptovault/internal/metrics"
)

// RegisterDocsRoutes exposes Prometheus metrics and the Swagger UI.
func RegisterDocsRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/swagger/*", adaptor.HTTPHandlerFunc(httpSwagger.WrapHandler))
}
