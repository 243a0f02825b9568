package routes

import (
	"github.com/gofiber/fiber/v2"

	"intake-app/config"
	"intake-app/controllers"
	"intake-app/middleware"
)

func SetupStockIntakeRoutes(app *fiber.App, controller *controllers.StockIntakeController) {
	api := app.Group(config.MAIN_ROUTES+"/stock", middleware.AuthMiddleware)
	api.Post("/sessions", controller.CreateSession)
	api.Get("/sessions/:id", controller.GetSession)
	api.Post("/sessions/:id/scan", controller.Scan)
	api.Put("/sessions/:id/lines/:ordinal", controller.EditQuantity)
	api.Delete("/sessions/:id/lines/:ordinal", controller.RemoveLine)
	api.Post("/sessions/:id/submit", controller.Submit)
	api.Delete("/sessions/:id", controller.Discard)
}
