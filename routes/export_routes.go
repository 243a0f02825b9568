package routes

import (
	"github.com/gofiber/fiber/v2"

	"intake-app/config"
	"intake-app/controllers"
	"intake-app/middleware"
)

func SetupExportRoutes(app *fiber.App, controller *controllers.ExportController) {
	api := app.Group(config.MAIN_ROUTES+"/sessions", middleware.AuthMiddleware)
	api.Get("/:id/export", controller.Export)
}
