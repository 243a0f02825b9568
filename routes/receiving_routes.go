package routes

import (
	"github.com/gofiber/fiber/v2"

	"intake-app/config"
	"intake-app/controllers"
	"intake-app/middleware"
)

func SetupReceivingRoutes(app *fiber.App, controller *controllers.ReceivingController) {
	api := app.Group(config.MAIN_ROUTES+"/receiving", middleware.AuthMiddleware)
	api.Post("/sessions", controller.CreateSession)
	api.Get("/sessions/:id", controller.GetSession)
	api.Post("/sessions/:id/boxes", controller.AddBox)
	api.Post("/sessions/:id/scan", controller.Scan)
	api.Delete("/sessions/:id/pending/:box", controller.ClearPending)
	api.Delete("/sessions/:id/boxes/:box/codes/:index", controller.RemoveCode)
	api.Delete("/sessions/:id/boxes/:box", controller.RemoveBox)
	api.Post("/sessions/:id/submit", controller.Submit)
	api.Delete("/sessions/:id", controller.Discard)
}
