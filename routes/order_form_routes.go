package routes

import (
	"github.com/gofiber/fiber/v2"

	"intake-app/config"
	"intake-app/controllers"
)

// Order-form intake is public: retailers place orders without an account.
func SetupOrderFormRoutes(app *fiber.App, controller *controllers.OrderFormController) {
	api := app.Group(config.GUEST_ROUTES + "/order-form")
	api.Post("/sessions", controller.CreateSession)
	api.Get("/sessions/:id", controller.GetSession)
	api.Post("/sessions/:id/scan", controller.Scan)
	api.Post("/sessions/:id/lines", controller.AddLine)
	api.Put("/sessions/:id/lines/:ordinal", controller.EditLine)
	api.Delete("/sessions/:id/lines/:ordinal", controller.RemoveLine)
	api.Post("/sessions/:id/submit", controller.Submit)
	api.Delete("/sessions/:id", controller.Discard)
}
