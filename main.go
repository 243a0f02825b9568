package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"intake-app/config"
	"intake-app/controllers"
	"intake-app/idgen"
	"intake-app/journal"
	"intake-app/notify"
	"intake-app/recordstore"
	"intake-app/routes"
	"intake-app/scan"
	"intake-app/ws"
)

func main() {

	config.LoadConfig()
	idgen.Init()

	app := fiber.New()

	// Scan journal is advisory; a dead database must not stop intake.
	var j *journal.Journal
	if config.JournalOn {
		var err error
		j, err = journal.Open()
		if err != nil {
			log.Println("Warning: journal disabled, failed to connect:", err)
			j = nil
		}
	}

	store := recordstore.NewClient(
		config.RecordAPIBaseURL,
		config.RecordAPIToken,
		time.Duration(config.RecordAPITimeout)*time.Second,
	)

	hub := ws.NewHub()
	go func() {
		if err := hub.Listen(":" + config.WS_PORT); err != nil {
			log.Println("Warning: websocket feed stopped:", err)
		}
	}()

	sinks := notify.Multi{notify.LogNotifier{}, hub}
	if config.SMTPHost != "" && len(config.NotifyEmails) > 0 {
		sinks = append(sinks, notify.NewEmailNotifier(
			config.SMTPHost, config.SMTPPort,
			config.SMTPSender, config.SMTPPassword,
			config.NotifyEmails,
		))
	}

	manager := scan.NewManager(idgen.GenerateID, store, sinks, hub)

	config.SetupCORS(app)

	routes.SetupOrderFormRoutes(app, controllers.NewOrderFormController(manager, store, j))
	routes.SetupStockIntakeRoutes(app, controllers.NewStockIntakeController(manager, store, j))
	routes.SetupReceivingRoutes(app, controllers.NewReceivingController(manager, store, j))
	routes.SetupExportRoutes(app, controllers.NewExportController(manager))

	port := config.APP_PORT
	fmt.Println("🚀 Intake gateway berjalan di port " + port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
