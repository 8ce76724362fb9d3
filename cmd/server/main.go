// cmd/server/main.go
package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/agencyflow/outreach-backend/internal/config"
	"github.com/agencyflow/outreach-backend/internal/controller"
	"github.com/agencyflow/outreach-backend/internal/db"
	"github.com/agencyflow/outreach-backend/internal/queue"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, relying on OS environment variables")
	}
	cfg := config.Get()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db.Init(log)

	conn, err := amqp.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ: ", err)
	}
	defer conn.Close()

	scheduler, err := queue.NewAMQPScheduler(conn)
	if err != nil {
		log.Fatal("failed to set up pass scheduler: ", err)
	}
	defer scheduler.Close()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}

	campaignController := &controller.CampaignController{
		CampaignRepo: campaignRepo,
		Scheduler:    scheduler,
		Log:          log,
	}

	r := chi.NewRouter()

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/trigger", campaignController.TriggerPass)

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Info("server running on ", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
