// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/agencyflow/outreach-backend/internal/config"
	"github.com/agencyflow/outreach-backend/internal/credits"
	"github.com/agencyflow/outreach-backend/internal/db"
	"github.com/agencyflow/outreach-backend/internal/locks"
	"github.com/agencyflow/outreach-backend/internal/metrics"
	"github.com/agencyflow/outreach-backend/internal/queue"
	"github.com/agencyflow/outreach-backend/internal/repository"
	"github.com/agencyflow/outreach-backend/internal/service"
	"github.com/agencyflow/outreach-backend/internal/transport"
)

const maxDeliveryRetries = 3

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

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("failed to open a channel: ", err)
	}
	defer ch.Close()

	msgs, err := ch.Consume(
		queue.PassQueue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("failed to register consumer: ", err)
	}

	controller := buildPassController(log)

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var trigger service.PassTrigger
			if err := json.Unmarshal(d.Body, &trigger); err != nil {
				log.WithError(err).Warn("invalid pass trigger, dropping")
				d.Ack(false)
				continue
			}

			result, err := controller.RunPass(context.Background(), trigger)
			if err != nil {
				// Infrastructure failure: republish with an incremented retry
				// header up to maxDeliveryRetries, then give up and let the
				// next scheduled pass pick it up. A plain Nack requeue would
				// keep the original headers, so the counter must ride on a
				// fresh publishing.
				retryCount := retryCountFrom(d.Headers)
				if retryCount < maxDeliveryRetries {
					if pubErr := ch.Publish("", queue.PassQueue, false, false, retryPublishing(d.Body, retryCount+1)); pubErr != nil {
						log.WithField("campaign_id", trigger.CampaignID).WithError(pubErr).Error("failed to requeue pass trigger")
						d.Nack(false, true)
						continue
					}
					d.Ack(false)
					continue
				}
				log.WithField("campaign_id", trigger.CampaignID).Error("pass permanently failed after retries")
				d.Ack(false)
				continue
			}

			if result.RescheduleAfter > 0 {
				if err := scheduler.Schedule(trigger, result.RescheduleAfter); err != nil {
					log.WithField("campaign_id", trigger.CampaignID).WithError(err).Error("failed to reschedule pass")
					d.Nack(false, true)
					continue
				}
			}

			d.Ack(false)
		}
	}()

	log.Info("worker running, waiting for pass triggers...")
	<-forever
}

// retryCountFrom reads the retry counter off a delivery. Brokers hand header
// integers back in whichever width they please, so accept the common ones.
func retryCountFrom(headers amqp.Table) int32 {
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func retryPublishing(body []byte, retries int32) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": retries},
		Body:         body,
	}
}

func buildPassController(log *logrus.Logger) *service.PassController {
	cfg := config.Get()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	mailboxRepo := &repository.MailboxRepository{DB: db.DB}
	messageRepo := &repository.MessageRepository{DB: db.DB}

	budgets := &service.BudgetCalculator{Messages: messageRepo}

	return &service.PassController{
		Campaigns: campaignRepo,
		Mailboxes: mailboxRepo,
		Messages:  messageRepo,
		Selector: &service.MailboxSelector{
			Budgets:   budgets,
			Mailboxes: mailboxRepo,
			Log:       log,
		},
		Eligibility: &service.EligibilitySelector{Messages: messageRepo},
		Dispatcher: &service.Dispatcher{
			Messages:        messageRepo,
			Credits:         credits.NewClient(cfg.BillingURL, cfg.BillingAPIKey),
			Transport:       transport.NewClient(cfg.MailerURL, cfg.MailerAPIKey),
			TrackingBaseURL: cfg.TrackingBaseURL,
			Log:             log,
		},
		Metrics: &metrics.Recorder{DB: db.DB, Log: log},
		Locks:   locks.NewKeyedMutex(),
		Log:     log,
	}
}
