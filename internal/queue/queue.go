package queue

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agencyflow/outreach-backend/internal/service"
)

// Scheduler enqueues a campaign pass trigger, optionally after a delay. The
// pass controller expresses "run me again later" as a PassResult and the
// caller turns it into a Schedule call, so the core never touches a broker.
type Scheduler interface {
	Schedule(trigger service.PassTrigger, delay time.Duration) error
}

// InMemoryScheduler delivers triggers to a subscribed handler via timers.
// Used by tests and single-process runs; production uses the AMQP scheduler.
type InMemoryScheduler struct {
	mu       sync.Mutex
	handlers []func(trigger service.PassTrigger)
	log      *logrus.Logger
}

func NewInMemoryScheduler(log *logrus.Logger) *InMemoryScheduler {
	return &InMemoryScheduler{log: log}
}

func (q *InMemoryScheduler) Subscribe(handler func(trigger service.PassTrigger)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

func (q *InMemoryScheduler) Schedule(trigger service.PassTrigger, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		handlers := append([]func(service.PassTrigger){}, q.handlers...)
		q.mu.Unlock()

		if len(handlers) == 0 {
			q.log.WithField("campaign_id", trigger.CampaignID).Warn("no subscribers for pass trigger")
			return
		}
		for _, handler := range handlers {
			handler(trigger)
		}
	})
	return nil
}

var _ Scheduler = (*InMemoryScheduler)(nil)
