package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/agencyflow/outreach-backend/internal/service"
)

// PassQueue carries due pass triggers; the worker consumes it.
const PassQueue = "campaign_passes"

// AMQPScheduler delivers delayed triggers through per-delay wait queues.
// RabbitMQ only expires messages from the head of a queue, so mixing TTLs in
// one queue would hold a short retry hostage behind a day-long trigger. Each
// delay class therefore gets its own wait queue with a queue-level TTL,
// dead-lettering into PassQueue; within one queue every message has the same
// TTL, so expiry stays FIFO.
type AMQPScheduler struct {
	ch *amqp.Channel

	mu         sync.Mutex
	waitQueues map[string]bool
}

func NewAMQPScheduler(conn *amqp.Connection) (*AMQPScheduler, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(PassQueue, true, false, false, false, nil); err != nil {
		return nil, err
	}

	return &AMQPScheduler{ch: ch, waitQueues: make(map[string]bool)}, nil
}

func (s *AMQPScheduler) Schedule(trigger service.PassTrigger, delay time.Duration) error {
	body, err := json.Marshal(trigger)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	if delay <= 0 {
		return s.ch.Publish("", PassQueue, false, false, pub)
	}

	name, err := s.ensureWaitQueue(delay)
	if err != nil {
		return err
	}
	return s.ch.Publish("", name, false, false, pub)
}

// ensureWaitQueue declares the wait queue for this delay class once and
// caches the name. The scheduler only ever uses two classes (the hourly
// retry and the daily batch), so the map stays tiny.
func (s *AMQPScheduler) ensureWaitQueue(delay time.Duration) (string, error) {
	name := waitQueueName(delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waitQueues[name] {
		return name, nil
	}

	if _, err := s.ch.QueueDeclare(name, true, false, false, false, waitQueueArgs(delay)); err != nil {
		return "", err
	}
	s.waitQueues[name] = true
	return name, nil
}

func waitQueueName(delay time.Duration) string {
	return fmt.Sprintf("%s.wait.%dms", PassQueue, delay.Milliseconds())
}

func waitQueueArgs(delay time.Duration) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": PassQueue,
	}
}

func (s *AMQPScheduler) Close() error {
	return s.ch.Close()
}

var _ Scheduler = (*AMQPScheduler)(nil)
