package messaging

import (
	"log"
	"time"

	"depotflow/store"
)

// Publisher is the piece of a transport the drainer needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// OutboxDrainer periodically sends pending outbox messages, routing each to
// its transport. Command transactions only ever write rows; brokers are
// touched here, off the command path.
type OutboxDrainer struct {
	db       *store.DB
	kafka    Publisher
	mqtt     Publisher
	interval time.Duration
	stopChan chan struct{}
}

func NewOutboxDrainer(db *store.DB, kafka, mqtt Publisher, interval time.Duration) *OutboxDrainer {
	return &OutboxDrainer{
		db:       db,
		kafka:    kafka,
		mqtt:     mqtt,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

func (d *OutboxDrainer) Stop() {
	select {
	case d.stopChan <- struct{}{}:
	default:
	}
}

func (d *OutboxDrainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Drain sends one batch of pending messages.
func (d *OutboxDrainer) Drain() {
	msgs, err := d.db.PendingOutbox(50)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return
	}
	for _, msg := range msgs {
		pub := d.kafka
		if msg.Transport == "mqtt" {
			pub = d.mqtt
		}
		if pub == nil || !pub.IsConnected() {
			continue
		}
		if err := pub.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox: publish to %s failed: %v", msg.Topic, err)
			d.db.BumpOutboxRetry(msg.ID)
			continue
		}
		d.db.MarkOutboxSent(msg.ID)
	}
}
