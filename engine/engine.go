package engine

import (
	"log"
	"time"

	"depotflow/config"
	"depotflow/messaging"
	"depotflow/store"
	"depotflow/vehiclestate"
	"depotflow/workflow"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig    *config.Config
	ConfigPath   string
	DB           *store.DB
	VehicleState *vehiclestate.Manager
	MsgClient    *messaging.Client
	Notifier     *messaging.MQTTNotifier
	LogFunc      LogFunc
	Debug        bool
}

type Engine struct {
	cfg          *config.Config
	configPath   string
	db           *store.DB
	vehicleState *vehiclestate.Manager
	msgClient    *messaging.Client
	notifier     *messaging.MQTTNotifier
	coordinator  *workflow.Coordinator
	drainer      *messaging.OutboxDrainer
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	kafkaUp      bool
	mqttUp       bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:          c.AppConfig,
		configPath:   c.ConfigPath,
		db:           c.DB,
		vehicleState: c.VehicleState,
		msgClient:    c.MsgClient,
		notifier:     c.Notifier,
		Events:       NewEventBus(),
		logFn:        logFn,
		stopChan:     make(chan struct{}),
	}
}

func (e *Engine) Start() {
	// Create emitter adapter and the outbox-backed notifier
	we := &workflowEmitter{bus: e.Events}
	notify := &outboxNotifier{
		db:      e.db,
		depotID: e.cfg.Messaging.DepotID,
		prefix:  e.cfg.Messaging.NoticeTopicPrefix,
		logFn:   e.logFn,
	}

	// Create the coordinator
	e.coordinator = workflow.NewCoordinator(
		e.db,
		we,
		workflow.NewStoreLedger(e.db),
		notify,
		workflow.NewStoreRoles(e.db),
	)

	// Wire event handlers
	e.wireEventHandlers()

	// Start draining the outbox
	e.drainer = messaging.NewOutboxDrainer(e.db, e.msgClient, e.notifier, e.cfg.Messaging.OutboxDrainInterval)
	e.drainer.Start()

	// Emit initial connection status
	e.checkConnectionStatus()

	// Start periodic connection health check and the request expiry sweep
	go e.connectionHealthLoop()
	go e.expirySweepLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	close(e.stopChan)
	if e.drainer != nil {
		e.drainer.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                       { return e.db }
func (e *Engine) AppConfig() *config.Config           { return e.cfg }
func (e *Engine) ConfigPath() string                  { return e.configPath }
func (e *Engine) Coordinator() *workflow.Coordinator  { return e.coordinator }
func (e *Engine) VehicleState() *vehiclestate.Manager { return e.vehicleState }
func (e *Engine) MsgClient() *messaging.Client        { return e.msgClient }

func (e *Engine) checkConnectionStatus() {
	// Kafka
	if e.msgClient != nil && e.msgClient.IsConnected() {
		if !e.kafkaUp {
			e.kafkaUp = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "kafka connected"}})
		}
	} else {
		if e.kafkaUp {
			e.kafkaUp = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "kafka disconnected"}})
		}
	}

	// MQTT
	if e.notifier != nil && e.notifier.IsConnected() {
		if !e.mqttUp {
			e.mqttUp = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "mqtt connected"}})
		}
	} else {
		if e.mqttUp {
			e.mqttUp = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "mqtt disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// expirySweepLoop expires pending requests that have sat unanswered past the
// configured age.
func (e *Engine) expirySweepLoop() {
	interval := e.cfg.Workflow.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			n, err := e.coordinator.ExpireStaleRequests(e.cfg.Workflow.RequestExpiry)
			if err != nil {
				e.logFn("engine: expiry sweep: %v", err)
			} else if n > 0 {
				e.logFn("engine: expired %d stale requests", n)
			}
		}
	}
}
