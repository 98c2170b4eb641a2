package messaging

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"depotflow/config"
)

// MQTTNotifier pushes notices to per-user and per-role mqtt topics that
// driver and manager devices subscribe to.
type MQTTNotifier struct {
	mu   sync.RWMutex
	cfg  *config.MQTTConfig
	conn mqtt.Client
}

func NewMQTTNotifier(cfg *config.MQTTConfig) *MQTTNotifier {
	return &MQTTNotifier{cfg: cfg}
}

func (n *MQTTNotifier) Connect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	opts := mqtt.NewClientOptions().
		AddBroker(n.cfg.BrokerURL).
		SetClientID(n.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if n.cfg.Username != "" {
		opts.SetUsername(n.cfg.Username)
		opts.SetPassword(n.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	n.conn = client
	return nil
}

func (n *MQTTNotifier) Publish(topic string, payload []byte) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.conn == nil || !n.conn.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	token := n.conn.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

func (n *MQTTNotifier) IsConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn != nil && n.conn.IsConnected()
}

func (n *MQTTNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		n.conn.Disconnect(250)
		n.conn = nil
	}
}
