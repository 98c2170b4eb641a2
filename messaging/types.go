package messaging

import "time"

// Envelope is the typed wrapper for every message depotflow publishes.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	DepotID   string    `json:"depot_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EntityEvent announces a state change on a workflow entity. It is the payload
// of "entity_changed" envelopes on the kafka event stream.
type EntityEvent struct {
	Entity   string `json:"entity"` // request, trip, loan, delivery, vehicle
	EntityID int64  `json:"entity_id"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// Notice is a push notification for a single user or a whole role, the
// payload of "notice" envelopes on the mqtt side.
type Notice struct {
	Event  string `json:"event"`
	Detail string `json:"detail"`
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// VehicleEvent carries availability and watermark changes.
type VehicleEvent struct {
	VehicleID  int64 `json:"vehicle_id"`
	Available  bool  `json:"available"`
	Kilometers int64 `json:"kilometers"`
}
