package engine

const (
	EventRequestChanged EventType = iota + 1
	EventTripChanged
	EventLoanChanged
	EventDeliveryChanged
	EventVehicleChanged
	EventMessagingConnected
	EventMessagingDisconnected
)

// String names the entity an event type concerns; audit rows and outbound
// envelopes carry this name.
func (t EventType) String() string {
	switch t {
	case EventRequestChanged:
		return "request"
	case EventTripChanged:
		return "trip"
	case EventLoanChanged:
		return "loan"
	case EventDeliveryChanged:
		return "delivery"
	case EventVehicleChanged:
		return "vehicle"
	case EventMessagingConnected, EventMessagingDisconnected:
		return "messaging"
	}
	return "unknown"
}

// --- Event payloads ---

type RequestChangedEvent struct {
	RequestID int64
	Status    string
	Detail    string
}

type TripChangedEvent struct {
	TripID int64
	Status string
	Detail string
}

type LoanChangedEvent struct {
	LoanID int64
	Status string
	Detail string
}

type DeliveryChangedEvent struct {
	DeliveryID int64
	TripID     int64
	Status     string
	Detail     string
}

type VehicleChangedEvent struct {
	VehicleID  int64
	Available  bool
	Kilometers int64
}

type ConnectionEvent struct {
	Detail string
}
