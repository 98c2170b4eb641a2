package workflow

// Stock request statuses.
const (
	RequestPending            = "pending"
	RequestAccepted           = "accepted"
	RequestTripCreated        = "trip_created"
	RequestInDelivery         = "in_delivery"
	RequestPartiallyFulfilled = "partially_fulfilled"
	RequestFulfilled          = "fulfilled"
	RequestCancelled          = "cancelled"
	RequestExpired            = "expired"
)

// Trip statuses. awaiting_km is the odometer gate between the last dropoff
// and the closing reading; the vehicle stays claimed until it resolves.
const (
	TripPlanned    = "planned"
	TripInProgress = "in_progress"
	TripAwaitingKm = "awaiting_km"
	TripCompleted  = "completed"
	TripCancelled  = "cancelled"
)

// Pending delivery statuses.
const (
	DeliveryPending   = "pending"
	DeliveryConfirmed = "confirmed"
	DeliveryRejected  = "rejected"
)

// Loan statuses.
const (
	LoanPending         = "pending"
	LoanAccepted        = "accepted"
	LoanRejected        = "rejected"
	LoanConfirmed       = "confirmed"
	LoanPickupAssigned  = "pickup_assigned"
	LoanPickupAccepted  = "pickup_accepted"
	LoanCollected       = "collected"
	LoanReceived        = "received"
	LoanReturnInitiated = "return_initiated"
	LoanReturnAssigned  = "return_assigned"
	LoanReturnAccepted  = "return_accepted"
	LoanClosed          = "closed"
	LoanCancelled       = "cancelled"
)

// User roles.
const (
	RoleRequester      = "requester"
	RoleDriver         = "driver"
	RoleManager        = "manager"
	RoleVehicleManager = "vehicle_manager"
	RoleAdmin          = "admin"
)

// Urgency levels.
const (
	UrgencyNormal = "normal"
	UrgencyUrgent = "urgent"
)

// Policy constants.
const (
	// MaxTripDistanceKm caps how far a single trip's closing reading may sit
	// above its opening reading.
	MaxTripDistanceKm = 2000
	// KgPerBag converts driver-claimed and manager-confirmed weights into
	// request-quantity bags.
	KgPerBag = 10
)
