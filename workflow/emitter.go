package workflow

// Emitter is the interface adapters must satisfy to bridge workflow events to
// the engine.
type Emitter interface {
	EmitRequestChanged(requestID int64, status, detail string)
	EmitTripChanged(tripID int64, status, detail string)
	EmitLoanChanged(loanID int64, status, detail string)
	EmitDeliveryChanged(deliveryID, tripID int64, status, detail string)
	EmitVehicleChanged(vehicleID int64, available bool, kilometers int64)
}
