package engine

// workflowEmitter bridges the workflow package's emitter interface to the EventBus.
type workflowEmitter struct {
	bus *EventBus
}

func (e *workflowEmitter) EmitRequestChanged(requestID int64, status, detail string) {
	e.bus.Emit(Event{Type: EventRequestChanged, Payload: RequestChangedEvent{
		RequestID: requestID,
		Status:    status,
		Detail:    detail,
	}})
}

func (e *workflowEmitter) EmitTripChanged(tripID int64, status, detail string) {
	e.bus.Emit(Event{Type: EventTripChanged, Payload: TripChangedEvent{
		TripID: tripID,
		Status: status,
		Detail: detail,
	}})
}

func (e *workflowEmitter) EmitLoanChanged(loanID int64, status, detail string) {
	e.bus.Emit(Event{Type: EventLoanChanged, Payload: LoanChangedEvent{
		LoanID: loanID,
		Status: status,
		Detail: detail,
	}})
}

func (e *workflowEmitter) EmitDeliveryChanged(deliveryID, tripID int64, status, detail string) {
	e.bus.Emit(Event{Type: EventDeliveryChanged, Payload: DeliveryChangedEvent{
		DeliveryID: deliveryID,
		TripID:     tripID,
		Status:     status,
		Detail:     detail,
	}})
}

func (e *workflowEmitter) EmitVehicleChanged(vehicleID int64, available bool, kilometers int64) {
	e.bus.Emit(Event{Type: EventVehicleChanged, Payload: VehicleChangedEvent{
		VehicleID:  vehicleID,
		Available:  available,
		Kilometers: kilometers,
	}})
}
