package engine

import (
	"fmt"

	"depotflow/messaging"
)

func (e *Engine) wireEventHandlers() {
	// Request transitions: audit and publish to the event stream
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RequestChangedEvent)
		e.logFn("engine: request %d -> %s (%s)", ev.RequestID, ev.Status, ev.Detail)
		e.db.AppendAudit(evt.Type.String(), ev.RequestID, ev.Status, "", ev.Detail, "system")
		e.publishEntityEvent(evt.Type.String(), ev.RequestID, ev.Status, ev.Detail)
	}, EventRequestChanged)

	// Trip transitions: audit and publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TripChangedEvent)
		e.logFn("engine: trip %d -> %s (%s)", ev.TripID, ev.Status, ev.Detail)
		e.db.AppendAudit(evt.Type.String(), ev.TripID, ev.Status, "", ev.Detail, "system")
		e.publishEntityEvent(evt.Type.String(), ev.TripID, ev.Status, ev.Detail)
	}, EventTripChanged)

	// Loan transitions: audit and publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(LoanChangedEvent)
		e.logFn("engine: loan %d -> %s (%s)", ev.LoanID, ev.Status, ev.Detail)
		e.db.AppendAudit(evt.Type.String(), ev.LoanID, ev.Status, "", ev.Detail, "system")
		e.publishEntityEvent(evt.Type.String(), ev.LoanID, ev.Status, ev.Detail)
	}, EventLoanChanged)

	// Delivery settlements: audit with the owning trip, then publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DeliveryChangedEvent)
		e.db.AppendAudit(evt.Type.String(), ev.DeliveryID, ev.Status, "", fmt.Sprintf("trip=%d %s", ev.TripID, ev.Detail), "system")
		e.publishEntityEvent(evt.Type.String(), ev.DeliveryID, ev.Status, ev.Detail)
	}, EventDeliveryChanged)

	// Vehicle changes: refresh the redis cache and publish the new state
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(VehicleChangedEvent)
		if e.vehicleState != nil {
			e.vehicleState.Refresh(ev.VehicleID)
		}
		e.db.AppendAudit(evt.Type.String(), ev.VehicleID, "state", "", fmt.Sprintf("available=%t km=%d", ev.Available, ev.Kilometers), "system")
		env := messaging.NewEnvelope("vehicle_changed", e.cfg.Messaging.DepotID, messaging.VehicleEvent{
			VehicleID:  ev.VehicleID,
			Available:  ev.Available,
			Kilometers: ev.Kilometers,
		})
		e.enqueueEvent(env)
	}, EventVehicleChanged)

	// Messaging health: audit only
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

// publishEntityEvent queues an entity_changed envelope for the kafka event
// stream. Delivery happens via the outbox drainer, so state changes survive a
// broker outage.
func (e *Engine) publishEntityEvent(entity string, entityID int64, status, detail string) {
	env := messaging.NewEnvelope("entity_changed", e.cfg.Messaging.DepotID, messaging.EntityEvent{
		Entity:   entity,
		EntityID: entityID,
		Status:   status,
		Detail:   detail,
	})
	e.enqueueEvent(env)
}

func (e *Engine) enqueueEvent(env *messaging.Envelope) {
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode %s envelope: %v", env.MsgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.EventsTopic, data, env.MsgType, "", "kafka"); err != nil {
		e.logFn("engine: enqueue %s: %v", env.MsgType, err)
	}
}
