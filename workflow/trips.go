package workflow

import (
	"errors"
	"fmt"
	"log"
	"time"

	"depotflow/store"
)

// StopPlan is one planned stop on a trip being created.
type StopPlan struct {
	Seq         int64  `json:"seq"`
	StopType    string `json:"stop_type"`
	LocationID  int64  `json:"location_id"`
	PlannedBags int64  `json:"planned_bags"`
}

// TripPlan is the input for creating a trip against an accepted request.
type TripPlan struct {
	RequestID        int64      `json:"request_id"`
	VehicleID        int64      `json:"vehicle_id"`
	OriginSupplierID *int64     `json:"origin_supplier_id,omitempty"`
	OriginLocationID *int64     `json:"origin_location_id,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	Notes            string     `json:"notes"`
	Stops            []StopPlan `json:"stops,omitempty"`
}

// planTrip validates a trip plan against its request and builds the trip and
// stop rows. Pure validation; nothing is persisted until the caller commits.
func (c *Coordinator) planTrip(actorID int64, plan TripPlan, r *store.StockRequest) (*store.Trip, []*store.TripStop, error) {
	if (plan.OriginSupplierID == nil) == (plan.OriginLocationID == nil) {
		return nil, nil, validationErr("bad_origin", "exactly one of supplier or location origin must be set")
	}
	v, err := c.db.GetVehicle(plan.VehicleID)
	if err != nil {
		return nil, nil, notFoundErr("vehicle %d not found", plan.VehicleID)
	}
	if !v.Available() {
		return nil, nil, conflictErr("vehicle_unavailable", "vehicle %d is claimed by trip %d", v.ID, derefID(v.ActiveTripID))
	}

	var stops []*store.TripStop
	var planned int64
	for i, s := range plan.Stops {
		if s.StopType != "pickup" && s.StopType != "dropoff" {
			return nil, nil, validationErr("bad_stop", "stop %d has unknown type %q", i, s.StopType)
		}
		if s.StopType == "dropoff" {
			planned += s.PlannedBags
		}
		stops = append(stops, &store.TripStop{Seq: s.Seq, StopType: s.StopType, LocationID: s.LocationID, PlannedBags: s.PlannedBags})
	}
	if planned > r.RemainingBags() {
		return nil, nil, validationErr("bad_quantity", "planned %d bags exceeds remaining %d", planned, r.RemainingBags())
	}

	t := &store.Trip{
		VehicleID:        plan.VehicleID,
		DriverID:         actorID,
		OriginSupplierID: plan.OriginSupplierID,
		OriginLocationID: plan.OriginLocationID,
		DestLocationID:   r.LocationID,
		RequestID:        &r.ID,
		Status:           TripPlanned,
		EstimatedArrival: plan.EstimatedArrival,
		Notes:            plan.Notes,
	}
	return t, stops, nil
}

// CreateTrip plans a delivery trip for a request the driver has accepted. The
// request moves to trip_created in the same transaction that records the trip.
func (c *Coordinator) CreateTrip(actorID int64, plan TripPlan) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(plan.RequestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", plan.RequestID)
	}
	if r.Status != RequestAccepted {
		return nil, c.requestConflict(plan.RequestID, "plan a trip for")
	}
	if r.AcceptedBy == nil || *r.AcceptedBy != actorID {
		return nil, authErr("not_acceptor", "request %d was accepted by driver %d, not %d", plan.RequestID, derefID(r.AcceptedBy), actorID)
	}
	t, stops, err := c.planTrip(actorID, plan, r)
	if err != nil {
		return nil, err
	}
	if err := c.db.CreateTripForRequest(t, stops, RequestAccepted); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, c.requestConflict(plan.RequestID, "plan a trip for")
		}
		return nil, fmt.Errorf("workflow: create trip: %w", err)
	}
	log.Printf("workflow: trip %d created for request %d (vehicle %d, driver %d)", t.ID, r.ID, t.VehicleID, actorID)
	c.emitter.EmitTripChanged(t.ID, TripPlanned, fmt.Sprintf("trip for request %d", r.ID))
	c.emitter.EmitRequestChanged(r.ID, RequestTripCreated, fmt.Sprintf("trip %d created", t.ID))
	c.notify.NotifyUser(r.RequestedBy, "trip_created", fmt.Sprintf("trip %d planned for request %d", t.ID, r.ID))
	return t, nil
}

// FulfillRemaining plans a follow-up trip carrying the remainder of a
// partially fulfilled request. Validation happens before anything is written;
// the reclaim and the trip commit in one transaction, so a rejected plan
// leaves the request untouched.
func (c *Coordinator) FulfillRemaining(actorID int64, plan TripPlan) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(plan.RequestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", plan.RequestID)
	}
	if r.RemainingBags() == 0 {
		return nil, conflictErr("already_fulfilled", "request %d has no remainder", plan.RequestID)
	}
	if r.Status != RequestPartiallyFulfilled {
		return nil, c.requestConflict(plan.RequestID, "fulfill the remainder of")
	}
	t, stops, err := c.planTrip(actorID, plan, r)
	if err != nil {
		return nil, err
	}
	if err := c.db.CreateTripForRemainder(t, stops); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, c.requestConflict(plan.RequestID, "fulfill the remainder of")
		}
		return nil, fmt.Errorf("workflow: fulfill remainder of request %d: %w", plan.RequestID, err)
	}
	log.Printf("workflow: trip %d created for remainder of request %d (vehicle %d, driver %d)", t.ID, r.ID, t.VehicleID, actorID)
	c.emitter.EmitTripChanged(t.ID, TripPlanned, fmt.Sprintf("remainder trip for request %d", r.ID))
	c.emitter.EmitRequestChanged(r.ID, RequestTripCreated, fmt.Sprintf("remainder reclaimed by driver %d, trip %d created", actorID, t.ID))
	c.notify.NotifyUser(r.RequestedBy, "trip_created", fmt.Sprintf("trip %d planned for the remainder of request %d", t.ID, r.ID))
	return t, nil
}

// StartTrip begins the drive. The vehicle is claimed here and stays claimed
// until SubmitKm or a cancel; the opening reading may not sit below the
// vehicle's watermark.
func (c *Coordinator) StartTrip(actorID, tripID, odometerStart int64, eta *time.Time) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", tripID)
	}
	if t.DriverID != actorID {
		return nil, authErr("not_driver", "trip %d belongs to driver %d", tripID, t.DriverID)
	}
	v, err := c.db.GetVehicle(t.VehicleID)
	if err != nil {
		return nil, notFoundErr("vehicle %d not found", t.VehicleID)
	}
	if odometerStart < v.KilometersTraveled {
		return nil, validationErr("odometer_regression", "opening reading %d is below vehicle watermark %d", odometerStart, v.KilometersTraveled)
	}

	if err := c.db.StartTrip(t, odometerStart, eta); err != nil {
		switch {
		case errors.Is(err, store.ErrVehicleBusy):
			v, _ := c.db.GetVehicle(t.VehicleID)
			return nil, conflictErr("vehicle_unavailable", "vehicle %d is claimed by trip %d", t.VehicleID, derefID(v.ActiveTripID))
		case errors.Is(err, store.ErrStaleStatus):
			return nil, c.tripConflict(tripID, "start")
		}
		return nil, fmt.Errorf("workflow: start trip %d: %w", tripID, err)
	}
	log.Printf("workflow: trip %d started (vehicle %d at %d km)", tripID, t.VehicleID, odometerStart)
	c.emitter.EmitTripChanged(tripID, TripInProgress, fmt.Sprintf("started at %d km", odometerStart))
	c.emitter.EmitVehicleChanged(t.VehicleID, false, v.KilometersTraveled)
	if t.RequestID != nil {
		c.emitter.EmitRequestChanged(*t.RequestID, RequestInDelivery, fmt.Sprintf("trip %d under way", tripID))
	}
	return c.db.GetTrip(tripID)
}

// ArriveStop stamps arrival at a stop.
func (c *Coordinator) ArriveStop(actorID, stopID int64) error {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return err
	}
	s, err := c.db.GetStop(stopID)
	if err != nil {
		return notFoundErr("stop %d not found", stopID)
	}
	t, err := c.db.GetTrip(s.TripID)
	if err != nil {
		return notFoundErr("trip %d not found", s.TripID)
	}
	if t.DriverID != actorID {
		return authErr("not_driver", "trip %d belongs to driver %d", t.ID, t.DriverID)
	}
	if t.Status != TripInProgress {
		return c.tripConflict(t.ID, "arrive on")
	}
	if err := c.db.MarkStopArrived(stopID); err != nil {
		return fmt.Errorf("workflow: arrive stop %d: %w", stopID, err)
	}
	c.emitter.EmitTripChanged(t.ID, TripInProgress, fmt.Sprintf("arrived at stop %d", s.Seq))
	return nil
}

// CompleteStop finishes a stop. Stops complete strictly in sequence order; a
// dropoff records the driver-claimed weight and opens a pending delivery. When
// the last stop closes the trip enters the odometer gate.
func (c *Coordinator) CompleteStop(actorID, stopID int64, actualKg float64) (*store.TripStop, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	s, err := c.db.GetStop(stopID)
	if err != nil {
		return nil, notFoundErr("stop %d not found", stopID)
	}
	t, err := c.db.GetTrip(s.TripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", s.TripID)
	}
	if t.DriverID != actorID {
		return nil, authErr("not_driver", "trip %d belongs to driver %d", t.ID, t.DriverID)
	}
	if t.Status != TripInProgress {
		return nil, c.tripConflict(t.ID, "complete a stop on")
	}
	if s.Completed {
		return nil, conflictErr("bad_status", "stop %d is already complete", stopID)
	}

	stops, err := c.db.ListTripStops(t.ID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list stops of trip %d: %w", t.ID, err)
	}
	lastOpen := true
	for _, other := range stops {
		if other.ID == s.ID || other.Completed {
			continue
		}
		if other.Seq < s.Seq {
			return nil, conflictErr("stop_out_of_order", "stop %d cannot complete before stop %d", s.Seq, other.Seq)
		}
		lastOpen = false
	}

	var delivery *store.PendingDelivery
	if s.StopType == "dropoff" {
		if actualKg <= 0 {
			return nil, validationErr("bad_quantity", "a dropoff needs the delivered weight in kg")
		}
		if t.RequestID != nil {
			delivery = &store.PendingDelivery{TripID: t.ID, StopID: &s.ID, DestLocationID: s.LocationID, ClaimedKg: actualKg}
		}
	}

	if err := c.db.CompleteStop(s, &actualKg, lastOpen, delivery); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, conflictErr("bad_status", "stop %d moved under the caller", stopID)
		}
		return nil, fmt.Errorf("workflow: complete stop %d: %w", stopID, err)
	}
	log.Printf("workflow: trip %d stop %d complete", t.ID, s.Seq)
	c.emitter.EmitTripChanged(t.ID, t.Status, fmt.Sprintf("stop %d complete", s.Seq))
	if delivery != nil {
		c.emitter.EmitDeliveryChanged(delivery.ID, t.ID, DeliveryPending, fmt.Sprintf("driver claims %.1f kg", actualKg))
		c.notifyDestManagers(delivery)
	}
	if lastOpen {
		c.emitter.EmitTripChanged(t.ID, TripAwaitingKm, "all stops complete, awaiting closing km")
	}
	return c.db.GetStop(stopID)
}

// CompleteTrip ends the cargo phase of a trip planned without explicit stops.
// The driver claims the delivered weight, opening the pending delivery, and
// the trip enters the odometer gate.
func (c *Coordinator) CompleteTrip(actorID, tripID int64, claimedKg, costs float64, notes string) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", tripID)
	}
	if t.DriverID != actorID {
		return nil, authErr("not_driver", "trip %d belongs to driver %d", tripID, t.DriverID)
	}
	stops, err := c.db.ListTripStops(tripID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list stops of trip %d: %w", tripID, err)
	}
	for _, s := range stops {
		if !s.Completed {
			return nil, conflictErr("stop_out_of_order", "stop %d is still open", s.Seq)
		}
	}

	var delivery *store.PendingDelivery
	if t.RequestID != nil && len(stops) == 0 {
		if claimedKg <= 0 {
			return nil, validationErr("bad_quantity", "completing a delivery trip needs the delivered weight in kg")
		}
		delivery = &store.PendingDelivery{TripID: t.ID, DestLocationID: t.DestLocationID, ClaimedKg: claimedKg}
	}

	if err := c.db.CompleteTrip(tripID, costs, notes, delivery); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, c.tripConflict(tripID, "complete")
		}
		return nil, fmt.Errorf("workflow: complete trip %d: %w", tripID, err)
	}
	log.Printf("workflow: trip %d cargo complete, awaiting closing km", tripID)
	c.emitter.EmitTripChanged(tripID, TripAwaitingKm, "cargo delivered, awaiting closing km")
	if delivery != nil {
		c.emitter.EmitDeliveryChanged(delivery.ID, tripID, DeliveryPending, fmt.Sprintf("driver claims %.1f kg", claimedKg))
		c.notifyDestManagers(delivery)
	}
	return c.db.GetTrip(tripID)
}

// SubmitKm closes the odometer gate. The closing reading must not regress
// below the opening reading nor exceed it by more than MaxTripDistanceKm.
func (c *Coordinator) SubmitKm(actorID, tripID, closingKm int64) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", tripID)
	}
	if t.DriverID != actorID {
		return nil, authErr("not_driver", "trip %d belongs to driver %d", tripID, t.DriverID)
	}
	if t.OdometerStart == nil {
		return nil, c.tripConflict(tripID, "submit km for")
	}
	if closingKm < *t.OdometerStart {
		return nil, validationErr("odometer_regression", "closing reading %d is below opening reading %d", closingKm, *t.OdometerStart)
	}
	if closingKm-*t.OdometerStart > MaxTripDistanceKm {
		return nil, validationErr("distance_exceeded", "trip distance %d km exceeds the %d km limit", closingKm-*t.OdometerStart, MaxTripDistanceKm)
	}

	if err := c.db.SubmitKm(t, closingKm); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, c.tripConflict(tripID, "submit km for")
		}
		return nil, fmt.Errorf("workflow: submit km for trip %d: %w", tripID, err)
	}
	log.Printf("workflow: trip %d completed at %d km, vehicle %d released", tripID, closingKm, t.VehicleID)
	c.emitter.EmitTripChanged(tripID, TripCompleted, fmt.Sprintf("closed at %d km", closingKm))
	c.emitter.EmitVehicleChanged(t.VehicleID, true, closingKm)
	return c.db.GetTrip(tripID)
}

// CorrectKm rewrites the closing reading of a completed trip. Requires a
// reason; the correction is journaled with the acting user.
func (c *Coordinator) CorrectKm(actorID, tripID, newKm int64, reason string) (*store.Trip, error) {
	role, err := c.requireRole(actorID, RoleManager, RoleVehicleManager)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "a km correction requires a reason")
	}
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", tripID)
	}
	if t.Status != TripCompleted || t.OdometerEnd == nil {
		return nil, c.tripConflict(tripID, "correct km for")
	}
	if t.OdometerStart != nil {
		if newKm < *t.OdometerStart {
			return nil, validationErr("odometer_regression", "corrected reading %d is below opening reading %d", newKm, *t.OdometerStart)
		}
		if newKm-*t.OdometerStart > MaxTripDistanceKm {
			return nil, validationErr("distance_exceeded", "corrected distance %d km exceeds the %d km limit", newKm-*t.OdometerStart, MaxTripDistanceKm)
		}
	}

	actor := fmt.Sprintf("%s:%d", role, actorID)
	if err := c.db.CorrectKm(t, *t.OdometerEnd, newKm, reason, actor); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, conflictErr("bad_status", "trip %d's reading moved under the caller", tripID)
		}
		return nil, fmt.Errorf("workflow: correct km for trip %d: %w", tripID, err)
	}
	log.Printf("workflow: trip %d km corrected %d -> %d by %s", tripID, *t.OdometerEnd, newKm, actor)
	v, verr := c.db.GetVehicle(t.VehicleID)
	if verr == nil {
		c.emitter.EmitVehicleChanged(t.VehicleID, v.Available(), v.KilometersTraveled)
	}
	c.emitter.EmitTripChanged(tripID, TripCompleted, fmt.Sprintf("km corrected to %d: %s", newKm, reason))
	return c.db.GetTrip(tripID)
}

// CancelTrip aborts a planned or running trip, releases the vehicle, and
// rewinds the owning request or loan. Once any dropoff stop has completed the
// cargo is claimed and the trip can no longer cancel; its deliveries settle
// through confirm or reject.
func (c *Coordinator) CancelTrip(actorID, tripID int64, reason string) (*store.Trip, error) {
	role, err := c.requireRole(actorID, RoleDriver, RoleManager)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "cancellation requires a reason")
	}
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", tripID)
	}
	if role == RoleDriver && t.DriverID != actorID {
		return nil, authErr("not_driver", "trip %d belongs to driver %d", tripID, t.DriverID)
	}

	if err := c.db.CancelTrip(t, reason); err != nil {
		switch {
		case errors.Is(err, store.ErrCargoClaimed):
			return nil, conflictErr("cargo_claimed", "trip %d has delivered cargo; settle its deliveries instead of cancelling", tripID)
		case errors.Is(err, store.ErrStaleStatus):
			return nil, c.tripConflict(tripID, "cancel")
		}
		return nil, fmt.Errorf("workflow: cancel trip %d: %w", tripID, err)
	}
	log.Printf("workflow: trip %d cancelled: %s", tripID, reason)
	c.emitter.EmitTripChanged(tripID, TripCancelled, reason)
	if t.Status == TripInProgress {
		v, verr := c.db.GetVehicle(t.VehicleID)
		if verr == nil {
			c.emitter.EmitVehicleChanged(t.VehicleID, true, v.KilometersTraveled)
		}
	}
	if t.RequestID != nil {
		c.emitter.EmitRequestChanged(*t.RequestID, RequestAccepted, fmt.Sprintf("trip %d cancelled", tripID))
	}
	if t.LoanID != nil {
		l, lerr := c.db.GetLoan(*t.LoanID)
		if lerr == nil {
			c.emitter.EmitLoanChanged(l.ID, l.Status, fmt.Sprintf("%s trip %d cancelled", t.LoanLeg, tripID))
		}
	}
	return c.db.GetTrip(tripID)
}

// tripConflict re-reads a trip after a failed guard and names the state that
// beat the caller.
func (c *Coordinator) tripConflict(tripID int64, verb string) error {
	t, err := c.db.GetTrip(tripID)
	if err != nil {
		return notFoundErr("trip %d not found", tripID)
	}
	return conflictErr("bad_status", "cannot %s trip %d in status %s", verb, tripID, t.Status)
}

// notifyDestManagers tells the receiving shop's managers a delivery awaits
// confirmation.
func (c *Coordinator) notifyDestManagers(d *store.PendingDelivery) {
	c.notify.NotifyRole(RoleManager, "delivery_pending",
		fmt.Sprintf("delivery %d at location %d awaits confirmation (%.1f kg claimed)", d.ID, d.DestLocationID, d.ClaimedKg))
}
