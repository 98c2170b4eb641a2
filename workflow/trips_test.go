package workflow

import (
	"testing"
)

func TestCreateTripGuards(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 20, UrgencyNormal, nil)

	_, err := f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	wantErr(t, err, KindConflict, "bad_status")

	if _, err := f.c.AcceptRequest(f.driver.ID, r.ID); err != nil {
		t.Fatal(err)
	}

	// Only the accepting driver may plan the trip.
	_, err = f.c.CreateTrip(f.driver2.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	wantErr(t, err, KindAuthorization, "not_acceptor")

	// Exactly one origin.
	_, err = f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID})
	wantErr(t, err, KindValidation, "bad_origin")
	_, err = f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID, OriginLocationID: &f.warehouse.ID})
	wantErr(t, err, KindValidation, "bad_origin")

	trip, err := f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if trip.Status != TripPlanned || trip.DestLocationID != f.shop.ID {
		t.Fatalf("unexpected trip: %+v", trip)
	}
	got, _ := f.db.GetRequest(r.ID)
	if got.Status != RequestTripCreated || got.TripID == nil || *got.TripID != trip.ID {
		t.Fatalf("request not advanced: %+v", got)
	}
}

func TestStartTripOdometerRegression(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	f.c.AcceptRequest(f.driver.ID, r.ID)
	trip, err := f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.c.StartTrip(f.driver.ID, trip.ID, 49000, nil)
	wantErr(t, err, KindValidation, "odometer_regression")

	if _, err := f.c.StartTrip(f.driver.ID, trip.ID, 50000, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(f.emitter.vehicles) == 0 || f.emitter.vehicles[len(f.emitter.vehicles)-1].available {
		t.Fatalf("vehicle claim not emitted: %+v", f.emitter.vehicles)
	}
}

func TestSubmitKmBounds(t *testing.T) {
	f := newFixture(t)
	_, trip, _ := f.throughDelivery(t, 10, 100)

	_, err := f.c.SubmitKm(f.driver.ID, trip.ID, 49999)
	wantErr(t, err, KindValidation, "odometer_regression")

	_, err = f.c.SubmitKm(f.driver.ID, trip.ID, 50000+MaxTripDistanceKm+1)
	wantErr(t, err, KindValidation, "distance_exceeded")

	got, err := f.c.SubmitKm(f.driver.ID, trip.ID, 50120)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != TripCompleted || got.OdometerEnd == nil || *got.OdometerEnd != 50120 {
		t.Fatalf("unexpected trip: %+v", got)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if !v.Available() || v.KilometersTraveled != 50120 {
		t.Fatalf("vehicle not released with watermark: %+v", v)
	}

	_, err = f.c.SubmitKm(f.driver.ID, trip.ID, 50130)
	wantErr(t, err, KindConflict, "bad_status")
}

func TestStopsCompleteInOrder(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 20, UrgencyNormal, nil)
	f.c.AcceptRequest(f.driver.ID, r.ID)
	trip, err := f.c.CreateTrip(f.driver.ID, TripPlan{
		RequestID:        r.ID,
		VehicleID:        f.vehicle.ID,
		OriginLocationID: &f.warehouse.ID,
		Stops: []StopPlan{
			{Seq: 1, StopType: "pickup", LocationID: f.warehouse.ID, PlannedBags: 20},
			{Seq: 2, StopType: "dropoff", LocationID: f.shop.ID, PlannedBags: 20},
		},
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if _, err := f.c.StartTrip(f.driver.ID, trip.ID, 50000, nil); err != nil {
		t.Fatal(err)
	}
	stops, err := f.db.ListTripStops(trip.ID)
	if err != nil || len(stops) != 2 {
		t.Fatalf("stops: %v %d", err, len(stops))
	}

	_, err = f.c.CompleteStop(f.driver.ID, stops[1].ID, 200)
	wantErr(t, err, KindConflict, "stop_out_of_order")

	if _, err := f.c.CompleteStop(f.driver.ID, stops[0].ID, 200); err != nil {
		t.Fatalf("complete pickup: %v", err)
	}
	if err := f.c.ArriveStop(f.driver.ID, stops[1].ID); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if _, err := f.c.CompleteStop(f.driver.ID, stops[1].ID, 200); err != nil {
		t.Fatalf("complete dropoff: %v", err)
	}

	got, _ := f.db.GetTrip(trip.ID)
	if got.Status != TripAwaitingKm {
		t.Fatalf("last stop should open the odometer gate: %s", got.Status)
	}
	d, err := f.db.GetPendingDeliveryByTrip(trip.ID)
	if err != nil {
		t.Fatalf("dropoff should create a pending delivery: %v", err)
	}
	if d.ClaimedKg != 200 || d.DestLocationID != f.shop.ID {
		t.Fatalf("unexpected delivery: %+v", d)
	}
}

func TestPlannedBagsCappedAtRemainder(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	f.c.AcceptRequest(f.driver.ID, r.ID)

	_, err := f.c.CreateTrip(f.driver.ID, TripPlan{
		RequestID:        r.ID,
		VehicleID:        f.vehicle.ID,
		OriginLocationID: &f.warehouse.ID,
		Stops:            []StopPlan{{Seq: 1, StopType: "dropoff", LocationID: f.shop.ID, PlannedBags: 15}},
	})
	wantErr(t, err, KindValidation, "bad_quantity")
}

func TestCorrectKmNeedsRoleAndReason(t *testing.T) {
	f := newFixture(t)
	_, trip, _ := f.throughDelivery(t, 10, 100)
	if _, err := f.c.SubmitKm(f.driver.ID, trip.ID, 50100); err != nil {
		t.Fatal(err)
	}

	_, err := f.c.CorrectKm(f.driver.ID, trip.ID, 50150, "misread dial")
	wantErr(t, err, KindAuthorization, "wrong_role")

	_, err = f.c.CorrectKm(f.manager.ID, trip.ID, 50150, "")
	wantErr(t, err, KindValidation, "missing_reason")

	_, err = f.c.CorrectKm(f.manager.ID, trip.ID, 49000, "typo")
	wantErr(t, err, KindValidation, "odometer_regression")

	got, err := f.c.CorrectKm(f.manager.ID, trip.ID, 50150, "misread dial")
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if got.OdometerEnd == nil || *got.OdometerEnd != 50150 {
		t.Fatalf("reading not corrected: %+v", got)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if v.KilometersTraveled != 50150 {
		t.Fatalf("watermark should follow the correction: %d", v.KilometersTraveled)
	}
}

func TestCancelTripRefusedAfterCargoClaimed(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 20, UrgencyNormal, nil)
	f.c.AcceptRequest(f.driver.ID, r.ID)
	trip, err := f.c.CreateTrip(f.driver.ID, TripPlan{
		RequestID:        r.ID,
		VehicleID:        f.vehicle.ID,
		OriginLocationID: &f.warehouse.ID,
		Stops: []StopPlan{
			{Seq: 1, StopType: "dropoff", LocationID: f.shop.ID, PlannedBags: 10},
			{Seq: 2, StopType: "dropoff", LocationID: f.shop.ID, PlannedBags: 10},
		},
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if _, err := f.c.StartTrip(f.driver.ID, trip.ID, 50000, nil); err != nil {
		t.Fatal(err)
	}
	stops, _ := f.db.ListTripStops(trip.ID)
	if _, err := f.c.CompleteStop(f.driver.ID, stops[0].ID, 100); err != nil {
		t.Fatalf("complete first dropoff: %v", err)
	}

	// Cargo left the truck at stop 1; the trip can no longer cancel.
	_, err = f.c.CancelTrip(f.driver.ID, trip.ID, "road closed")
	wantErr(t, err, KindConflict, "cargo_claimed")

	got, _ := f.db.GetTrip(trip.ID)
	if got.Status != TripInProgress {
		t.Fatalf("refused cancel must not move the trip: %s", got.Status)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if v.Available() {
		t.Fatal("refused cancel must not release the vehicle")
	}

	// The delivered leg settles normally.
	d, err := f.db.GetPendingDeliveryByTrip(trip.ID)
	if err != nil {
		t.Fatalf("pending delivery: %v", err)
	}
	if _, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 100, ""); err != nil {
		t.Fatalf("confirm delivered leg: %v", err)
	}
}

func TestCancelTripFreesVehicleAndRewinds(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	f.c.AcceptRequest(f.driver.ID, r.ID)
	trip, _ := f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if _, err := f.c.StartTrip(f.driver.ID, trip.ID, 50000, nil); err != nil {
		t.Fatal(err)
	}

	_, err := f.c.CancelTrip(f.driver2.ID, trip.ID, "flat tire")
	wantErr(t, err, KindAuthorization, "not_driver")

	got, err := f.c.CancelTrip(f.driver.ID, trip.ID, "flat tire")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != TripCancelled {
		t.Fatalf("unexpected trip: %+v", got)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if !v.Available() {
		t.Fatal("cancel must release the vehicle")
	}
	req, _ := f.db.GetRequest(r.ID)
	if req.Status != RequestAccepted {
		t.Fatalf("request should rewind to accepted: %s", req.Status)
	}
}
