package workflow

import "testing"

func TestConfirmDeliveryFulfillsRequest(t *testing.T) {
	f := newFixture(t)
	r, trip, d := f.throughDelivery(t, 20, 200)

	_, err := f.c.ConfirmDelivery(f.driver.ID, d.ID, 200, "")
	wantErr(t, err, KindAuthorization, "wrong_role")

	got, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 200, "all there")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != DeliveryConfirmed || got.ConfirmedKg == nil || *got.ConfirmedKg != 200 {
		t.Fatalf("unexpected delivery: %+v", got)
	}
	req, _ := f.db.GetRequest(r.ID)
	if req.Status != RequestFulfilled || req.FulfilledBags != 20 {
		t.Fatalf("request not reconciled: %+v", req)
	}
	bags, _ := f.db.GetStockLevel(f.shop.ID)
	if bags != 20 {
		t.Fatalf("shop stock should be credited 20 bags, got %d", bags)
	}
	if _, err := f.c.SubmitKm(f.driver.ID, trip.ID, 50100); err != nil {
		t.Fatalf("km gate should be independent of confirmation: %v", err)
	}
}

func TestConfirmDeliveryIdempotent(t *testing.T) {
	f := newFixture(t)
	_, _, d := f.throughDelivery(t, 20, 200)

	first, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 200, "")
	if err != nil {
		t.Fatal(err)
	}
	// Second confirmation returns the recorded outcome, moves nothing.
	second, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 500, "ignored")
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if second.ConfirmedKg == nil || *second.ConfirmedKg != *first.ConfirmedKg {
		t.Fatalf("repeat confirm changed the record: %+v", second)
	}
	bags, _ := f.db.GetStockLevel(f.shop.ID)
	if bags != 20 {
		t.Fatalf("stock moved twice: %d", bags)
	}
	moves, _ := f.db.ListStockMovements(f.shop.ID, 10)
	if len(moves) != 1 {
		t.Fatalf("expected exactly one movement, got %d", len(moves))
	}

	_, err = f.c.RejectDelivery(f.manager.ID, d.ID, "changed mind")
	wantErr(t, err, KindConflict, "already_settled")
}

func TestShortDeliveryThenRemainder(t *testing.T) {
	f := newFixture(t)
	r, trip, d := f.throughDelivery(t, 20, 100)

	// Driver claims 100 kg; manager confirms only 100 kg = 10 bags.
	if _, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 100, "half load"); err != nil {
		t.Fatal(err)
	}
	req, _ := f.db.GetRequest(r.ID)
	if req.Status != RequestPartiallyFulfilled || req.RemainingBags() != 10 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if _, err := f.c.SubmitKm(f.driver.ID, trip.ID, 50080); err != nil {
		t.Fatal(err)
	}

	// A second trip carries the remainder.
	trip2, err := f.c.FulfillRemaining(f.driver2.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if err != nil {
		t.Fatalf("fulfill remaining: %v", err)
	}
	if _, err := f.c.StartTrip(f.driver2.ID, trip2.ID, 50080, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CompleteTrip(f.driver2.ID, trip2.ID, 100, 0, ""); err != nil {
		t.Fatal(err)
	}
	d2, err := f.db.GetPendingDeliveryByTrip(trip2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.ConfirmDelivery(f.manager.ID, d2.ID, 100, ""); err != nil {
		t.Fatal(err)
	}

	req, _ = f.db.GetRequest(r.ID)
	if req.Status != RequestFulfilled || req.FulfilledBags != 20 || req.ClosedAt == nil {
		t.Fatalf("request not fulfilled after remainder: %+v", req)
	}
	bags, _ := f.db.GetStockLevel(f.shop.ID)
	if bags != 20 {
		t.Fatalf("shop stock should total 20 bags, got %d", bags)
	}
}

func TestFulfillRemainingRejectedPlanLeavesRequestUntouched(t *testing.T) {
	f := newFixture(t)
	r, trip, d := f.throughDelivery(t, 20, 100)
	if _, err := f.c.ConfirmDelivery(f.manager.ID, d.ID, 100, "half load"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.SubmitKm(f.driver.ID, trip.ID, 50080); err != nil {
		t.Fatal(err)
	}

	// The follow-up plan names no origin, so it must be rejected outright.
	_, err := f.c.FulfillRemaining(f.driver2.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID})
	wantErr(t, err, KindValidation, "bad_origin")

	req, _ := f.db.GetRequest(r.ID)
	if req.Status != RequestPartiallyFulfilled {
		t.Fatalf("a rejected plan must not move the request: %s", req.Status)
	}
	if req.AcceptedBy == nil || *req.AcceptedBy != f.driver.ID {
		t.Fatalf("a rejected plan must not reassign the request: %+v", req)
	}

	// A corrected plan still goes through.
	trip2, err := f.c.FulfillRemaining(f.driver2.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if err != nil {
		t.Fatalf("fulfill remaining: %v", err)
	}
	req, _ = f.db.GetRequest(r.ID)
	if req.Status != RequestTripCreated || req.AcceptedBy == nil || *req.AcceptedBy != f.driver2.ID {
		t.Fatalf("remainder not reclaimed: %+v", req)
	}
	if req.TripID == nil || *req.TripID != trip2.ID {
		t.Fatalf("request not linked to the remainder trip: %+v", req)
	}
}

func TestRejectDeliveryKeepsRemainderOpen(t *testing.T) {
	f := newFixture(t)
	r, _, d := f.throughDelivery(t, 20, 200)

	_, err := f.c.RejectDelivery(f.manager.ID, d.ID, "")
	wantErr(t, err, KindValidation, "missing_reason")

	got, err := f.c.RejectDelivery(f.manager.ID, d.ID, "bags soaked")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != DeliveryRejected {
		t.Fatalf("unexpected delivery: %+v", got)
	}
	// Idempotent repeat.
	if _, err := f.c.RejectDelivery(f.manager.ID, d.ID, "again"); err != nil {
		t.Fatalf("repeat reject: %v", err)
	}

	req, _ := f.db.GetRequest(r.ID)
	if req.Status != RequestPartiallyFulfilled || req.RemainingBags() != 20 {
		t.Fatalf("request should stay open for the full remainder: %+v", req)
	}
	bags, _ := f.db.GetStockLevel(f.shop.ID)
	if bags != 0 {
		t.Fatalf("rejected delivery must not move stock: %d", bags)
	}
	moves, _ := f.db.ListStockMovements(f.shop.ID, 10)
	if len(moves) != 0 {
		t.Fatalf("expected no movements, got %d", len(moves))
	}
}
