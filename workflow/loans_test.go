package workflow

import "testing"

func seedStock(t *testing.T, f *fixture, locationID, bags int64) {
	t.Helper()
	if err := f.db.ApplyStockDelta(locationID, bags, "receipt", "seed", 0); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func TestLoanFullCycle(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, f.warehouse.ID, 50)

	l, err := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 12, nil)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}

	// Only the lender's manager may accept.
	_, err = f.c.AcceptLoan(f.manager.ID, l.ID, 10)
	wantErr(t, err, KindAuthorization, "wrong_location")
	if _, err := f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 10); err != nil {
		t.Fatalf("accept loan: %v", err)
	}
	if _, err := f.c.ConfirmLoan(f.requester.ID, l.ID); err != nil {
		t.Fatalf("confirm loan: %v", err)
	}
	if _, err := f.c.AssignPickup(f.lenderMgr.ID, l.ID, f.driver.ID); err != nil {
		t.Fatalf("assign pickup: %v", err)
	}

	// Only the assigned driver may take the leg.
	_, err = f.c.AcceptPickup(f.driver2.ID, l.ID, f.vehicle.ID)
	wantErr(t, err, KindAuthorization, "not_assignee")
	pickupTrip, err := f.c.AcceptPickup(f.driver.ID, l.ID, f.vehicle.ID)
	if err != nil {
		t.Fatalf("accept pickup: %v", err)
	}
	if pickupTrip.LoanLeg != "pickup" || pickupTrip.DestLocationID != f.shop.ID {
		t.Fatalf("unexpected pickup trip: %+v", pickupTrip)
	}

	if _, err := f.c.StartTrip(f.driver.ID, pickupTrip.ID, 50000, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.ConfirmCollection(f.lenderMgr.ID, l.ID); err != nil {
		t.Fatalf("confirm collection: %v", err)
	}
	if bags, _ := f.db.GetStockLevel(f.warehouse.ID); bags != 40 {
		t.Fatalf("lender should be debited to 40, got %d", bags)
	}

	if _, err := f.c.CompleteTrip(f.driver.ID, pickupTrip.ID, 0, 0, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.SubmitKm(f.driver.ID, pickupTrip.ID, 50060); err != nil {
		t.Fatal(err)
	}

	if _, err := f.c.ConfirmReceipt(f.requester.ID, l.ID); err != nil {
		t.Fatalf("confirm receipt: %v", err)
	}
	if bags, _ := f.db.GetStockLevel(f.shop.ID); bags != 10 {
		t.Fatalf("borrower should be credited 10, got %d", bags)
	}

	// Return leg.
	if _, err := f.c.InitiateReturn(f.requester.ID, l.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.AssignReturn(f.lenderMgr.ID, l.ID, f.driver2.ID); err != nil {
		t.Fatal(err)
	}
	returnTrip, err := f.c.AcceptReturn(f.driver2.ID, l.ID, f.vehicle.ID)
	if err != nil {
		t.Fatalf("accept return: %v", err)
	}
	if returnTrip.DestLocationID != f.warehouse.ID {
		t.Fatalf("return trip should head to the lender: %+v", returnTrip)
	}
	if _, err := f.c.StartTrip(f.driver2.ID, returnTrip.ID, 50060, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.CompleteTrip(f.driver2.ID, returnTrip.ID, 0, 0, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.SubmitKm(f.driver2.ID, returnTrip.ID, 50120); err != nil {
		t.Fatal(err)
	}

	got, err := f.c.ConfirmReturn(f.lenderMgr.ID, l.ID)
	if err != nil {
		t.Fatalf("confirm return: %v", err)
	}
	if got.Status != LoanClosed || got.ClosedAt == nil {
		t.Fatalf("loan should close: %+v", got)
	}
	if bags, _ := f.db.GetStockLevel(f.warehouse.ID); bags != 50 {
		t.Fatalf("lender balance should be restored to 50, got %d", bags)
	}
	if bags, _ := f.db.GetStockLevel(f.shop.ID); bags != 0 {
		t.Fatalf("borrower balance should return to 0, got %d", bags)
	}
}

func TestLoanValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.shop.ID, 10, nil)
	wantErr(t, err, KindValidation, "bad_location")

	_, err = f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 0, nil)
	wantErr(t, err, KindValidation, "bad_quantity")

	l, err := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 15)
	wantErr(t, err, KindValidation, "bad_quantity")
}

func TestLoanRejectWindowClosesOnConfirm(t *testing.T) {
	f := newFixture(t)
	l, _ := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 10)

	if _, err := f.c.ConfirmLoan(f.requester.ID, l.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.c.RejectLoan(f.lenderMgr.ID, l.ID, "cold feet")
	wantErr(t, err, KindConflict, "bad_status")
}

func TestAssignPickupNeedsDriverRole(t *testing.T) {
	f := newFixture(t)
	l, _ := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 10)
	f.c.ConfirmLoan(f.requester.ID, l.ID)

	_, err := f.c.AssignPickup(f.lenderMgr.ID, l.ID, f.manager.ID)
	wantErr(t, err, KindValidation, "wrong_role")
}

func TestCancelLoanBeforeCollection(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, f.warehouse.ID, 50)
	l, _ := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 10)
	f.c.ConfirmLoan(f.requester.ID, l.ID)
	f.c.AssignPickup(f.lenderMgr.ID, l.ID, f.driver.ID)

	got, err := f.c.CancelLoan(f.requester.ID, l.ID, "found stock elsewhere")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != LoanCancelled {
		t.Fatalf("unexpected loan: %+v", got)
	}
	if bags, _ := f.db.GetStockLevel(f.warehouse.ID); bags != 50 {
		t.Fatalf("cancel before collection must not move stock: %d", bags)
	}

	// Once the driver has accepted the leg, cancel is refused.
	l2, _ := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	f.c.AcceptLoan(f.lenderMgr.ID, l2.ID, 10)
	f.c.ConfirmLoan(f.requester.ID, l2.ID)
	f.c.AssignPickup(f.lenderMgr.ID, l2.ID, f.driver.ID)
	if _, err := f.c.AcceptPickup(f.driver.ID, l2.ID, f.vehicle.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.c.CancelLoan(f.requester.ID, l2.ID, "too late")
	wantErr(t, err, KindConflict, "bad_status")
}

func TestCancelPickupTripRewindsLoan(t *testing.T) {
	f := newFixture(t)
	l, _ := f.c.CreateLoan(f.requester.ID, f.shop.ID, f.warehouse.ID, 10, nil)
	f.c.AcceptLoan(f.lenderMgr.ID, l.ID, 10)
	f.c.ConfirmLoan(f.requester.ID, l.ID)
	f.c.AssignPickup(f.lenderMgr.ID, l.ID, f.driver.ID)
	trip, err := f.c.AcceptPickup(f.driver.ID, l.ID, f.vehicle.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.c.CancelTrip(f.driver.ID, trip.ID, "vehicle fault"); err != nil {
		t.Fatalf("cancel trip: %v", err)
	}
	got, _ := f.db.GetLoan(l.ID)
	if got.Status != LoanConfirmed || got.PickupTripID != nil {
		t.Fatalf("loan should rewind to confirmed with no pickup trip: %+v", got)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if !v.Available() {
		t.Fatal("vehicle should be free after cancel")
	}
}
