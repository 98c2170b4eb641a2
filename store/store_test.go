package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := openSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedBase creates the minimal entities most tests need: a shop, a warehouse,
// a requester, a driver, and an idle vehicle.
func seedBase(t *testing.T, db *DB) (shop, warehouse *Location, requester, driver *User, vehicle *Vehicle) {
	t.Helper()
	shop = &Location{Name: "shop-a", Kind: "shop"}
	if err := db.CreateLocation(shop); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	warehouse = &Location{Name: "central", Kind: "warehouse"}
	if err := db.CreateLocation(warehouse); err != nil {
		t.Fatalf("create warehouse: %v", err)
	}
	requester = &User{Username: "ana", PasswordHash: "x", Role: "requester", LocationID: &shop.ID}
	if err := db.CreateUser(requester); err != nil {
		t.Fatalf("create requester: %v", err)
	}
	driver = &User{Username: "bojan", PasswordHash: "x", Role: "driver"}
	if err := db.CreateUser(driver); err != nil {
		t.Fatalf("create driver: %v", err)
	}
	vehicle = &Vehicle{Registration: "LJ-123-AB", Make: "MAN", Model: "TGE", KilometersTraveled: 50000}
	if err := db.CreateVehicle(vehicle); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return
}

func seedRequest(t *testing.T, db *DB, locationID, requesterID, bags int64) *StockRequest {
	t.Helper()
	r := &StockRequest{LocationID: locationID, RequestedBy: requesterID, QuantityBags: bags, Urgency: "normal", Status: "pending"}
	if err := db.CreateRequest(r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func TestAcceptRequestSingleWinner(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, _ := seedBase(t, db)
	other := &User{Username: "cene", PasswordHash: "x", Role: "driver"}
	if err := db.CreateUser(other); err != nil {
		t.Fatal(err)
	}
	r := seedRequest(t, db, shop.ID, requester.ID, 20)

	ok, err := db.AcceptRequest(r.ID, driver.ID)
	if err != nil || !ok {
		t.Fatalf("first accept: ok=%v err=%v", ok, err)
	}
	ok, err = db.AcceptRequest(r.ID, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second accept should lose the compare-and-set")
	}

	got, err := db.GetRequest(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "accepted" || got.AcceptedBy == nil || *got.AcceptedBy != driver.ID {
		t.Fatalf("unexpected request after accept: %+v", got)
	}
}

func TestAcceptClearsOpenProposal(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, _ := seedBase(t, db)
	proposer := &User{Username: "dmitri", PasswordHash: "x", Role: "driver"}
	if err := db.CreateUser(proposer); err != nil {
		t.Fatal(err)
	}
	r := seedRequest(t, db, shop.ID, requester.ID, 10)

	when := time.Now().Add(24 * time.Hour)
	ok, err := db.SetRequestProposal(r.ID, proposer.ID, when, "truck in service", "")
	if err != nil || !ok {
		t.Fatalf("set proposal: ok=%v err=%v", ok, err)
	}
	// Only one proposal may be open.
	ok, err = db.SetRequestProposal(r.ID, driver.ID, when, "also busy", "")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second proposal should be refused while one is open")
	}

	ok, err = db.AcceptRequest(r.ID, driver.ID)
	if err != nil || !ok {
		t.Fatalf("accept over open proposal: ok=%v err=%v", ok, err)
	}
	got, err := db.GetRequest(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasOpenProposal() {
		t.Fatal("winning accept must clear the open proposal")
	}
}

func TestAcceptProposalCommitsTime(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, _ := seedBase(t, db)
	r := seedRequest(t, db, shop.ID, requester.ID, 10)

	when := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	if ok, err := db.SetRequestProposal(r.ID, driver.ID, when, "earliest slot", "notes"); err != nil || !ok {
		t.Fatalf("set proposal: ok=%v err=%v", ok, err)
	}
	if ok, err := db.AcceptRequestProposal(r.ID); err != nil || !ok {
		t.Fatalf("accept proposal: ok=%v err=%v", ok, err)
	}
	got, err := db.GetRequest(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "accepted" || got.AcceptedBy == nil || *got.AcceptedBy != driver.ID {
		t.Fatalf("proposal accept should accept the proposer: %+v", got)
	}
	if got.RequestedTime == nil || !got.RequestedTime.Equal(when) {
		t.Fatalf("requested time not committed: %v", got.RequestedTime)
	}
}

func TestTripLifecycleOdometerGate(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, vehicle := seedBase(t, db)
	r := seedRequest(t, db, shop.ID, requester.ID, 20)
	if ok, err := db.AcceptRequest(r.ID, driver.ID); err != nil || !ok {
		t.Fatalf("accept: ok=%v err=%v", ok, err)
	}

	trip := &Trip{VehicleID: vehicle.ID, DriverID: driver.ID, DestLocationID: shop.ID, RequestID: &r.ID, Status: "planned"}
	if err := db.CreateTripForRequest(trip, nil, "accepted"); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	if err := db.StartTrip(trip, 50000, nil); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	v, err := db.GetVehicle(vehicle.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Available() {
		t.Fatal("vehicle must be claimed while the trip is in progress")
	}

	// Second trip on the same vehicle cannot start.
	trip2 := &Trip{VehicleID: vehicle.ID, DriverID: driver.ID, DestLocationID: shop.ID, Status: "planned"}
	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.txInsertTrip(tx, trip2, nil); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := db.StartTrip(trip2, 50000, nil); !errors.Is(err, ErrVehicleBusy) {
		t.Fatalf("expected ErrVehicleBusy, got %v", err)
	}

	delivery := &PendingDelivery{TripID: trip.ID, DestLocationID: shop.ID, ClaimedKg: 200}
	if err := db.CompleteTrip(trip.ID, 42.5, "smooth run", delivery); err != nil {
		t.Fatalf("complete trip: %v", err)
	}
	got, err := db.GetTrip(trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "awaiting_km" {
		t.Fatalf("trip should wait for closing km, got %s", got.Status)
	}
	// Vehicle stays claimed through the gate.
	v, _ = db.GetVehicle(vehicle.ID)
	if v.Available() {
		t.Fatal("vehicle must stay claimed until km submitted")
	}

	if err := db.SubmitKm(trip, 50180); err != nil {
		t.Fatalf("submit km: %v", err)
	}
	v, _ = db.GetVehicle(vehicle.ID)
	if !v.Available() {
		t.Fatal("vehicle must be released after km submitted")
	}
	if v.KilometersTraveled != 50180 {
		t.Fatalf("watermark not advanced: %d", v.KilometersTraveled)
	}

	// Gate is one-shot.
	if err := db.SubmitKm(trip, 50200); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("second submit should fail the guard, got %v", err)
	}
}

func TestCancelTripRewindsRequest(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, vehicle := seedBase(t, db)
	r := seedRequest(t, db, shop.ID, requester.ID, 15)
	if ok, _ := db.AcceptRequest(r.ID, driver.ID); !ok {
		t.Fatal("accept failed")
	}
	trip := &Trip{VehicleID: vehicle.ID, DriverID: driver.ID, DestLocationID: shop.ID, RequestID: &r.ID, Status: "planned"}
	if err := db.CreateTripForRequest(trip, nil, "accepted"); err != nil {
		t.Fatal(err)
	}
	if err := db.StartTrip(trip, 50000, nil); err != nil {
		t.Fatal(err)
	}
	if err := db.CancelTrip(trip, "breakdown"); err != nil {
		t.Fatalf("cancel trip: %v", err)
	}

	got, _ := db.GetRequest(r.ID)
	if got.Status != "accepted" || got.TripID != nil {
		t.Fatalf("request should rewind to accepted with no trip: %+v", got)
	}
	v, _ := db.GetVehicle(vehicle.ID)
	if !v.Available() {
		t.Fatal("cancel must release the vehicle")
	}
}

func TestConfirmDeliveryIdempotent(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, vehicle := seedBase(t, db)
	manager := &User{Username: "mira", PasswordHash: "x", Role: "manager", LocationID: &shop.ID}
	if err := db.CreateUser(manager); err != nil {
		t.Fatal(err)
	}
	r := seedRequest(t, db, shop.ID, requester.ID, 20)
	db.AcceptRequest(r.ID, driver.ID)
	trip := &Trip{VehicleID: vehicle.ID, DriverID: driver.ID, DestLocationID: shop.ID, RequestID: &r.ID, Status: "planned"}
	if err := db.CreateTripForRequest(trip, nil, "accepted"); err != nil {
		t.Fatal(err)
	}
	if err := db.StartTrip(trip, 50000, nil); err != nil {
		t.Fatal(err)
	}
	delivery := &PendingDelivery{TripID: trip.ID, DestLocationID: shop.ID, ClaimedKg: 200}
	if err := db.CompleteTrip(trip.ID, 0, "", delivery); err != nil {
		t.Fatal(err)
	}

	req, _ := db.GetRequest(r.ID)
	if err := db.ConfirmDelivery(delivery, manager.ID, 200, "", req, 20, "fulfilled"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Second confirmation attempt must fail the pending guard.
	req, _ = db.GetRequest(r.ID)
	if err := db.ConfirmDelivery(delivery, manager.ID, 200, "", req, 40, "fulfilled"); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus on double confirm, got %v", err)
	}

	got, _ := db.GetRequest(r.ID)
	if got.Status != "fulfilled" || got.FulfilledBags != 20 || got.ClosedAt == nil {
		t.Fatalf("request not reconciled once: %+v", got)
	}
}

func TestStockDeltaRejectsOverdraft(t *testing.T) {
	db := testDB(t)
	shop, _, _, _, _ := seedBase(t, db)

	if err := db.ApplyStockDelta(shop.ID, 30, "receipt", "delivery", 1); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if err := db.ApplyStockDelta(shop.ID, -50, "issue", "loan", 1); err == nil {
		t.Fatal("overdraft must be refused")
	}
	bags, err := db.GetStockLevel(shop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if bags != 30 {
		t.Fatalf("balance changed by refused issue: %d", bags)
	}
	moves, err := db.ListStockMovements(shop.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(moves))
	}
}

func TestLoanTransitions(t *testing.T) {
	db := testDB(t)
	shop, warehouse, requester, driver, _ := seedBase(t, db)

	l := &Loan{BorrowerLocationID: shop.ID, LenderLocationID: warehouse.ID, RequestedBy: requester.ID, RequestedBags: 12, Status: "pending"}
	if err := db.CreateLoan(l); err != nil {
		t.Fatal(err)
	}
	if ok, err := db.AcceptLoan(l.ID, 10); err != nil || !ok {
		t.Fatalf("accept loan: ok=%v err=%v", ok, err)
	}
	// Reject after accept is still allowed; after confirm it is not.
	if ok, _ := db.AdvanceLoan(l.ID, "accepted", "confirmed", "borrower confirmed"); !ok {
		t.Fatal("confirm failed")
	}
	if ok, _ := db.RejectLoan(l.ID, "changed mind"); ok {
		t.Fatal("reject after confirm should fail the guard")
	}
	if ok, _ := db.AssignLoanDriver(l.ID, driver.ID, "pickup", "confirmed", "pickup_assigned"); !ok {
		t.Fatal("assign pickup failed")
	}

	got, err := db.GetLoan(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "pickup_assigned" || got.PickupDriverID == nil || *got.PickupDriverID != driver.ID {
		t.Fatalf("unexpected loan: %+v", got)
	}
	if got.Bags() != 10 {
		t.Fatalf("approved quantity should win: %d", got.Bags())
	}

	hist, err := db.ListLoanHistory(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 4 {
		t.Fatalf("expected 4 history rows, got %d", len(hist))
	}
}

func TestOutboxDrainOrder(t *testing.T) {
	db := testDB(t)
	if err := db.EnqueueOutbox("depotflow.events", []byte(`{"a":1}`), "request_changed", "", "kafka"); err != nil {
		t.Fatal(err)
	}
	if err := db.EnqueueOutbox("depotflow/notices/3", []byte(`{"b":2}`), "notice", "3", "mqtt"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Transport != "kafka" || pending[1].Transport != "mqtt" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
	if err := db.MarkOutboxSent(pending[0].ID); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.PendingOutbox(10)
	if len(pending) != 1 || pending[0].Transport != "mqtt" {
		t.Fatalf("sent message still pending: %+v", pending)
	}
}

func TestExpireRequestLosesToAccept(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, _ := seedBase(t, db)
	r := seedRequest(t, db, shop.ID, requester.ID, 5)
	if ok, _ := db.AcceptRequest(r.ID, driver.ID); !ok {
		t.Fatal("accept failed")
	}
	ok, err := db.ExpireRequest(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("sweep must not expire an accepted request")
	}
}

func TestKmCorrectionMovesWatermark(t *testing.T) {
	db := testDB(t)
	shop, _, requester, driver, vehicle := seedBase(t, db)
	r := seedRequest(t, db, shop.ID, requester.ID, 5)
	db.AcceptRequest(r.ID, driver.ID)
	trip := &Trip{VehicleID: vehicle.ID, DriverID: driver.ID, DestLocationID: shop.ID, RequestID: &r.ID, Status: "planned"}
	if err := db.CreateTripForRequest(trip, nil, "accepted"); err != nil {
		t.Fatal(err)
	}
	if err := db.StartTrip(trip, 50000, nil); err != nil {
		t.Fatal(err)
	}
	if err := db.CompleteTrip(trip.ID, 0, "", nil); err != nil {
		t.Fatal(err)
	}
	if err := db.SubmitKm(trip, 50100); err != nil {
		t.Fatal(err)
	}

	if err := db.CorrectKm(trip, 50100, 50150, "misread dial", "mira"); err != nil {
		t.Fatalf("correct km: %v", err)
	}
	v, _ := db.GetVehicle(vehicle.ID)
	if v.KilometersTraveled != 50150 {
		t.Fatalf("watermark should follow correction: %d", v.KilometersTraveled)
	}
	// Stale old reading fails the guard.
	if err := db.CorrectKm(trip, 50100, 50160, "again", "mira"); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
}
