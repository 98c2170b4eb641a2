package workflow

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"depotflow/config"
	"depotflow/store"
)

// --- Mock emitter ---

type mockEmitter struct {
	requests   []emitEntity
	trips      []emitEntity
	loans      []emitEntity
	deliveries []emitEntity
	vehicles   []emitVehicle
}

type emitEntity struct {
	id     int64
	status string
}
type emitVehicle struct {
	id        int64
	available bool
	km        int64
}

func (m *mockEmitter) EmitRequestChanged(id int64, status, _ string) {
	m.requests = append(m.requests, emitEntity{id, status})
}
func (m *mockEmitter) EmitTripChanged(id int64, status, _ string) {
	m.trips = append(m.trips, emitEntity{id, status})
}
func (m *mockEmitter) EmitLoanChanged(id int64, status, _ string) {
	m.loans = append(m.loans, emitEntity{id, status})
}
func (m *mockEmitter) EmitDeliveryChanged(id, _ int64, status, _ string) {
	m.deliveries = append(m.deliveries, emitEntity{id, status})
}
func (m *mockEmitter) EmitVehicleChanged(id int64, available bool, km int64) {
	m.vehicles = append(m.vehicles, emitVehicle{id, available, km})
}

// --- Mock notifier ---

type mockNotifier struct {
	users []notice
	roles []notice
}

type notice struct {
	target string
	event  string
}

func (m *mockNotifier) NotifyUser(userID int64, event, _ string) {
	m.users = append(m.users, notice{fmt.Sprintf("user:%d", userID), event})
}
func (m *mockNotifier) NotifyRole(role, event, _ string) {
	m.roles = append(m.roles, notice{"role:" + role, event})
}

// --- Fixture ---

type fixture struct {
	c       *Coordinator
	db      *store.DB
	emitter *mockEmitter
	notices *mockNotifier

	shop      *store.Location
	warehouse *store.Location
	supplier  *store.Supplier

	requester *store.User
	driver    *store.User
	driver2   *store.User
	manager   *store.User
	lenderMgr *store.User

	vehicle *store.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, emitter: &mockEmitter{}, notices: &mockNotifier{}}
	f.c = NewCoordinator(db, f.emitter, NewStoreLedger(db), f.notices, NewStoreRoles(db))

	f.shop = &store.Location{Name: "shop-a", Kind: "shop"}
	f.warehouse = &store.Location{Name: "central", Kind: "warehouse"}
	for _, l := range []*store.Location{f.shop, f.warehouse} {
		if err := db.CreateLocation(l); err != nil {
			t.Fatalf("create location: %v", err)
		}
	}
	f.supplier = &store.Supplier{Name: "milltex"}
	if err := db.CreateSupplier(f.supplier); err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	f.requester = &store.User{Username: "ana", PasswordHash: "x", Role: RoleRequester, LocationID: &f.shop.ID}
	f.driver = &store.User{Username: "bojan", PasswordHash: "x", Role: RoleDriver}
	f.driver2 = &store.User{Username: "cene", PasswordHash: "x", Role: RoleDriver}
	f.manager = &store.User{Username: "mira", PasswordHash: "x", Role: RoleManager, LocationID: &f.shop.ID}
	f.lenderMgr = &store.User{Username: "vid", PasswordHash: "x", Role: RoleManager, LocationID: &f.warehouse.ID}
	for _, u := range []*store.User{f.requester, f.driver, f.driver2, f.manager, f.lenderMgr} {
		if err := db.CreateUser(u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	f.vehicle = &store.Vehicle{Registration: "LJ-123-AB", Make: "MAN", Model: "TGE", KilometersTraveled: 50000}
	if err := db.CreateVehicle(f.vehicle); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return f
}

// wantErr checks the workflow error taxonomy.
func wantErr(t *testing.T, err error, kind, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s error, got nil", kind, reason)
	}
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected workflow error, got %T: %v", err, err)
	}
	if werr.Kind != kind || werr.Reason != reason {
		t.Fatalf("expected %s/%s, got %s/%s (%s)", kind, reason, werr.Kind, werr.Reason, werr.Detail)
	}
}

// throughDelivery drives a request to the awaiting-confirmation point: trip
// created, started, completed with the given claimed weight.
func (f *fixture) throughDelivery(t *testing.T, bags int64, claimedKg float64) (*store.StockRequest, *store.Trip, *store.PendingDelivery) {
	t.Helper()
	r, err := f.c.CreateRequest(f.requester.ID, f.shop.ID, bags, UrgencyNormal, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := f.c.AcceptRequest(f.driver.ID, r.ID); err != nil {
		t.Fatalf("accept request: %v", err)
	}
	trip, err := f.c.CreateTrip(f.driver.ID, TripPlan{RequestID: r.ID, VehicleID: f.vehicle.ID, OriginSupplierID: &f.supplier.ID})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	v, _ := f.db.GetVehicle(f.vehicle.ID)
	if _, err := f.c.StartTrip(f.driver.ID, trip.ID, v.KilometersTraveled, nil); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if _, err := f.c.CompleteTrip(f.driver.ID, trip.ID, claimedKg, 12.5, ""); err != nil {
		t.Fatalf("complete trip: %v", err)
	}
	d, err := f.db.GetPendingDeliveryByTrip(trip.ID)
	if err != nil {
		t.Fatalf("pending delivery: %v", err)
	}
	return r, trip, d
}
