package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Guard failures surfaced from composite transactions. The workflow layer
// re-reads state to build an actionable error for the caller.
var (
	ErrStaleStatus  = errors.New("stale status")
	ErrVehicleBusy  = errors.New("vehicle busy")
	ErrCargoClaimed = errors.New("cargo claimed")
)

type Trip struct {
	ID               int64      `json:"id"`
	VehicleID        int64      `json:"vehicle_id"`
	DriverID         int64      `json:"driver_id"`
	OriginSupplierID *int64     `json:"origin_supplier_id,omitempty"`
	OriginLocationID *int64     `json:"origin_location_id,omitempty"`
	DestLocationID   int64      `json:"dest_location_id"`
	RequestID        *int64     `json:"request_id,omitempty"`
	LoanID           *int64     `json:"loan_id,omitempty"`
	LoanLeg          string     `json:"loan_leg,omitempty"` // "pickup" or "return" when set
	Status           string     `json:"status"`
	OdometerStart    *int64     `json:"odometer_start,omitempty"`
	OdometerEnd      *int64     `json:"odometer_end,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	Costs            float64    `json:"costs"`
	Notes            string     `json:"notes"`
	CancelReason     string     `json:"cancel_reason"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type TripStop struct {
	ID          int64      `json:"id"`
	TripID      int64      `json:"trip_id"`
	Seq         int64      `json:"seq"`
	StopType    string     `json:"stop_type"` // "pickup" or "dropoff"
	LocationID  int64      `json:"location_id"`
	PlannedBags int64      `json:"planned_bags"`
	ActualKg    *float64   `json:"actual_kg,omitempty"`
	Completed   bool       `json:"completed"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type TripHistory struct {
	ID        int64     `json:"id"`
	TripID    int64     `json:"trip_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const tripSelectCols = `id, vehicle_id, driver_id, origin_supplier_id, origin_location_id, dest_location_id, request_id, loan_id, loan_leg, status, odometer_start, odometer_end, estimated_arrival, costs, notes, cancel_reason, started_at, completed_at, created_at, updated_at`

func scanTrip(row interface{ Scan(...any) error }) (*Trip, error) {
	var t Trip
	var originSupplierID, originLocationID, requestID, loanID, odoStart, odoEnd sql.NullInt64
	var eta, startedAt, completedAt, createdAt, updatedAt any

	err := row.Scan(&t.ID, &t.VehicleID, &t.DriverID, &originSupplierID, &originLocationID,
		&t.DestLocationID, &requestID, &loanID, &t.LoanLeg, &t.Status,
		&odoStart, &odoEnd, &eta, &t.Costs, &t.Notes, &t.CancelReason,
		&startedAt, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if originSupplierID.Valid {
		t.OriginSupplierID = &originSupplierID.Int64
	}
	if originLocationID.Valid {
		t.OriginLocationID = &originLocationID.Int64
	}
	if requestID.Valid {
		t.RequestID = &requestID.Int64
	}
	if loanID.Valid {
		t.LoanID = &loanID.Int64
	}
	if odoStart.Valid {
		t.OdometerStart = &odoStart.Int64
	}
	if odoEnd.Valid {
		t.OdometerEnd = &odoEnd.Int64
	}
	t.EstimatedArrival = parseTimePtr(eta)
	t.StartedAt = parseTimePtr(startedAt)
	t.CompletedAt = parseTimePtr(completedAt)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func (db *DB) GetTrip(id int64) (*Trip, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM trips WHERE id=?`, tripSelectCols)), id)
	return scanTrip(row)
}

func (db *DB) ListTrips(status string, vehicleID int64, limit int) ([]*Trip, error) {
	query := fmt.Sprintf(`SELECT %s FROM trips`, tripSelectCols)
	var args []any
	switch {
	case status != "" && vehicleID != 0:
		query += ` WHERE status=? AND vehicle_id=?`
		args = append(args, status, vehicleID)
	case status != "":
		query += ` WHERE status=?`
		args = append(args, status)
	case vehicleID != 0:
		query += ` WHERE vehicle_id=?`
		args = append(args, vehicleID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (db *DB) AppendTripHistory(tripID int64, status, detail string) error {
	_, err := db.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, ?, ?)`),
		tripID, status, detail)
	return err
}

func (db *DB) ListTripHistory(tripID int64) ([]*TripHistory, error) {
	rows, err := db.Query(db.Q(`SELECT id, trip_id, status, detail, created_at FROM trip_history WHERE trip_id=? ORDER BY id`), tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*TripHistory
	for rows.Next() {
		var h TripHistory
		var createdAt any
		if err := rows.Scan(&h.ID, &h.TripID, &h.Status, &h.Detail, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(createdAt)
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

func (db *DB) GetStop(id int64) (*TripStop, error) {
	row := db.QueryRow(db.Q(`SELECT id, trip_id, seq, stop_type, location_id, planned_bags, actual_kg, completed, arrived_at, completed_at FROM trip_stops WHERE id=?`), id)
	return scanStop(row)
}

func scanStop(row interface{ Scan(...any) error }) (*TripStop, error) {
	var s TripStop
	var actualKg sql.NullFloat64
	var completed int
	var arrivedAt, completedAt any
	err := row.Scan(&s.ID, &s.TripID, &s.Seq, &s.StopType, &s.LocationID, &s.PlannedBags, &actualKg, &completed, &arrivedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	s.Completed = completed != 0
	if actualKg.Valid {
		s.ActualKg = &actualKg.Float64
	}
	s.ArrivedAt = parseTimePtr(arrivedAt)
	s.CompletedAt = parseTimePtr(completedAt)
	return &s, nil
}

func (db *DB) ListTripStops(tripID int64) ([]*TripStop, error) {
	rows, err := db.Query(db.Q(`SELECT id, trip_id, seq, stop_type, location_id, planned_bags, actual_kg, completed, arrived_at, completed_at FROM trip_stops WHERE trip_id=? ORDER BY seq`), tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stops []*TripStop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (db *DB) MarkStopArrived(stopID int64) error {
	_, err := db.Exec(db.Q(`UPDATE trip_stops SET arrived_at=datetime('now','localtime') WHERE id=? AND arrived_at IS NULL`), stopID)
	return err
}

// CreateTripForRequest creates a planned trip and advances its request from
// fromStatus to trip_created in one transaction. Returns ErrStaleStatus when
// the request guard fails (the request moved under the caller).
func (db *DB) CreateTripForRequest(t *Trip, stops []*TripStop, fromStatus string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := db.txInsertTrip(tx, t, stops); err != nil {
		return err
	}

	result, err := tx.Exec(db.Q(`UPDATE requests SET status='trip_created', trip_id=?, updated_at=datetime('now','localtime') WHERE id=? AND status=? AND accepted_by=?`),
		t.ID, *t.RequestID, fromStatus, t.DriverID)
	if err != nil {
		return fmt.Errorf("advance request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, 'trip_created', ?)`),
		*t.RequestID, fmt.Sprintf("trip %d created", t.ID)); err != nil {
		return err
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'planned', 'trip created')`), t.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTripForRemainder creates a planned follow-up trip against a partially
// fulfilled request, reclaiming the request for the new driver and advancing
// it to trip_created in one transaction. Returns ErrStaleStatus when the
// request is no longer partially_fulfilled.
func (db *DB) CreateTripForRemainder(t *Trip, stops []*TripStop) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := db.txInsertTrip(tx, t, stops); err != nil {
		return err
	}

	result, err := tx.Exec(db.Q(`UPDATE requests SET status='trip_created', accepted_by=?, accepted_at=datetime('now','localtime'), trip_id=?, updated_at=datetime('now','localtime') WHERE id=? AND status='partially_fulfilled'`),
		t.DriverID, t.ID, *t.RequestID)
	if err != nil {
		return fmt.Errorf("reclaim remainder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, 'trip_created', ?)`),
		*t.RequestID, fmt.Sprintf("remainder reclaimed by driver %d, trip %d created", t.DriverID, t.ID)); err != nil {
		return err
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'planned', 'remainder trip created')`), t.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateLoanLegTrip creates a planned trip for a loan leg and advances the
// loan status in the same transaction. The assigned-driver guard keeps a
// different driver from hijacking the assignment.
func (db *DB) CreateLoanLegTrip(t *Trip, fromStatus, toStatus string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := db.txInsertTrip(tx, t, nil); err != nil {
		return err
	}

	tripCol := "pickup_trip_id"
	driverCol := "pickup_driver_id"
	if t.LoanLeg == "return" {
		tripCol = "return_trip_id"
		driverCol = "return_driver_id"
	}
	result, err := tx.Exec(db.Q(fmt.Sprintf(`UPDATE loans SET status=?, %s=?, updated_at=datetime('now','localtime') WHERE id=? AND status=? AND %s=?`, tripCol, driverCol)),
		toStatus, t.ID, *t.LoanID, fromStatus, t.DriverID)
	if err != nil {
		return fmt.Errorf("advance loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO loan_history (loan_id, status, detail) VALUES (?, ?, ?)`),
		*t.LoanID, toStatus, fmt.Sprintf("%s trip %d created", t.LoanLeg, t.ID)); err != nil {
		return err
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'planned', 'trip created')`), t.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) txInsertTrip(tx *sql.Tx, t *Trip, stops []*TripStop) error {
	id, err := txInsertReturningID(tx, db.driver,
		db.Q(`INSERT INTO trips (vehicle_id, driver_id, origin_supplier_id, origin_location_id, dest_location_id, request_id, loan_id, loan_leg, status, estimated_arrival, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.VehicleID, t.DriverID, int64Arg(t.OriginSupplierID), int64Arg(t.OriginLocationID),
		t.DestLocationID, int64Arg(t.RequestID), int64Arg(t.LoanID), t.LoanLeg, t.Status,
		timeArg(t.EstimatedArrival), t.Notes)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	t.ID = id
	for _, s := range stops {
		s.TripID = id
		stopID, err := txInsertReturningID(tx, db.driver,
			db.Q(`INSERT INTO trip_stops (trip_id, seq, stop_type, location_id, planned_bags) VALUES (?, ?, ?, ?, ?)`),
			s.TripID, s.Seq, s.StopType, s.LocationID, s.PlannedBags)
		if err != nil {
			return fmt.Errorf("insert stop: %w", err)
		}
		s.ID = stopID
	}
	return nil
}

// StartTrip claims the vehicle and moves the trip to in_progress in one
// transaction. From here the vehicle stays unavailable until SubmitKm
// succeeds or the trip is cancelled.
func (db *DB) StartTrip(t *Trip, odometerStart int64, eta *time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE trips SET status='in_progress', odometer_start=?, estimated_arrival=COALESCE(?, estimated_arrival), started_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status='planned'`),
		odometerStart, timeArg(eta), t.ID)
	if err != nil {
		return fmt.Errorf("start trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	claimed, err := db.txClaimVehicle(tx, t.VehicleID, t.ID)
	if err != nil {
		return fmt.Errorf("claim vehicle: %w", err)
	}
	if !claimed {
		return ErrVehicleBusy
	}

	if t.RequestID != nil {
		result, err = tx.Exec(db.Q(`UPDATE requests SET status='in_delivery', updated_at=datetime('now','localtime') WHERE id=? AND status='trip_created'`),
			*t.RequestID)
		if err != nil {
			return fmt.Errorf("advance request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStaleStatus
		}
		if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, 'in_delivery', ?)`),
			*t.RequestID, fmt.Sprintf("trip %d started", t.ID)); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'in_progress', ?)`),
		t.ID, fmt.Sprintf("started at odometer %d", odometerStart)); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteStop marks a stop done and, when it is the last open stop, moves
// the trip to awaiting_km. For dropoff stops the caller passes a delivery
// record to create in the same transaction.
func (db *DB) CompleteStop(stop *TripStop, actualKg *float64, lastOpen bool, delivery *PendingDelivery) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var kg any
	if actualKg != nil {
		kg = *actualKg
	}
	result, err := tx.Exec(db.Q(`UPDATE trip_stops SET completed=1, actual_kg=?, completed_at=datetime('now','localtime') WHERE id=? AND completed=0`),
		kg, stop.ID)
	if err != nil {
		return fmt.Errorf("complete stop: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	if delivery != nil {
		if err := db.txInsertDelivery(tx, delivery); err != nil {
			return err
		}
	}

	if lastOpen {
		result, err = tx.Exec(db.Q(`UPDATE trips SET status='awaiting_km', updated_at=datetime('now','localtime') WHERE id=? AND status='in_progress'`),
			stop.TripID)
		if err != nil {
			return fmt.Errorf("trip awaiting km: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStaleStatus
		}
		if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'awaiting_km', 'all stops complete')`),
			stop.TripID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CompleteTrip ends the cargo phase of a single-leg trip, creating its
// pending delivery and entering the awaiting_km gate.
func (db *DB) CompleteTrip(tripID int64, costs float64, notes string, delivery *PendingDelivery) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE trips SET status='awaiting_km', costs=?, notes=?, updated_at=datetime('now','localtime') WHERE id=? AND status='in_progress'`),
		costs, notes, tripID)
	if err != nil {
		return fmt.Errorf("complete trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}
	if delivery != nil {
		if err := db.txInsertDelivery(tx, delivery); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'awaiting_km', 'cargo delivered, awaiting closing km')`),
		tripID); err != nil {
		return err
	}
	return tx.Commit()
}

// SubmitKm closes the odometer gate: records the closing reading, completes
// the trip, releases the vehicle and advances its watermark, atomically.
func (db *DB) SubmitKm(t *Trip, closingKm int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE trips SET status='completed', odometer_end=?, completed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status='awaiting_km'`),
		closingKm, t.ID)
	if err != nil {
		return fmt.Errorf("submit km: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	if err := db.txReleaseVehicle(tx, t.VehicleID, t.ID); err != nil {
		return fmt.Errorf("release vehicle: %w", err)
	}
	if err := db.txAdvanceVehicleKm(tx, t.VehicleID, closingKm); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'completed', ?)`),
		t.ID, fmt.Sprintf("closing km %d", closingKm)); err != nil {
		return err
	}
	return tx.Commit()
}

// CorrectKm rewrites a completed trip's closing reading and, when that trip
// holds the vehicle's current watermark, moves the watermark with it.
func (db *DB) CorrectKm(t *Trip, oldKm, newKm int64, reason, actor string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE trips SET odometer_end=?, updated_at=datetime('now','localtime') WHERE id=? AND status='completed' AND odometer_end=?`),
		newKm, t.ID, oldKm)
	if err != nil {
		return fmt.Errorf("correct km: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	if _, err := tx.Exec(db.Q(`UPDATE vehicles SET kilometers_traveled=?, updated_at=datetime('now','localtime') WHERE id=? AND kilometers_traveled=?`),
		newKm, t.VehicleID, oldKm); err != nil {
		return fmt.Errorf("move watermark: %w", err)
	}

	if _, err := tx.Exec(db.Q(`INSERT INTO km_corrections (trip_id, vehicle_id, old_km, new_km, reason, actor) VALUES (?, ?, ?, ?, ?, ?)`),
		t.ID, t.VehicleID, oldKm, newKm, reason, actor); err != nil {
		return fmt.Errorf("record correction: %w", err)
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'completed', ?)`),
		t.ID, fmt.Sprintf("km corrected %d -> %d: %s", oldKm, newKm, reason)); err != nil {
		return err
	}
	return tx.Commit()
}

// CancelTrip cancels a planned or in-progress trip, releases the vehicle,
// and rewinds the owning request or loan so it can be re-fulfilled. A trip
// with any completed dropoff has claimed cargo and can no longer cancel; its
// pending deliveries must settle through confirm or reject instead.
func (db *DB) CancelTrip(t *Trip, reason string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var claimed int64
	if err := tx.QueryRow(db.Q(`SELECT COUNT(*) FROM trip_stops WHERE trip_id=? AND stop_type='dropoff' AND completed=1`), t.ID).Scan(&claimed); err != nil {
		return fmt.Errorf("check cargo: %w", err)
	}
	if claimed > 0 {
		return ErrCargoClaimed
	}

	result, err := tx.Exec(db.Q(`UPDATE trips SET status='cancelled', cancel_reason=?, completed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status IN ('planned','in_progress')`),
		reason, t.ID)
	if err != nil {
		return fmt.Errorf("cancel trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	if err := db.txReleaseVehicle(tx, t.VehicleID, t.ID); err != nil {
		return fmt.Errorf("release vehicle: %w", err)
	}

	if t.RequestID != nil {
		if _, err := tx.Exec(db.Q(`UPDATE requests SET status='accepted', trip_id=NULL, updated_at=datetime('now','localtime') WHERE id=? AND status IN ('trip_created','in_delivery')`),
			*t.RequestID); err != nil {
			return fmt.Errorf("rewind request: %w", err)
		}
		if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, 'accepted', ?)`),
			*t.RequestID, fmt.Sprintf("trip %d cancelled: %s", t.ID, reason)); err != nil {
			return err
		}
	}
	if t.LoanID != nil {
		rewind := "confirmed"
		tripCol := "pickup_trip_id"
		fromStatus := "pickup_accepted"
		if t.LoanLeg == "return" {
			rewind = "return_initiated"
			tripCol = "return_trip_id"
			fromStatus = "return_accepted"
		}
		if _, err := tx.Exec(db.Q(fmt.Sprintf(`UPDATE loans SET status=?, %s=NULL, updated_at=datetime('now','localtime') WHERE id=? AND status=?`, tripCol)),
			rewind, *t.LoanID, fromStatus); err != nil {
			return fmt.Errorf("rewind loan: %w", err)
		}
		if _, err := tx.Exec(db.Q(`INSERT INTO loan_history (loan_id, status, detail) VALUES (?, ?, ?)`),
			*t.LoanID, rewind, fmt.Sprintf("%s trip %d cancelled: %s", t.LoanLeg, t.ID, reason)); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO trip_history (trip_id, status, detail) VALUES (?, 'cancelled', ?)`),
		t.ID, reason); err != nil {
		return err
	}
	return tx.Commit()
}
