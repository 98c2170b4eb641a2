package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Vehicle struct {
	ID                 int64     `json:"id"`
	Registration       string    `json:"registration"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	KilometersTraveled int64     `json:"kilometers_traveled"`
	ActiveTripID       *int64    `json:"active_trip_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Available reports whether the vehicle has no non-terminal trip claiming it.
func (v *Vehicle) Available() bool { return v.ActiveTripID == nil }

const vehicleSelectCols = `id, registration, make, model, kilometers_traveled, active_trip_id, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (*Vehicle, error) {
	var v Vehicle
	var activeTripID sql.NullInt64
	var createdAt, updatedAt any
	err := row.Scan(&v.ID, &v.Registration, &v.Make, &v.Model, &v.KilometersTraveled, &activeTripID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if activeTripID.Valid {
		v.ActiveTripID = &activeTripID.Int64
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return &v, nil
}

func (db *DB) CreateVehicle(v *Vehicle) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO vehicles (registration, make, model, kilometers_traveled) VALUES (?, ?, ?, ?)`),
		v.Registration, v.Make, v.Model, v.KilometersTraveled)
	if err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	v.ID = id
	return nil
}

func (db *DB) GetVehicle(id int64) (*Vehicle, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM vehicles WHERE id=?`, vehicleSelectCols)), id)
	return scanVehicle(row)
}

func (db *DB) ListVehicles() ([]*Vehicle, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM vehicles ORDER BY registration`, vehicleSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (db *DB) ListAvailableVehicles() ([]*Vehicle, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM vehicles WHERE active_trip_id IS NULL ORDER BY registration`, vehicleSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// txClaimVehicle marks a vehicle as claimed by a trip inside the caller's
// transaction. Returns false if the vehicle is already claimed; this is the
// mutual-exclusion guard that keeps a vehicle on at most one non-terminal
// trip.
func (db *DB) txClaimVehicle(tx *sql.Tx, vehicleID, tripID int64) (bool, error) {
	result, err := tx.Exec(db.Q(`UPDATE vehicles SET active_trip_id=?, updated_at=datetime('now','localtime') WHERE id=? AND active_trip_id IS NULL`),
		tripID, vehicleID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n == 1, err
}

// txReleaseVehicle clears a trip's claim. The claim guard makes the release a
// no-op if some other trip holds the vehicle.
func (db *DB) txReleaseVehicle(tx *sql.Tx, vehicleID, tripID int64) error {
	_, err := tx.Exec(db.Q(`UPDATE vehicles SET active_trip_id=NULL, updated_at=datetime('now','localtime') WHERE id=? AND active_trip_id=?`),
		vehicleID, tripID)
	return err
}

// txAdvanceVehicleKm raises the odometer watermark. The guard keeps the
// watermark monotone even if readings arrive out of order.
func (db *DB) txAdvanceVehicleKm(tx *sql.Tx, vehicleID, km int64) error {
	_, err := tx.Exec(db.Q(`UPDATE vehicles SET kilometers_traveled=?, updated_at=datetime('now','localtime') WHERE id=? AND kilometers_traveled<=?`),
		km, vehicleID, km)
	return err
}
