package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PendingDelivery is the reconciliation record between cargo physically
// arriving and a manager confirming the driver-claimed quantity.
type PendingDelivery struct {
	ID             int64      `json:"id"`
	TripID         int64      `json:"trip_id"`
	StopID         *int64     `json:"stop_id,omitempty"`
	DestLocationID int64      `json:"dest_location_id"`
	ClaimedKg      float64    `json:"claimed_kg"`
	Status         string     `json:"status"`
	ConfirmedKg    *float64   `json:"confirmed_kg,omitempty"`
	Notes          string     `json:"notes"`
	ConfirmedBy    *int64     `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

const deliverySelectCols = `id, trip_id, stop_id, dest_location_id, claimed_kg, status, confirmed_kg, notes, confirmed_by, confirmed_at, created_at`

func scanDelivery(row interface{ Scan(...any) error }) (*PendingDelivery, error) {
	var d PendingDelivery
	var stopID, confirmedBy sql.NullInt64
	var confirmedKg sql.NullFloat64
	var confirmedAt, createdAt any
	err := row.Scan(&d.ID, &d.TripID, &stopID, &d.DestLocationID, &d.ClaimedKg, &d.Status,
		&confirmedKg, &d.Notes, &confirmedBy, &confirmedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	if stopID.Valid {
		d.StopID = &stopID.Int64
	}
	if confirmedBy.Valid {
		d.ConfirmedBy = &confirmedBy.Int64
	}
	if confirmedKg.Valid {
		d.ConfirmedKg = &confirmedKg.Float64
	}
	d.ConfirmedAt = parseTimePtr(confirmedAt)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (db *DB) txInsertDelivery(tx *sql.Tx, d *PendingDelivery) error {
	id, err := txInsertReturningID(tx, db.driver,
		db.Q(`INSERT INTO deliveries (trip_id, stop_id, dest_location_id, claimed_kg, status) VALUES (?, ?, ?, ?, 'pending')`),
		d.TripID, int64Arg(d.StopID), d.DestLocationID, d.ClaimedKg)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	d.ID = id
	d.Status = "pending"
	return nil
}

func (db *DB) GetDelivery(id int64) (*PendingDelivery, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM deliveries WHERE id=?`, deliverySelectCols)), id)
	return scanDelivery(row)
}

func (db *DB) GetPendingDeliveryByTrip(tripID int64) (*PendingDelivery, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM deliveries WHERE trip_id=? AND status='pending' ORDER BY id DESC LIMIT 1`, deliverySelectCols)), tripID)
	return scanDelivery(row)
}

func (db *DB) ListDeliveries(status string, limit int) ([]*PendingDelivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries`, deliverySelectCols)
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deliveries []*PendingDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// ConfirmDelivery settles a pending delivery and applies the confirmed
// quantity onto its request in one transaction. The pending-status guard is
// the exactly-once commit point: a second confirmation attempt fails the
// guard and never re-applies quantities.
func (db *DB) ConfirmDelivery(d *PendingDelivery, confirmerID int64, confirmedKg float64, notes string, req *StockRequest, newFulfilled int64, newStatus string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE deliveries SET status='confirmed', confirmed_kg=?, notes=?, confirmed_by=?, confirmed_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		confirmedKg, notes, confirmerID, d.ID)
	if err != nil {
		return fmt.Errorf("confirm delivery: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	closed := ""
	if newStatus == "fulfilled" {
		closed = ", closed_at=datetime('now','localtime')"
	}
	result, err = tx.Exec(db.Q(fmt.Sprintf(`UPDATE requests SET fulfilled_bags=?, status=?%s, updated_at=datetime('now','localtime') WHERE id=? AND fulfilled_bags=? AND status IN ('in_delivery','partially_fulfilled')`, closed)),
		newFulfilled, newStatus, req.ID, req.FulfilledBags)
	if err != nil {
		return fmt.Errorf("reconcile request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, ?, ?)`),
		req.ID, newStatus, fmt.Sprintf("delivery %d confirmed: %d of %d bags", d.ID, newFulfilled, req.QuantityBags)); err != nil {
		return err
	}
	return tx.Commit()
}

// RejectDelivery settles a pending delivery with zero stock movement and
// leaves the request re-fulfillable for its full remainder.
func (db *DB) RejectDelivery(d *PendingDelivery, confirmerID int64, reason string, req *StockRequest) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(db.Q(`UPDATE deliveries SET status='rejected', notes=?, confirmed_by=?, confirmed_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		reason, confirmerID, d.ID)
	if err != nil {
		return fmt.Errorf("reject delivery: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleStatus
	}

	if req != nil {
		result, err = tx.Exec(db.Q(`UPDATE requests SET status='partially_fulfilled', updated_at=datetime('now','localtime') WHERE id=? AND status IN ('in_delivery','partially_fulfilled')`),
			req.ID)
		if err != nil {
			return fmt.Errorf("rewind request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStaleStatus
		}
		if _, err := tx.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, 'partially_fulfilled', ?)`),
			req.ID, fmt.Sprintf("delivery %d rejected: %s", d.ID, reason)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
