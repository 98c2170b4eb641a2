package store

import (
	"database/sql"
	"fmt"
	"time"
)

type StockRequest struct {
	ID             int64      `json:"id"`
	LocationID     int64      `json:"location_id"`
	RequestedBy    int64      `json:"requested_by"`
	QuantityBags   int64      `json:"quantity_bags"`
	FulfilledBags  int64      `json:"fulfilled_bags"`
	Urgency        string     `json:"urgency"`
	RequestedTime  *time.Time `json:"requested_time,omitempty"`
	Status         string     `json:"status"`
	AcceptedBy     *int64     `json:"accepted_by,omitempty"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	ProposedBy     *int64     `json:"proposed_by,omitempty"`
	ProposedTime   *time.Time `json:"proposed_time,omitempty"`
	ProposalReason string     `json:"proposal_reason"`
	ProposalNotes  string     `json:"proposal_notes"`
	TripID         *int64     `json:"trip_id,omitempty"`
	CancelReason   string     `json:"cancel_reason"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// RemainingBags is the still-unconfirmed portion of the requested quantity.
func (r *StockRequest) RemainingBags() int64 {
	rem := r.QuantityBags - r.FulfilledBags
	if rem < 0 {
		return 0
	}
	return rem
}

// HasOpenProposal reports whether a driver time proposal is awaiting a
// manager decision.
func (r *StockRequest) HasOpenProposal() bool { return r.ProposedBy != nil }

type RequestHistory struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const requestSelectCols = `id, location_id, requested_by, quantity_bags, fulfilled_bags, urgency, requested_time, status, accepted_by, accepted_at, proposed_by, proposed_time, proposal_reason, proposal_notes, trip_id, cancel_reason, created_at, updated_at, closed_at`

func scanRequest(row interface{ Scan(...any) error }) (*StockRequest, error) {
	var r StockRequest
	var acceptedBy, proposedBy, tripID sql.NullInt64
	var requestedTime, acceptedAt, proposedTime, createdAt, updatedAt, closedAt any

	err := row.Scan(&r.ID, &r.LocationID, &r.RequestedBy, &r.QuantityBags, &r.FulfilledBags,
		&r.Urgency, &requestedTime, &r.Status, &acceptedBy, &acceptedAt,
		&proposedBy, &proposedTime, &r.ProposalReason, &r.ProposalNotes,
		&tripID, &r.CancelReason, &createdAt, &updatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if acceptedBy.Valid {
		r.AcceptedBy = &acceptedBy.Int64
	}
	if proposedBy.Valid {
		r.ProposedBy = &proposedBy.Int64
	}
	if tripID.Valid {
		r.TripID = &tripID.Int64
	}
	r.RequestedTime = parseTimePtr(requestedTime)
	r.AcceptedAt = parseTimePtr(acceptedAt)
	r.ProposedTime = parseTimePtr(proposedTime)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	r.ClosedAt = parseTimePtr(closedAt)
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]*StockRequest, error) {
	var requests []*StockRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (db *DB) CreateRequest(r *StockRequest) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO requests (location_id, requested_by, quantity_bags, urgency, requested_time, status) VALUES (?, ?, ?, ?, ?, ?)`),
		r.LocationID, r.RequestedBy, r.QuantityBags, r.Urgency, timeArg(r.RequestedTime), r.Status)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	r.ID = id
	return db.AppendRequestHistory(id, r.Status, "request created")
}

func (db *DB) GetRequest(id int64) (*StockRequest, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM requests WHERE id=?`, requestSelectCols)), id)
	return scanRequest(row)
}

func (db *DB) ListRequests(status string, locationID int64, limit int) ([]*StockRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests`, requestSelectCols)
	var args []any
	switch {
	case status != "" && locationID != 0:
		query += ` WHERE status=? AND location_id=?`
		args = append(args, status, locationID)
	case status != "":
		query += ` WHERE status=?`
		args = append(args, status)
	case locationID != 0:
		query += ` WHERE location_id=?`
		args = append(args, locationID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (db *DB) AppendRequestHistory(requestID int64, status, detail string) error {
	_, err := db.Exec(db.Q(`INSERT INTO request_history (request_id, status, detail) VALUES (?, ?, ?)`),
		requestID, status, detail)
	return err
}

func (db *DB) ListRequestHistory(requestID int64) ([]*RequestHistory, error) {
	rows, err := db.Query(db.Q(`SELECT id, request_id, status, detail, created_at FROM request_history WHERE request_id=? ORDER BY id`), requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*RequestHistory
	for rows.Next() {
		var h RequestHistory
		var createdAt any
		if err := rows.Scan(&h.ID, &h.RequestID, &h.Status, &h.Detail, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(createdAt)
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// AcceptRequest is the compare-and-set for driver acceptance: exactly one of
// two concurrent calls flips pending to accepted; the loser sees false.
// Any open time proposal is cleared, since a plain accept beats negotiation.
func (db *DB) AcceptRequest(requestID, driverID int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET status='accepted', accepted_by=?, accepted_at=datetime('now','localtime'), proposed_by=NULL, proposed_time=NULL, proposal_reason='', proposal_notes='', updated_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		driverID, requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "accepted", fmt.Sprintf("accepted by driver %d", driverID))
}

// SetRequestProposal records a driver's counter-proposed delivery time. The
// request stays pending (and acceptable by other drivers) while the proposal
// is open; only one proposal may be open at a time.
func (db *DB) SetRequestProposal(requestID, driverID int64, proposedTime time.Time, reason, notes string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET proposed_by=?, proposed_time=?, proposal_reason=?, proposal_notes=?, updated_at=datetime('now','localtime') WHERE id=? AND status='pending' AND proposed_by IS NULL`),
		driverID, proposedTime.Format(time.RFC3339), reason, notes, requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "pending", fmt.Sprintf("driver %d proposed %s", driverID, proposedTime.Format(time.RFC3339)))
}

// AcceptRequestProposal commits the proposed time as the requested time and
// accepts the proposing driver in one guarded update.
func (db *DB) AcceptRequestProposal(requestID int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET status='accepted', accepted_by=proposed_by, accepted_at=datetime('now','localtime'), requested_time=proposed_time, proposed_by=NULL, proposed_time=NULL, proposal_reason='', proposal_notes='', updated_at=datetime('now','localtime') WHERE id=? AND status='pending' AND proposed_by IS NOT NULL`),
		requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "accepted", "proposal accepted by manager")
}

// ClearRequestProposal declines an open proposal, returning the request to
// plain pending.
func (db *DB) ClearRequestProposal(requestID int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET proposed_by=NULL, proposed_time=NULL, proposal_reason='', proposal_notes='', updated_at=datetime('now','localtime') WHERE id=? AND status='pending' AND proposed_by IS NOT NULL`),
		requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "pending", "proposal declined by manager")
}

// CancelRequest closes the request and clears the acceptance and negotiation
// columns; accepted_by is only meaningful on a live accepted request.
func (db *DB) CancelRequest(requestID int64, reason string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET status='cancelled', cancel_reason=?, accepted_by=NULL, accepted_at=NULL, proposed_by=NULL, proposed_time=NULL, proposal_reason='', proposal_notes='', closed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status IN ('pending','accepted')`),
		reason, requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "cancelled", reason)
}

// MarkRequestUrgent flips urgency normal -> urgent. One-way; calling it on an
// already-urgent request affects nothing.
func (db *DB) MarkRequestUrgent(requestID int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET urgency='urgent', updated_at=datetime('now','localtime') WHERE id=? AND urgency='normal' AND status NOT IN ('fulfilled','cancelled','expired')`),
		requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "pending", "marked urgent")
}

// EditRequest updates the mutable fields of a still-pending request.
func (db *DB) EditRequest(requestID, quantityBags int64, urgency string, requestedTime *time.Time) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET quantity_bags=?, urgency=?, requested_time=?, updated_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		quantityBags, urgency, timeArg(requestedTime), requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n == 1, err
}

// ListExpirableRequests returns pending requests created before the cutoff.
func (db *DB) ListExpirableRequests(cutoff time.Time) ([]*StockRequest, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM requests WHERE status='pending' AND created_at < ?`, requestSelectCols)),
		cutoff.Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ExpireRequest moves a stale pending request to expired. Guarded so a
// concurrent accept beats the sweep.
func (db *DB) ExpireRequest(requestID int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE requests SET status='expired', closed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		requestID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendRequestHistory(requestID, "expired", "expired by background sweep")
}
