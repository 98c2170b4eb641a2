package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Loan struct {
	ID                 int64      `json:"id"`
	BorrowerLocationID int64      `json:"borrower_location_id"`
	LenderLocationID   int64      `json:"lender_location_id"`
	RequestedBy        int64      `json:"requested_by"`
	RequestedBags      int64      `json:"requested_bags"`
	ApprovedBags       *int64     `json:"approved_bags,omitempty"`
	Status             string     `json:"status"`
	EstimatedReturn    *time.Time `json:"estimated_return,omitempty"`
	RejectReason       string     `json:"reject_reason"`
	CancelReason       string     `json:"cancel_reason"`
	PickupDriverID     *int64     `json:"pickup_driver_id,omitempty"`
	ReturnDriverID     *int64     `json:"return_driver_id,omitempty"`
	PickupTripID       *int64     `json:"pickup_trip_id,omitempty"`
	ReturnTripID       *int64     `json:"return_trip_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

// Bags is the quantity that actually moves: the approved amount once the
// lender has decided, the requested amount before that.
func (l *Loan) Bags() int64 {
	if l.ApprovedBags != nil {
		return *l.ApprovedBags
	}
	return l.RequestedBags
}

type LoanHistory struct {
	ID        int64     `json:"id"`
	LoanID    int64     `json:"loan_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const loanSelectCols = `id, borrower_location_id, lender_location_id, requested_by, requested_bags, approved_bags, status, estimated_return, reject_reason, cancel_reason, pickup_driver_id, return_driver_id, pickup_trip_id, return_trip_id, created_at, updated_at, closed_at`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	var l Loan
	var approvedBags, pickupDriverID, returnDriverID, pickupTripID, returnTripID sql.NullInt64
	var estimatedReturn, createdAt, updatedAt, closedAt any

	err := row.Scan(&l.ID, &l.BorrowerLocationID, &l.LenderLocationID, &l.RequestedBy,
		&l.RequestedBags, &approvedBags, &l.Status, &estimatedReturn,
		&l.RejectReason, &l.CancelReason, &pickupDriverID, &returnDriverID,
		&pickupTripID, &returnTripID, &createdAt, &updatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if approvedBags.Valid {
		l.ApprovedBags = &approvedBags.Int64
	}
	if pickupDriverID.Valid {
		l.PickupDriverID = &pickupDriverID.Int64
	}
	if returnDriverID.Valid {
		l.ReturnDriverID = &returnDriverID.Int64
	}
	if pickupTripID.Valid {
		l.PickupTripID = &pickupTripID.Int64
	}
	if returnTripID.Valid {
		l.ReturnTripID = &returnTripID.Int64
	}
	l.EstimatedReturn = parseTimePtr(estimatedReturn)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	l.ClosedAt = parseTimePtr(closedAt)
	return &l, nil
}

func (db *DB) CreateLoan(l *Loan) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO loans (borrower_location_id, lender_location_id, requested_by, requested_bags, status, estimated_return) VALUES (?, ?, ?, ?, ?, ?)`),
		l.BorrowerLocationID, l.LenderLocationID, l.RequestedBy, l.RequestedBags, l.Status, timeArg(l.EstimatedReturn))
	if err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	l.ID = id
	return db.AppendLoanHistory(id, l.Status, "loan requested")
}

func (db *DB) GetLoan(id int64) (*Loan, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM loans WHERE id=?`, loanSelectCols)), id)
	return scanLoan(row)
}

func (db *DB) ListLoans(status string, locationID int64, limit int) ([]*Loan, error) {
	query := fmt.Sprintf(`SELECT %s FROM loans`, loanSelectCols)
	var args []any
	switch {
	case status != "" && locationID != 0:
		query += ` WHERE status=? AND (borrower_location_id=? OR lender_location_id=?)`
		args = append(args, status, locationID, locationID)
	case status != "":
		query += ` WHERE status=?`
		args = append(args, status)
	case locationID != 0:
		query += ` WHERE borrower_location_id=? OR lender_location_id=?`
		args = append(args, locationID, locationID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (db *DB) AppendLoanHistory(loanID int64, status, detail string) error {
	_, err := db.Exec(db.Q(`INSERT INTO loan_history (loan_id, status, detail) VALUES (?, ?, ?)`),
		loanID, status, detail)
	return err
}

func (db *DB) ListLoanHistory(loanID int64) ([]*LoanHistory, error) {
	rows, err := db.Query(db.Q(`SELECT id, loan_id, status, detail, created_at FROM loan_history WHERE loan_id=? ORDER BY id`), loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*LoanHistory
	for rows.Next() {
		var h LoanHistory
		var createdAt any
		if err := rows.Scan(&h.ID, &h.LoanID, &h.Status, &h.Detail, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(createdAt)
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// AdvanceLoan is the guarded status transition shared by the loan operations.
func (db *DB) AdvanceLoan(loanID int64, from, to, detail string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE loans SET status=?, updated_at=datetime('now','localtime') WHERE id=? AND status=?`),
		to, loanID, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, to, detail)
}

func (db *DB) AcceptLoan(loanID, approvedBags int64) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE loans SET status='accepted', approved_bags=?, updated_at=datetime('now','localtime') WHERE id=? AND status='pending'`),
		approvedBags, loanID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, "accepted", fmt.Sprintf("approved %d bags", approvedBags))
}

// RejectLoan is valid only before the borrower has confirmed.
func (db *DB) RejectLoan(loanID int64, reason string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE loans SET status='rejected', reject_reason=?, closed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status IN ('pending','accepted')`),
		reason, loanID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, "rejected", reason)
}

func (db *DB) CancelLoan(loanID int64, reason string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE loans SET status='cancelled', cancel_reason=?, closed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status IN ('pending','accepted','confirmed','pickup_assigned')`),
		reason, loanID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, "cancelled", reason)
}

// AssignLoanDriver sets the driver for a leg and advances the status.
func (db *DB) AssignLoanDriver(loanID, driverID int64, leg, from, to string) (bool, error) {
	driverCol := "pickup_driver_id"
	if leg == "return" {
		driverCol = "return_driver_id"
	}
	result, err := db.Exec(db.Q(fmt.Sprintf(`UPDATE loans SET status=?, %s=?, updated_at=datetime('now','localtime') WHERE id=? AND status=?`, driverCol)),
		to, driverID, loanID, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, to, fmt.Sprintf("%s assigned to driver %d", leg, driverID))
}

// CloseLoan finishes the return leg and closes the loan.
func (db *DB) CloseLoan(loanID int64, from string) (bool, error) {
	result, err := db.Exec(db.Q(`UPDATE loans SET status='closed', closed_at=datetime('now','localtime'), updated_at=datetime('now','localtime') WHERE id=? AND status=?`),
		loanID, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	return true, db.AppendLoanHistory(loanID, "closed", "return confirmed, loan closed")
}
