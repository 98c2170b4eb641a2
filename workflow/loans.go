package workflow

import (
	"errors"
	"fmt"
	"log"
	"time"

	"depotflow/store"
)

// CreateLoan opens a borrow request from one shop to another.
func (c *Coordinator) CreateLoan(actorID, borrowerLocationID, lenderLocationID, requestedBags int64, estimatedReturn *time.Time) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	if requestedBags <= 0 {
		return nil, validationErr("bad_quantity", "loan quantity must be positive, got %d", requestedBags)
	}
	if borrowerLocationID == lenderLocationID {
		return nil, validationErr("bad_location", "a location cannot borrow from itself")
	}
	if _, err := c.db.GetLocation(borrowerLocationID); err != nil {
		return nil, notFoundErr("location %d not found", borrowerLocationID)
	}
	if _, err := c.db.GetLocation(lenderLocationID); err != nil {
		return nil, notFoundErr("location %d not found", lenderLocationID)
	}

	l := &store.Loan{
		BorrowerLocationID: borrowerLocationID,
		LenderLocationID:   lenderLocationID,
		RequestedBy:        actorID,
		RequestedBags:      requestedBags,
		Status:             LoanPending,
		EstimatedReturn:    estimatedReturn,
	}
	if err := c.db.CreateLoan(l); err != nil {
		return nil, fmt.Errorf("workflow: create loan: %w", err)
	}
	log.Printf("workflow: loan %d created: location %d borrows %d bags from %d", l.ID, borrowerLocationID, requestedBags, lenderLocationID)
	c.emitter.EmitLoanChanged(l.ID, LoanPending, fmt.Sprintf("%d bags from location %d", requestedBags, lenderLocationID))
	c.notify.NotifyRole(RoleManager, "loan_requested", fmt.Sprintf("loan %d: location %d asks location %d for %d bags", l.ID, borrowerLocationID, lenderLocationID, requestedBags))
	return l, nil
}

// AcceptLoan is the lender's approval, possibly for fewer bags than asked.
func (c *Coordinator) AcceptLoan(actorID, loanID, approvedBags int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}
	if approvedBags <= 0 || approvedBags > l.RequestedBags {
		return nil, validationErr("bad_quantity", "approved quantity must be in 1..%d, got %d", l.RequestedBags, approvedBags)
	}
	if err := c.requireLocationManager(actorID, l.LenderLocationID); err != nil {
		return nil, err
	}

	ok, err := c.db.AcceptLoan(loanID, approvedBags)
	if err != nil {
		return nil, fmt.Errorf("workflow: accept loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "accept")
	}
	log.Printf("workflow: loan %d accepted for %d bags", loanID, approvedBags)
	c.emitter.EmitLoanChanged(loanID, LoanAccepted, fmt.Sprintf("approved %d bags", approvedBags))
	c.notify.NotifyUser(l.RequestedBy, "loan_accepted", fmt.Sprintf("loan %d approved for %d bags", loanID, approvedBags))
	return c.db.GetLoan(loanID)
}

// RejectLoan declines a loan before the borrower confirms it.
func (c *Coordinator) RejectLoan(actorID, loanID int64, reason string) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "rejecting a loan requires a reason")
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}
	if err := c.requireLocationManager(actorID, l.LenderLocationID); err != nil {
		return nil, err
	}

	ok, err := c.db.RejectLoan(loanID, reason)
	if err != nil {
		return nil, fmt.Errorf("workflow: reject loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "reject")
	}
	log.Printf("workflow: loan %d rejected: %s", loanID, reason)
	c.emitter.EmitLoanChanged(loanID, LoanRejected, reason)
	c.notify.NotifyUser(l.RequestedBy, "loan_rejected", fmt.Sprintf("loan %d rejected: %s", loanID, reason))
	return c.db.GetLoan(loanID)
}

// ConfirmLoan is the borrower's go-ahead on the approved quantity.
func (c *Coordinator) ConfirmLoan(actorID, loanID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	ok, err := c.db.AdvanceLoan(loanID, LoanAccepted, LoanConfirmed, "borrower confirmed")
	if err != nil {
		return nil, fmt.Errorf("workflow: confirm loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "confirm")
	}
	log.Printf("workflow: loan %d confirmed by borrower", loanID)
	c.emitter.EmitLoanChanged(loanID, LoanConfirmed, "borrower confirmed")
	c.notify.NotifyRole(RoleManager, "loan_confirmed", fmt.Sprintf("loan %d needs a pickup driver", loanID))
	return c.db.GetLoan(loanID)
}

// AssignPickup nominates the driver for the pickup leg.
func (c *Coordinator) AssignPickup(actorID, loanID, driverID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	if err := c.requireDriver(driverID); err != nil {
		return nil, err
	}
	ok, err := c.db.AssignLoanDriver(loanID, driverID, "pickup", LoanConfirmed, LoanPickupAssigned)
	if err != nil {
		return nil, fmt.Errorf("workflow: assign pickup for loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "assign a pickup driver to")
	}
	log.Printf("workflow: loan %d pickup assigned to driver %d", loanID, driverID)
	c.emitter.EmitLoanChanged(loanID, LoanPickupAssigned, fmt.Sprintf("pickup assigned to driver %d", driverID))
	c.notify.NotifyUser(driverID, "pickup_assigned", fmt.Sprintf("you are assigned the pickup leg of loan %d", loanID))
	return c.db.GetLoan(loanID)
}

// AcceptPickup is the assigned driver taking the pickup leg. A planned trip
// from the lender to the borrower is created in the same transaction.
func (c *Coordinator) AcceptPickup(actorID, loanID, vehicleID int64) (*store.Trip, error) {
	return c.acceptLoanLeg(actorID, loanID, vehicleID, "pickup", LoanPickupAssigned, LoanPickupAccepted)
}

// ConfirmCollection is the lender handing the goods over: the lender's stock
// is debited and the pickup trip may proceed.
func (c *Coordinator) ConfirmCollection(actorID, loanID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}
	if err := c.requireLocationManager(actorID, l.LenderLocationID); err != nil {
		return nil, err
	}

	ok, err := c.db.AdvanceLoan(loanID, LoanPickupAccepted, LoanCollected, fmt.Sprintf("%d bags handed to driver", l.Bags()))
	if err != nil {
		return nil, fmt.Errorf("workflow: confirm collection of loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "confirm collection of")
	}
	if err := c.ledger.Issue(l.LenderLocationID, l.Bags(), "loan", loanID); err != nil {
		log.Printf("workflow: stock debit for loan %d collection failed: %v", loanID, err)
	}
	log.Printf("workflow: loan %d collected, lender %d debited %d bags", loanID, l.LenderLocationID, l.Bags())
	c.emitter.EmitLoanChanged(loanID, LoanCollected, fmt.Sprintf("%d bags collected", l.Bags()))
	return c.db.GetLoan(loanID)
}

// ConfirmReceipt is the borrower receiving the goods: the borrower's stock is
// credited.
func (c *Coordinator) ConfirmReceipt(actorID, loanID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}

	ok, err := c.db.AdvanceLoan(loanID, LoanCollected, LoanReceived, fmt.Sprintf("%d bags received by borrower", l.Bags()))
	if err != nil {
		return nil, fmt.Errorf("workflow: confirm receipt of loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "confirm receipt of")
	}
	if err := c.ledger.Receive(l.BorrowerLocationID, l.Bags(), "loan", loanID); err != nil {
		log.Printf("workflow: stock credit for loan %d receipt failed: %v", loanID, err)
	}
	log.Printf("workflow: loan %d received, borrower %d credited %d bags", loanID, l.BorrowerLocationID, l.Bags())
	c.emitter.EmitLoanChanged(loanID, LoanReceived, fmt.Sprintf("%d bags received", l.Bags()))
	return c.db.GetLoan(loanID)
}

// InitiateReturn starts the give-back: the borrower declares the goods ready
// to travel home.
func (c *Coordinator) InitiateReturn(actorID, loanID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	ok, err := c.db.AdvanceLoan(loanID, LoanReceived, LoanReturnInitiated, "return initiated by borrower")
	if err != nil {
		return nil, fmt.Errorf("workflow: initiate return of loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "initiate the return of")
	}
	log.Printf("workflow: loan %d return initiated", loanID)
	c.emitter.EmitLoanChanged(loanID, LoanReturnInitiated, "return initiated")
	c.notify.NotifyRole(RoleManager, "return_initiated", fmt.Sprintf("loan %d needs a return driver", loanID))
	return c.db.GetLoan(loanID)
}

// AssignReturn nominates the driver for the return leg.
func (c *Coordinator) AssignReturn(actorID, loanID, driverID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	if err := c.requireDriver(driverID); err != nil {
		return nil, err
	}
	ok, err := c.db.AssignLoanDriver(loanID, driverID, "return", LoanReturnInitiated, LoanReturnAssigned)
	if err != nil {
		return nil, fmt.Errorf("workflow: assign return for loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "assign a return driver to")
	}
	log.Printf("workflow: loan %d return assigned to driver %d", loanID, driverID)
	c.emitter.EmitLoanChanged(loanID, LoanReturnAssigned, fmt.Sprintf("return assigned to driver %d", driverID))
	c.notify.NotifyUser(driverID, "return_assigned", fmt.Sprintf("you are assigned the return leg of loan %d", loanID))
	return c.db.GetLoan(loanID)
}

// AcceptReturn is the assigned driver taking the return leg, with its own
// trip from the borrower back to the lender.
func (c *Coordinator) AcceptReturn(actorID, loanID, vehicleID int64) (*store.Trip, error) {
	return c.acceptLoanLeg(actorID, loanID, vehicleID, "return", LoanReturnAssigned, LoanReturnAccepted)
}

// ConfirmReturn closes the loop: the lender confirms the goods are back, both
// balances reverse, and the loan closes.
func (c *Coordinator) ConfirmReturn(actorID, loanID int64) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleManager); err != nil {
		return nil, err
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}
	if err := c.requireLocationManager(actorID, l.LenderLocationID); err != nil {
		return nil, err
	}

	ok, err := c.db.CloseLoan(loanID, LoanReturnAccepted)
	if err != nil {
		return nil, fmt.Errorf("workflow: confirm return of loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "confirm the return of")
	}
	if err := c.ledger.Issue(l.BorrowerLocationID, l.Bags(), "loan_return", loanID); err != nil {
		log.Printf("workflow: stock debit for loan %d return failed: %v", loanID, err)
	}
	if err := c.ledger.Receive(l.LenderLocationID, l.Bags(), "loan_return", loanID); err != nil {
		log.Printf("workflow: stock credit for loan %d return failed: %v", loanID, err)
	}
	log.Printf("workflow: loan %d closed, %d bags returned to lender %d", loanID, l.Bags(), l.LenderLocationID)
	c.emitter.EmitLoanChanged(loanID, LoanClosed, "loan closed")
	c.notify.NotifyUser(l.RequestedBy, "loan_closed", fmt.Sprintf("loan %d is closed", loanID))
	return c.db.GetLoan(loanID)
}

// CancelLoan withdraws a loan that has not yet moved stock.
func (c *Coordinator) CancelLoan(actorID, loanID int64, reason string) (*store.Loan, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "cancellation requires a reason")
	}
	ok, err := c.db.CancelLoan(loanID, reason)
	if err != nil {
		return nil, fmt.Errorf("workflow: cancel loan %d: %w", loanID, err)
	}
	if !ok {
		return nil, c.loanConflict(loanID, "cancel")
	}
	log.Printf("workflow: loan %d cancelled: %s", loanID, reason)
	c.emitter.EmitLoanChanged(loanID, LoanCancelled, reason)
	return c.db.GetLoan(loanID)
}

// acceptLoanLeg is shared by pickup and return acceptance: the assigned driver
// confirms the leg and a planned trip is created for it.
func (c *Coordinator) acceptLoanLeg(actorID, loanID, vehicleID int64, leg, fromStatus, toStatus string) (*store.Trip, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return nil, notFoundErr("loan %d not found", loanID)
	}
	assigned := l.PickupDriverID
	origin, dest := l.LenderLocationID, l.BorrowerLocationID
	if leg == "return" {
		assigned = l.ReturnDriverID
		origin, dest = l.BorrowerLocationID, l.LenderLocationID
	}
	if assigned == nil || *assigned != actorID {
		return nil, authErr("not_assignee", "the %s leg of loan %d is assigned to driver %d", leg, loanID, derefID(assigned))
	}
	v, err := c.db.GetVehicle(vehicleID)
	if err != nil {
		return nil, notFoundErr("vehicle %d not found", vehicleID)
	}
	if !v.Available() {
		return nil, conflictErr("vehicle_unavailable", "vehicle %d is claimed by trip %d", v.ID, derefID(v.ActiveTripID))
	}

	t := &store.Trip{
		VehicleID:        vehicleID,
		DriverID:         actorID,
		OriginLocationID: &origin,
		DestLocationID:   dest,
		LoanID:           &loanID,
		LoanLeg:          leg,
		Status:           TripPlanned,
	}
	if err := c.db.CreateLoanLegTrip(t, fromStatus, toStatus); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, c.loanConflict(loanID, fmt.Sprintf("accept the %s leg of", leg))
		}
		return nil, fmt.Errorf("workflow: accept %s leg of loan %d: %w", leg, loanID, err)
	}
	log.Printf("workflow: loan %d %s leg accepted by driver %d, trip %d created", loanID, leg, actorID, t.ID)
	c.emitter.EmitLoanChanged(loanID, toStatus, fmt.Sprintf("%s leg accepted, trip %d", leg, t.ID))
	c.emitter.EmitTripChanged(t.ID, TripPlanned, fmt.Sprintf("%s leg of loan %d", leg, loanID))
	return t, nil
}

// requireLocationManager checks that the actor manages the given location.
// Admins bypass the check.
func (c *Coordinator) requireLocationManager(actorID, locationID int64) error {
	u, err := c.db.GetUser(actorID)
	if err != nil {
		return notFoundErr("user %d not found", actorID)
	}
	if u.Role == RoleAdmin {
		return nil
	}
	if u.LocationID == nil || *u.LocationID != locationID {
		return authErr("wrong_location", "user %d does not manage location %d", actorID, locationID)
	}
	return nil
}

func (c *Coordinator) requireDriver(driverID int64) error {
	role, err := c.roles.RoleOf(driverID)
	if err != nil {
		return notFoundErr("user %d not found", driverID)
	}
	if role != RoleDriver {
		return validationErr("wrong_role", "user %d is a %s, not a driver", driverID, role)
	}
	return nil
}

// loanConflict re-reads a loan after a failed guard and names the state that
// beat the caller.
func (c *Coordinator) loanConflict(loanID int64, verb string) error {
	l, err := c.db.GetLoan(loanID)
	if err != nil {
		return notFoundErr("loan %d not found", loanID)
	}
	return conflictErr("bad_status", "cannot %s loan %d in status %s", verb, loanID, l.Status)
}
