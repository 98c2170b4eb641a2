package workflow

import (
	"fmt"
	"log"
	"time"

	"depotflow/store"
)

// CreateRequest opens a new stock request for a shop.
func (c *Coordinator) CreateRequest(actorID, locationID, quantityBags int64, urgency string, requestedTime *time.Time) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	if quantityBags <= 0 {
		return nil, validationErr("bad_quantity", "quantity must be positive, got %d", quantityBags)
	}
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if urgency != UrgencyNormal && urgency != UrgencyUrgent {
		return nil, validationErr("bad_urgency", "unknown urgency %q", urgency)
	}
	if _, err := c.db.GetLocation(locationID); err != nil {
		return nil, notFoundErr("location %d not found", locationID)
	}

	r := &store.StockRequest{
		LocationID:    locationID,
		RequestedBy:   actorID,
		QuantityBags:  quantityBags,
		Urgency:       urgency,
		RequestedTime: requestedTime,
		Status:        RequestPending,
	}
	if err := c.db.CreateRequest(r); err != nil {
		return nil, fmt.Errorf("workflow: create request: %w", err)
	}
	log.Printf("workflow: request %d created for location %d (%d bags, %s)", r.ID, locationID, quantityBags, urgency)
	c.emitter.EmitRequestChanged(r.ID, RequestPending, fmt.Sprintf("%d bags for location %d", quantityBags, locationID))
	c.notify.NotifyRole(RoleDriver, "request_created", fmt.Sprintf("request %d: %d bags, %s", r.ID, quantityBags, urgency))
	return r, nil
}

// AcceptRequest lets a driver take a pending request. Exactly one of several
// concurrent accepts wins; losers get a conflict naming the current state.
func (c *Coordinator) AcceptRequest(actorID, requestID int64) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}

	ok, err := c.db.AcceptRequest(requestID, actorID)
	if err != nil {
		return nil, fmt.Errorf("workflow: accept request %d: %w", requestID, err)
	}
	if !ok {
		return nil, c.requestConflict(requestID, "accept")
	}
	log.Printf("workflow: request %d accepted by driver %d", requestID, actorID)
	c.emitter.EmitRequestChanged(requestID, RequestAccepted, fmt.Sprintf("accepted by driver %d", actorID))
	c.notify.NotifyUser(r.RequestedBy, "request_accepted", fmt.Sprintf("request %d accepted by driver %d", requestID, actorID))
	return c.db.GetRequest(requestID)
}

// ProposeTime records a driver's counter-proposal instead of an accept. The
// request stays pending and other drivers may still accept it outright.
func (c *Coordinator) ProposeTime(actorID, requestID int64, proposedTime time.Time, reason, notes string) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleDriver); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "a time proposal requires a reason")
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}
	if r.Status != RequestPending {
		return nil, conflictErr("bad_status", "request %d is %s, proposals apply to pending requests", requestID, r.Status)
	}

	ok, err := c.db.SetRequestProposal(requestID, actorID, proposedTime, reason, notes)
	if err != nil {
		return nil, fmt.Errorf("workflow: propose time on request %d: %w", requestID, err)
	}
	if !ok {
		r, err = c.db.GetRequest(requestID)
		if err == nil && r.HasOpenProposal() {
			return nil, conflictErr("proposal_pending", "request %d already has an open time proposal", requestID)
		}
		return nil, c.requestConflict(requestID, "propose time on")
	}
	log.Printf("workflow: request %d time proposed by driver %d: %s", requestID, actorID, proposedTime.Format(time.RFC3339))
	c.emitter.EmitRequestChanged(requestID, RequestPending, fmt.Sprintf("driver %d proposed %s", actorID, proposedTime.Format(time.RFC3339)))
	c.notify.NotifyUser(r.RequestedBy, "time_proposed", fmt.Sprintf("driver %d proposed %s for request %d: %s", actorID, proposedTime.Format(time.RFC3339), requestID, reason))
	return c.db.GetRequest(requestID)
}

// AcceptProposal commits the open proposal: the proposed time becomes the
// requested time and the proposing driver becomes the acceptor.
func (c *Coordinator) AcceptProposal(actorID, requestID int64) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}
	driverID := r.ProposedBy

	ok, err := c.db.AcceptRequestProposal(requestID)
	if err != nil {
		return nil, fmt.Errorf("workflow: accept proposal on request %d: %w", requestID, err)
	}
	if !ok {
		if r.Status == RequestPending && !r.HasOpenProposal() {
			return nil, conflictErr("no_proposal", "request %d has no open proposal", requestID)
		}
		return nil, c.requestConflict(requestID, "accept proposal on")
	}
	log.Printf("workflow: request %d proposal accepted", requestID)
	c.emitter.EmitRequestChanged(requestID, RequestAccepted, "proposed time accepted")
	if driverID != nil {
		c.notify.NotifyUser(*driverID, "proposal_accepted", fmt.Sprintf("your proposed time for request %d was accepted", requestID))
	}
	return c.db.GetRequest(requestID)
}

// DeclineProposal rejects the open proposal and returns the request to plain
// pending, still acceptable by any driver.
func (c *Coordinator) DeclineProposal(actorID, requestID int64) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}
	driverID := r.ProposedBy

	ok, err := c.db.ClearRequestProposal(requestID)
	if err != nil {
		return nil, fmt.Errorf("workflow: decline proposal on request %d: %w", requestID, err)
	}
	if !ok {
		if r.Status == RequestPending {
			return nil, conflictErr("no_proposal", "request %d has no open proposal", requestID)
		}
		return nil, c.requestConflict(requestID, "decline proposal on")
	}
	log.Printf("workflow: request %d proposal declined", requestID)
	c.emitter.EmitRequestChanged(requestID, RequestPending, "proposed time declined")
	if driverID != nil {
		c.notify.NotifyUser(*driverID, "proposal_declined", fmt.Sprintf("your proposed time for request %d was declined", requestID))
	}
	return c.db.GetRequest(requestID)
}

// CancelRequest withdraws a request that has no trip yet.
func (c *Coordinator) CancelRequest(actorID, requestID int64, reason string) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "cancellation requires a reason")
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}
	acceptor := r.AcceptedBy

	ok, err := c.db.CancelRequest(requestID, reason)
	if err != nil {
		return nil, fmt.Errorf("workflow: cancel request %d: %w", requestID, err)
	}
	if !ok {
		return nil, c.requestConflict(requestID, "cancel")
	}
	log.Printf("workflow: request %d cancelled: %s", requestID, reason)
	c.emitter.EmitRequestChanged(requestID, RequestCancelled, reason)
	if acceptor != nil {
		c.notify.NotifyUser(*acceptor, "request_cancelled", fmt.Sprintf("request %d was cancelled: %s", requestID, reason))
	}
	return c.db.GetRequest(requestID)
}

// EditRequest updates quantity, urgency, or requested time while the request
// is still pending.
func (c *Coordinator) EditRequest(actorID, requestID, quantityBags int64, urgency string, requestedTime *time.Time) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	if quantityBags <= 0 {
		return nil, validationErr("bad_quantity", "quantity must be positive, got %d", quantityBags)
	}
	if urgency != UrgencyNormal && urgency != UrgencyUrgent {
		return nil, validationErr("bad_urgency", "unknown urgency %q", urgency)
	}

	ok, err := c.db.EditRequest(requestID, quantityBags, urgency, requestedTime)
	if err != nil {
		return nil, fmt.Errorf("workflow: edit request %d: %w", requestID, err)
	}
	if !ok {
		return nil, c.requestConflict(requestID, "edit")
	}
	log.Printf("workflow: request %d edited (%d bags, %s)", requestID, quantityBags, urgency)
	c.emitter.EmitRequestChanged(requestID, RequestPending, "request edited")
	return c.db.GetRequest(requestID)
}

// MarkUrgent escalates a request. One-way.
func (c *Coordinator) MarkUrgent(actorID, requestID int64) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	ok, err := c.db.MarkRequestUrgent(requestID)
	if err != nil {
		return nil, fmt.Errorf("workflow: mark request %d urgent: %w", requestID, err)
	}
	if !ok {
		r, err := c.db.GetRequest(requestID)
		if err != nil {
			return nil, notFoundErr("request %d not found", requestID)
		}
		if r.Urgency == UrgencyUrgent {
			return r, nil
		}
		return nil, c.requestConflict(requestID, "escalate")
	}
	log.Printf("workflow: request %d marked urgent", requestID)
	c.emitter.EmitRequestChanged(requestID, "", "marked urgent")
	c.notify.NotifyRole(RoleDriver, "request_urgent", fmt.Sprintf("request %d is now urgent", requestID))
	return c.db.GetRequest(requestID)
}

// ReRequest re-broadcasts a pending request to the driver pool. It is a
// notification-only nudge for a stale or urgent request; no state changes.
func (c *Coordinator) ReRequest(actorID, requestID int64) (*store.StockRequest, error) {
	if _, err := c.requireRole(actorID, RoleRequester, RoleManager); err != nil {
		return nil, err
	}
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", requestID)
	}
	if r.Status != RequestPending {
		return nil, c.requestConflict(requestID, "re-broadcast")
	}
	log.Printf("workflow: request %d re-broadcast to drivers", requestID)
	c.notify.NotifyRole(RoleDriver, "request_available", fmt.Sprintf("request %d for %d bags at location %d is still waiting", requestID, r.QuantityBags, r.LocationID))
	return r, nil
}

// requestConflict re-reads a request after a failed guard and names the state
// that beat the caller.
func (c *Coordinator) requestConflict(requestID int64, verb string) error {
	r, err := c.db.GetRequest(requestID)
	if err != nil {
		return notFoundErr("request %d not found", requestID)
	}
	switch r.Status {
	case RequestAccepted, RequestTripCreated, RequestInDelivery:
		return conflictErr("already_accepted", "cannot %s request %d: already accepted by driver %d", verb, requestID, derefID(r.AcceptedBy))
	case RequestFulfilled:
		return conflictErr("already_fulfilled", "cannot %s request %d: already fulfilled", verb, requestID)
	case RequestCancelled:
		return conflictErr("already_cancelled", "cannot %s request %d: cancelled", verb, requestID)
	case RequestExpired:
		return conflictErr("already_expired", "cannot %s request %d: expired", verb, requestID)
	}
	return conflictErr("bad_status", "cannot %s request %d in status %s", verb, requestID, r.Status)
}

func derefID(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
