package workflow

import (
	"errors"
	"fmt"
	"log"

	"depotflow/store"
)

// ConfirmDelivery settles a pending delivery: the manager-confirmed weight is
// converted to bags and applied to the request, and the receiving location's
// stock is credited. Confirming an already-confirmed delivery returns the
// recorded outcome without moving stock again.
func (c *Coordinator) ConfirmDelivery(actorID, deliveryID int64, confirmedKg float64, notes string) (*store.PendingDelivery, error) {
	if _, err := c.requireRole(actorID, RoleManager, RoleRequester); err != nil {
		return nil, err
	}
	d, err := c.db.GetDelivery(deliveryID)
	if err != nil {
		return nil, notFoundErr("delivery %d not found", deliveryID)
	}
	switch d.Status {
	case DeliveryConfirmed:
		return d, nil
	case DeliveryRejected:
		return nil, conflictErr("already_settled", "delivery %d was rejected", deliveryID)
	}
	if confirmedKg <= 0 {
		return nil, validationErr("bad_quantity", "confirmed weight must be positive, got %.1f", confirmedKg)
	}

	t, err := c.db.GetTrip(d.TripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", d.TripID)
	}
	if t.RequestID == nil {
		return nil, conflictErr("bad_status", "delivery %d has no request to reconcile", deliveryID)
	}
	req, err := c.db.GetRequest(*t.RequestID)
	if err != nil {
		return nil, notFoundErr("request %d not found", *t.RequestID)
	}

	bags := int64(confirmedKg / KgPerBag)
	newFulfilled := req.FulfilledBags + bags
	newStatus := RequestPartiallyFulfilled
	if newFulfilled >= req.QuantityBags {
		newStatus = RequestFulfilled
	}

	if err := c.db.ConfirmDelivery(d, actorID, confirmedKg, notes, req, newFulfilled, newStatus); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			settled, gerr := c.db.GetDelivery(deliveryID)
			if gerr == nil && settled.Status == DeliveryConfirmed {
				return settled, nil
			}
			return nil, conflictErr("bad_status", "delivery %d or request %d moved under the caller", deliveryID, req.ID)
		}
		return nil, fmt.Errorf("workflow: confirm delivery %d: %w", deliveryID, err)
	}

	// The transition is committed; stock credit failure is logged, not
	// rolled back, and shows up in the movement journal as missing.
	if err := c.ledger.Receive(d.DestLocationID, bags, "delivery", d.ID); err != nil {
		log.Printf("workflow: stock credit for delivery %d failed: %v", d.ID, err)
	}

	log.Printf("workflow: delivery %d confirmed (%.1f kg = %d bags), request %d -> %s", deliveryID, confirmedKg, bags, req.ID, newStatus)
	c.emitter.EmitDeliveryChanged(deliveryID, d.TripID, DeliveryConfirmed, fmt.Sprintf("%.1f kg confirmed", confirmedKg))
	c.emitter.EmitRequestChanged(req.ID, newStatus, fmt.Sprintf("%d of %d bags fulfilled", newFulfilled, req.QuantityBags))
	c.notify.NotifyUser(t.DriverID, "delivery_confirmed", fmt.Sprintf("delivery %d confirmed at %.1f kg", deliveryID, confirmedKg))
	if newStatus == RequestPartiallyFulfilled {
		c.notify.NotifyUser(req.RequestedBy, "request_partial", fmt.Sprintf("request %d is short %d bags", req.ID, req.QuantityBags-newFulfilled))
	}
	return c.db.GetDelivery(deliveryID)
}

// RejectDelivery settles a pending delivery with zero stock movement; the
// request stays open for its full remainder. Idempotent like confirm.
func (c *Coordinator) RejectDelivery(actorID, deliveryID int64, reason string) (*store.PendingDelivery, error) {
	if _, err := c.requireRole(actorID, RoleManager, RoleRequester); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationErr("missing_reason", "rejecting a delivery requires a reason")
	}
	d, err := c.db.GetDelivery(deliveryID)
	if err != nil {
		return nil, notFoundErr("delivery %d not found", deliveryID)
	}
	switch d.Status {
	case DeliveryRejected:
		return d, nil
	case DeliveryConfirmed:
		return nil, conflictErr("already_settled", "delivery %d was confirmed", deliveryID)
	}

	t, err := c.db.GetTrip(d.TripID)
	if err != nil {
		return nil, notFoundErr("trip %d not found", d.TripID)
	}
	var req *store.StockRequest
	if t.RequestID != nil {
		req, err = c.db.GetRequest(*t.RequestID)
		if err != nil {
			return nil, notFoundErr("request %d not found", *t.RequestID)
		}
	}

	if err := c.db.RejectDelivery(d, actorID, reason, req); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			settled, gerr := c.db.GetDelivery(deliveryID)
			if gerr == nil && settled.Status == DeliveryRejected {
				return settled, nil
			}
			return nil, conflictErr("bad_status", "delivery %d moved under the caller", deliveryID)
		}
		return nil, fmt.Errorf("workflow: reject delivery %d: %w", deliveryID, err)
	}

	log.Printf("workflow: delivery %d rejected: %s", deliveryID, reason)
	c.emitter.EmitDeliveryChanged(deliveryID, d.TripID, DeliveryRejected, reason)
	if req != nil {
		c.emitter.EmitRequestChanged(req.ID, RequestPartiallyFulfilled, fmt.Sprintf("delivery %d rejected", deliveryID))
	}
	c.notify.NotifyUser(t.DriverID, "delivery_rejected", fmt.Sprintf("delivery %d rejected: %s", deliveryID, reason))
	return c.db.GetDelivery(deliveryID)
}
