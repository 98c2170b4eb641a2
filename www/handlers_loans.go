package www

import (
	"net/http"
)

func (h *Handlers) apiListLoans(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	locationID := queryInt64(r, "location_id")
	limit := queryInt(r, "limit", 100)
	loans, err := h.engine.DB().ListLoans(status, locationID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, loans)
}

func (h *Handlers) apiGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.DB().GetLoan(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiLoanHistory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	history, err := h.engine.DB().ListLoanHistory(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, history)
}

func (h *Handlers) apiCreateLoan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BorrowerLocationID int64  `json:"borrower_location_id"`
		LenderLocationID   int64  `json:"lender_location_id"`
		RequestedBags      int64  `json:"requested_bags"`
		EstimatedReturn    string `json:"estimated_return"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	ret, err := timePtr(body.EstimatedReturn)
	if err != nil {
		h.jsonError(w, "invalid estimated_return", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().CreateLoan(h.currentUserID(r), body.BorrowerLocationID, body.LenderLocationID, body.RequestedBags, ret)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiAcceptLoan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ApprovedBags int64 `json:"approved_bags"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().AcceptLoan(h.currentUserID(r), id, body.ApprovedBags)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiRejectLoan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().RejectLoan(h.currentUserID(r), id, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiConfirmLoan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().ConfirmLoan(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiAssignPickup(w http.ResponseWriter, r *http.Request) {
	h.assignLoanDriver(w, r, "pickup")
}

func (h *Handlers) apiAssignReturn(w http.ResponseWriter, r *http.Request) {
	h.assignLoanDriver(w, r, "return")
}

func (h *Handlers) assignLoanDriver(w http.ResponseWriter, r *http.Request, leg string) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		DriverID int64 `json:"driver_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	var loan any
	if leg == "pickup" {
		loan, err = h.engine.Coordinator().AssignPickup(h.currentUserID(r), id, body.DriverID)
	} else {
		loan, err = h.engine.Coordinator().AssignReturn(h.currentUserID(r), id, body.DriverID)
	}
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiAcceptPickup(w http.ResponseWriter, r *http.Request) {
	h.acceptLoanLeg(w, r, "pickup")
}

func (h *Handlers) apiAcceptReturn(w http.ResponseWriter, r *http.Request) {
	h.acceptLoanLeg(w, r, "return")
}

func (h *Handlers) acceptLoanLeg(w http.ResponseWriter, r *http.Request, leg string) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		VehicleID int64 `json:"vehicle_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	var trip any
	if leg == "pickup" {
		trip, err = h.engine.Coordinator().AcceptPickup(h.currentUserID(r), id, body.VehicleID)
	} else {
		trip, err = h.engine.Coordinator().AcceptReturn(h.currentUserID(r), id, body.VehicleID)
	}
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiConfirmCollection(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().ConfirmCollection(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().ConfirmReceipt(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiInitiateReturn(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().InitiateReturn(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiConfirmReturn(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().ConfirmReturn(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}

func (h *Handlers) apiCancelLoan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	loan, err := h.engine.Coordinator().CancelLoan(h.currentUserID(r), id, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, loan)
}
