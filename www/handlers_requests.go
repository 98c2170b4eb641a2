package www

import (
	"net/http"
)

func (h *Handlers) apiListRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	locationID := queryInt64(r, "location_id")
	limit := queryInt(r, "limit", 100)
	requests, err := h.engine.DB().ListRequests(status, locationID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, requests)
}

func (h *Handlers) apiGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.DB().GetRequest(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiRequestHistory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	history, err := h.engine.DB().ListRequestHistory(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, history)
}

func (h *Handlers) apiCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LocationID    int64  `json:"location_id"`
		QuantityBags  int64  `json:"quantity_bags"`
		Urgency       string `json:"urgency"`
		RequestedTime string `json:"requested_time"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	when, err := timePtr(body.RequestedTime)
	if err != nil {
		h.jsonError(w, "invalid requested_time", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().CreateRequest(h.currentUserID(r), body.LocationID, body.QuantityBags, body.Urgency, when)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiAcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().AcceptRequest(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiProposeTime(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ProposedTime string `json:"proposed_time"`
		Reason       string `json:"reason"`
		Notes        string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	when, err := timePtr(body.ProposedTime)
	if err != nil || when == nil {
		h.jsonError(w, "invalid proposed_time", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().ProposeTime(h.currentUserID(r), id, *when, body.Reason, body.Notes)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiAcceptProposal(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().AcceptProposal(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiDeclineProposal(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().DeclineProposal(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiCancelRequest(w http.ResponseWriter, r *http.Request) {
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
	req, err := h.engine.Coordinator().CancelRequest(h.currentUserID(r), id, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiEditRequest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		QuantityBags  int64  `json:"quantity_bags"`
		Urgency       string `json:"urgency"`
		RequestedTime string `json:"requested_time"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	when, err := timePtr(body.RequestedTime)
	if err != nil {
		h.jsonError(w, "invalid requested_time", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().EditRequest(h.currentUserID(r), id, body.QuantityBags, body.Urgency, when)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiMarkUrgent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().MarkUrgent(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}

func (h *Handlers) apiReRequest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := h.engine.Coordinator().ReRequest(h.currentUserID(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, req)
}
