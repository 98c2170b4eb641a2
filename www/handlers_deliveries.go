package www

import (
	"net/http"
)

func (h *Handlers) apiListDeliveries(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 100)
	deliveries, err := h.engine.DB().ListDeliveries(status, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, deliveries)
}

func (h *Handlers) apiGetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	d, err := h.engine.DB().GetDelivery(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ConfirmedKg float64 `json:"confirmed_kg"`
		Notes       string  `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	d, err := h.engine.Coordinator().ConfirmDelivery(h.currentUserID(r), id, body.ConfirmedKg, body.Notes)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiRejectDelivery(w http.ResponseWriter, r *http.Request) {
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
	d, err := h.engine.Coordinator().RejectDelivery(h.currentUserID(r), id, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, d)
}
