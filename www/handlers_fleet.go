package www

import (
	"net/http"
)

func (h *Handlers) apiListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.engine.DB().ListVehicles()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, vehicles)
}

// apiVehicleStates reads the redis-backed availability cache, falling back to
// SQL for cache misses.
func (h *Handlers) apiVehicleStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.engine.VehicleState().GetAllStates()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, states)
}

func (h *Handlers) apiRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Registration string `json:"registration"`
		Make         string `json:"make"`
		Model        string `json:"model"`
		Kilometers   int64  `json:"kilometers"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, err := h.engine.Coordinator().RegisterVehicle(h.currentUserID(r), body.Registration, body.Make, body.Model, body.Kilometers)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, v)
}
