package www

import (
	"net/http"

	"depotflow/workflow"
)

func (h *Handlers) apiListTrips(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	vehicleID := queryInt64(r, "vehicle_id")
	limit := queryInt(r, "limit", 100)
	trips, err := h.engine.DB().ListTrips(status, vehicleID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, trips)
}

func (h *Handlers) apiGetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.DB().GetTrip(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiTripStops(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	stops, err := h.engine.DB().ListTripStops(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, stops)
}

func (h *Handlers) apiTripHistory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	history, err := h.engine.DB().ListTripHistory(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, history)
}

type tripPlanBody struct {
	RequestID        int64               `json:"request_id"`
	VehicleID        int64               `json:"vehicle_id"`
	OriginSupplierID *int64              `json:"origin_supplier_id"`
	OriginLocationID *int64              `json:"origin_location_id"`
	EstimatedArrival string              `json:"estimated_arrival"`
	Notes            string              `json:"notes"`
	Stops            []workflow.StopPlan `json:"stops"`
}

func (b *tripPlanBody) plan() (workflow.TripPlan, error) {
	eta, err := timePtr(b.EstimatedArrival)
	if err != nil {
		return workflow.TripPlan{}, err
	}
	return workflow.TripPlan{
		RequestID:        b.RequestID,
		VehicleID:        b.VehicleID,
		OriginSupplierID: b.OriginSupplierID,
		OriginLocationID: b.OriginLocationID,
		EstimatedArrival: eta,
		Notes:            b.Notes,
		Stops:            b.Stops,
	}, nil
}

func (h *Handlers) apiCreateTrip(w http.ResponseWriter, r *http.Request) {
	var body tripPlanBody
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	plan, err := body.plan()
	if err != nil {
		h.jsonError(w, "invalid estimated_arrival", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().CreateTrip(h.currentUserID(r), plan)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiFulfillRemaining(w http.ResponseWriter, r *http.Request) {
	var body tripPlanBody
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	plan, err := body.plan()
	if err != nil {
		h.jsonError(w, "invalid estimated_arrival", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().FulfillRemaining(h.currentUserID(r), plan)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiStartTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		OdometerStart    int64  `json:"odometer_start"`
		EstimatedArrival string `json:"estimated_arrival"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	eta, err := timePtr(body.EstimatedArrival)
	if err != nil {
		h.jsonError(w, "invalid estimated_arrival", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().StartTrip(h.currentUserID(r), id, body.OdometerStart, eta)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiArriveStop(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Coordinator().ArriveStop(h.currentUserID(r), id); err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiCompleteStop(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ActualKg float64 `json:"actual_kg"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	stop, err := h.engine.Coordinator().CompleteStop(h.currentUserID(r), id, body.ActualKg)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, stop)
}

func (h *Handlers) apiCompleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ClaimedKg float64 `json:"claimed_kg"`
		Costs     float64 `json:"costs"`
		Notes     string  `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().CompleteTrip(h.currentUserID(r), id, body.ClaimedKg, body.Costs, body.Notes)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiSubmitKm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		ClosingKm int64 `json:"closing_km"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().SubmitKm(h.currentUserID(r), id, body.ClosingKm)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiCorrectKm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		NewKm  int64  `json:"new_km"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	trip, err := h.engine.Coordinator().CorrectKm(h.currentUserID(r), id, body.NewKm, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiCancelTrip(w http.ResponseWriter, r *http.Request) {
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
	trip, err := h.engine.Coordinator().CancelTrip(h.currentUserID(r), id, body.Reason)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	h.jsonOK(w, trip)
}
