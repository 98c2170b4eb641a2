package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"depotflow/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Auth
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/whoami", h.handleWhoAmI)

	// Read API (no auth required)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/requests", h.apiListRequests)
		r.Get("/requests/{id}", h.apiGetRequest)
		r.Get("/requests/{id}/history", h.apiRequestHistory)
		r.Get("/trips", h.apiListTrips)
		r.Get("/trips/{id}", h.apiGetTrip)
		r.Get("/trips/{id}/stops", h.apiTripStops)
		r.Get("/trips/{id}/history", h.apiTripHistory)
		r.Get("/deliveries", h.apiListDeliveries)
		r.Get("/deliveries/{id}", h.apiGetDelivery)
		r.Get("/loans", h.apiListLoans)
		r.Get("/loans/{id}", h.apiGetLoan)
		r.Get("/loans/{id}/history", h.apiLoanHistory)
		r.Get("/vehicles", h.apiListVehicles)
		r.Get("/vehicles/state", h.apiVehicleStates)
		r.Get("/locations", h.apiListLocations)
		r.Get("/suppliers", h.apiListSuppliers)
		r.Get("/stock", h.apiStockLevels)
		r.Get("/stock/movements", h.apiStockMovements)
		r.Get("/audit", h.apiAuditLog)
	})

	// Commands (logged-in users only; role checks live in the workflow layer)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/requests", h.apiCreateRequest)
		r.Post("/api/requests/{id}/accept", h.apiAcceptRequest)
		r.Post("/api/requests/{id}/propose-time", h.apiProposeTime)
		r.Post("/api/requests/{id}/accept-proposal", h.apiAcceptProposal)
		r.Post("/api/requests/{id}/decline-proposal", h.apiDeclineProposal)
		r.Post("/api/requests/{id}/cancel", h.apiCancelRequest)
		r.Post("/api/requests/{id}/edit", h.apiEditRequest)
		r.Post("/api/requests/{id}/urgent", h.apiMarkUrgent)
		r.Post("/api/requests/{id}/re-request", h.apiReRequest)

		r.Post("/api/trips", h.apiCreateTrip)
		r.Post("/api/trips/fulfill-remaining", h.apiFulfillRemaining)
		r.Post("/api/trips/{id}/start", h.apiStartTrip)
		r.Post("/api/trips/{id}/complete", h.apiCompleteTrip)
		r.Post("/api/trips/{id}/km", h.apiSubmitKm)
		r.Post("/api/trips/{id}/correct-km", h.apiCorrectKm)
		r.Post("/api/trips/{id}/cancel", h.apiCancelTrip)
		r.Post("/api/stops/{id}/arrive", h.apiArriveStop)
		r.Post("/api/stops/{id}/complete", h.apiCompleteStop)

		r.Post("/api/deliveries/{id}/confirm", h.apiConfirmDelivery)
		r.Post("/api/deliveries/{id}/reject", h.apiRejectDelivery)

		r.Post("/api/loans", h.apiCreateLoan)
		r.Post("/api/loans/{id}/accept", h.apiAcceptLoan)
		r.Post("/api/loans/{id}/reject", h.apiRejectLoan)
		r.Post("/api/loans/{id}/confirm", h.apiConfirmLoan)
		r.Post("/api/loans/{id}/assign-pickup", h.apiAssignPickup)
		r.Post("/api/loans/{id}/accept-pickup", h.apiAcceptPickup)
		r.Post("/api/loans/{id}/collected", h.apiConfirmCollection)
		r.Post("/api/loans/{id}/received", h.apiConfirmReceipt)
		r.Post("/api/loans/{id}/initiate-return", h.apiInitiateReturn)
		r.Post("/api/loans/{id}/assign-return", h.apiAssignReturn)
		r.Post("/api/loans/{id}/accept-return", h.apiAcceptReturn)
		r.Post("/api/loans/{id}/confirm-return", h.apiConfirmReturn)
		r.Post("/api/loans/{id}/cancel", h.apiCancelLoan)

		r.Post("/api/vehicles", h.apiRegisterVehicle)
		r.Post("/api/users", h.apiCreateUser)
		r.Post("/api/locations", h.apiCreateLocation)
		r.Post("/api/suppliers", h.apiCreateSupplier)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": h.engine.MsgClient() != nil && h.engine.MsgClient().IsConnected(),
		"sse":       h.eventHub.ClientCount(),
	})
}
