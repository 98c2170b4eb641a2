package www

import (
	"net/http"

	"depotflow/store"
	"depotflow/workflow"
)

func (h *Handlers) apiListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.engine.DB().ListLocations()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, locations)
}

func (h *Handlers) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.engine.DB().ListSuppliers()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, suppliers)
}

func (h *Handlers) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.engine.DB().ListStockLevels()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, levels)
}

func (h *Handlers) apiStockMovements(w http.ResponseWriter, r *http.Request) {
	locationID := queryInt64(r, "location_id")
	limit := queryInt(r, "limit", 100)
	movements, err := h.engine.DB().ListStockMovements(locationID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, movements)
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID := queryInt64(r, "entity_id")
	limit := queryInt(r, "limit", 100)
	entries, err := h.engine.DB().ListAudit(entityType, entityID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

// apiCreateUser lets an admin provision accounts. Role checks here stay at the
// API boundary since user management is not a workflow operation.
func (h *Handlers) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var body struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		Role       string `json:"role"`
		LocationID *int64 `json:"location_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Username == "" || body.Password == "" {
		h.jsonError(w, "username and password required", http.StatusUnprocessableEntity)
		return
	}
	switch body.Role {
	case workflow.RoleRequester, workflow.RoleDriver, workflow.RoleManager, workflow.RoleVehicleManager, workflow.RoleAdmin:
	default:
		h.jsonError(w, "unknown role", http.StatusUnprocessableEntity)
		return
	}
	hash, err := hashPassword(body.Password)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	u := &store.User{Username: body.Username, PasswordHash: hash, Role: body.Role, LocationID: body.LocationID}
	if err := h.engine.DB().CreateUser(u); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, u)
}

func (h *Handlers) apiCreateLocation(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var body struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		h.jsonError(w, "name required", http.StatusUnprocessableEntity)
		return
	}
	if body.Kind == "" {
		body.Kind = "shop"
	}
	l := &store.Location{Name: body.Name, Kind: body.Kind}
	if err := h.engine.DB().CreateLocation(l); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, l)
}

func (h *Handlers) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		h.jsonError(w, "name required", http.StatusUnprocessableEntity)
		return
	}
	s := &store.Supplier{Name: body.Name}
	if err := h.engine.DB().CreateSupplier(s); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, s)
}

func (h *Handlers) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user, err := h.engine.DB().GetUser(h.currentUserID(r))
	if err != nil || user.Role != workflow.RoleAdmin {
		h.jsonError(w, "admin required", http.StatusForbidden)
		return false
	}
	return true
}
