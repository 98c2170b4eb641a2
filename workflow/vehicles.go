package workflow

import (
	"fmt"
	"log"

	"depotflow/store"
)

// RegisterVehicle adds a vehicle to the pool.
func (c *Coordinator) RegisterVehicle(actorID int64, registration, vehicleMake, model string, kilometers int64) (*store.Vehicle, error) {
	if _, err := c.requireRole(actorID, RoleVehicleManager); err != nil {
		return nil, err
	}
	if registration == "" {
		return nil, validationErr("bad_registration", "a vehicle needs a registration plate")
	}
	if kilometers < 0 {
		return nil, validationErr("bad_quantity", "odometer reading cannot be negative")
	}
	v := &store.Vehicle{Registration: registration, Make: vehicleMake, Model: model, KilometersTraveled: kilometers}
	if err := c.db.CreateVehicle(v); err != nil {
		return nil, fmt.Errorf("workflow: register vehicle: %w", err)
	}
	log.Printf("workflow: vehicle %d registered (%s, %d km)", v.ID, registration, kilometers)
	c.emitter.EmitVehicleChanged(v.ID, true, kilometers)
	return v, nil
}
