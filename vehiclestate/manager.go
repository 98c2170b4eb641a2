package vehiclestate

import (
	"context"
	"log"

	"depotflow/store"
)

// Manager provides write-through vehicle state: SQL is the source of truth,
// Redis holds the hot availability view the API serves.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// GetState reads a vehicle's state from Redis, falling back to SQL.
func (m *Manager) GetState(vehicleID int64) (*VehicleState, error) {
	ctx := context.Background()

	state, err := m.redis.GetState(ctx, vehicleID)
	if err == nil && state != nil {
		return state, nil
	}
	return m.getStateFromSQL(vehicleID)
}

// GetAllStates reads all vehicle states, preferring Redis.
func (m *Manager) GetAllStates() (map[int64]*VehicleState, error) {
	ctx := context.Background()
	states := make(map[int64]*VehicleState)

	ids, err := m.redis.GetAllVehicleIDs(ctx)
	if err == nil && len(ids) > 0 {
		for _, id := range ids {
			state, err := m.GetState(id)
			if err == nil {
				states[id] = state
			}
		}
		return states, nil
	}

	// Fall back to SQL
	vehicles, err := m.db.ListVehicles()
	if err != nil {
		return nil, err
	}
	for _, v := range vehicles {
		states[v.ID] = stateFromVehicle(v)
	}
	return states, nil
}

// Refresh rereads a vehicle from SQL and pushes the result to Redis. Wired to
// vehicle-changed events so every claim, release, and watermark advance lands
// in the cache.
func (m *Manager) Refresh(vehicleID int64) {
	v, err := m.db.GetVehicle(vehicleID)
	if err != nil {
		log.Printf("vehiclestate: refresh vehicle %d: %v", vehicleID, err)
		return
	}
	if err := m.redis.SetState(context.Background(), stateFromVehicle(v)); err != nil {
		log.Printf("vehiclestate: redis set vehicle %d: %v", vehicleID, err)
	}
}

// SyncRedisFromSQL rebuilds all Redis state from SQL. Called on startup.
func (m *Manager) SyncRedisFromSQL() error {
	ctx := context.Background()
	m.redis.FlushAll(ctx)

	vehicles, err := m.db.ListVehicles()
	if err != nil {
		return err
	}
	for _, v := range vehicles {
		if err := m.redis.SetState(ctx, stateFromVehicle(v)); err != nil {
			log.Printf("vehiclestate: sync vehicle %d: %v", v.ID, err)
		}
	}
	log.Printf("vehiclestate: synced %d vehicles to redis", len(vehicles))
	return nil
}

func (m *Manager) getStateFromSQL(vehicleID int64) (*VehicleState, error) {
	v, err := m.db.GetVehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	return stateFromVehicle(v), nil
}

func stateFromVehicle(v *store.Vehicle) *VehicleState {
	return &VehicleState{
		VehicleID:    v.ID,
		Registration: v.Registration,
		Make:         v.Make,
		Model:        v.Model,
		Available:    v.Available(),
		ActiveTripID: v.ActiveTripID,
		Kilometers:   v.KilometersTraveled,
	}
}
