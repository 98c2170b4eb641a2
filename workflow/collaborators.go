package workflow

import "depotflow/store"

// InventoryLedger applies confirmed stock movements. It is called only after
// the owning state transition has committed.
type InventoryLedger interface {
	Receive(locationID, bags int64, refType string, refID int64) error
	Issue(locationID, bags int64, refType string, refID int64) error
}

// Notifier pushes workflow notices to users or whole roles. Implementations
// must not block; the engine's notifier writes to the outbox.
type Notifier interface {
	NotifyUser(userID int64, event, detail string)
	NotifyRole(role, event, detail string)
}

// RoleProvider resolves the acting user's role for authorization checks.
type RoleProvider interface {
	RoleOf(userID int64) (string, error)
}

// StoreLedger is the store-backed InventoryLedger.
type StoreLedger struct {
	db *store.DB
}

func NewStoreLedger(db *store.DB) *StoreLedger { return &StoreLedger{db: db} }

func (l *StoreLedger) Receive(locationID, bags int64, refType string, refID int64) error {
	return l.db.ApplyStockDelta(locationID, bags, "receipt", refType, refID)
}

func (l *StoreLedger) Issue(locationID, bags int64, refType string, refID int64) error {
	return l.db.ApplyStockDelta(locationID, -bags, "issue", refType, refID)
}

// StoreRoles resolves roles from the users table.
type StoreRoles struct {
	db *store.DB
}

func NewStoreRoles(db *store.DB) *StoreRoles { return &StoreRoles{db: db} }

func (r *StoreRoles) RoleOf(userID int64) (string, error) {
	u, err := r.db.GetUser(userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}
