package workflow

import (
	"depotflow/store"
)

// Coordinator owns the request, trip, delivery, and loan state machines. All
// transitions go through guarded store updates; the coordinator turns guard
// failures into actionable errors and fans out events and notices.
type Coordinator struct {
	db      *store.DB
	emitter Emitter
	ledger  InventoryLedger
	notify  Notifier
	roles   RoleProvider
}

func NewCoordinator(db *store.DB, emitter Emitter, ledger InventoryLedger, notify Notifier, roles RoleProvider) *Coordinator {
	return &Coordinator{
		db:      db,
		emitter: emitter,
		ledger:  ledger,
		notify:  notify,
		roles:   roles,
	}
}

// requireRole resolves the actor's role and checks it against the allowed set.
func (c *Coordinator) requireRole(actorID int64, allowed ...string) (string, error) {
	role, err := c.roles.RoleOf(actorID)
	if err != nil {
		return "", notFoundErr("user %d not found", actorID)
	}
	if role == RoleAdmin {
		return role, nil
	}
	for _, a := range allowed {
		if role == a {
			return role, nil
		}
	}
	return "", authErr("wrong_role", "role %s may not perform this operation", role)
}
