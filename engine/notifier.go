package engine

import (
	"fmt"

	"depotflow/messaging"
	"depotflow/store"
)

// outboxNotifier implements workflow.Notifier by queueing notice envelopes for
// the mqtt side of the outbox. It never blocks the workflow call that raised
// the notice.
type outboxNotifier struct {
	db      *store.DB
	depotID string
	prefix  string
	logFn   LogFunc
}

func (n *outboxNotifier) NotifyUser(userID int64, event, detail string) {
	n.enqueue(messaging.NoticeTopic(n.prefix, userID), fmt.Sprint(userID), messaging.Notice{
		Event:  event,
		Detail: detail,
		UserID: userID,
	})
}

func (n *outboxNotifier) NotifyRole(role, event, detail string) {
	n.enqueue(messaging.RoleNoticeTopic(n.prefix, role), "role:"+role, messaging.Notice{
		Event:  event,
		Detail: detail,
		Role:   role,
	})
}

func (n *outboxNotifier) enqueue(topic, recipient string, notice messaging.Notice) {
	env := messaging.NewEnvelope("notice", n.depotID, notice)
	data, err := env.Encode()
	if err != nil {
		n.logFn("engine: encode notice: %v", err)
		return
	}
	if err := n.db.EnqueueOutbox(topic, data, "notice", recipient, "mqtt"); err != nil {
		n.logFn("engine: enqueue notice for %s: %v", recipient, err)
	}
}
