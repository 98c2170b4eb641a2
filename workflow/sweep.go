package workflow

import (
	"fmt"
	"log"
	"time"
)

// ExpireStaleRequests flips pending requests older than maxAge to expired.
// Each flip is guarded, so a concurrent accept always beats the sweep.
func (c *Coordinator) ExpireStaleRequests(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := c.db.ListExpirableRequests(cutoff)
	if err != nil {
		return 0, fmt.Errorf("workflow: list expirable requests: %w", err)
	}
	expired := 0
	for _, r := range stale {
		ok, err := c.db.ExpireRequest(r.ID)
		if err != nil {
			return expired, fmt.Errorf("workflow: expire request %d: %w", r.ID, err)
		}
		if !ok {
			continue
		}
		expired++
		c.emitter.EmitRequestChanged(r.ID, RequestExpired, fmt.Sprintf("pending since %s", r.CreatedAt.Format(time.RFC3339)))
		c.notify.NotifyUser(r.RequestedBy, "request_expired", fmt.Sprintf("request %d expired unanswered", r.ID))
	}
	if expired > 0 {
		log.Printf("workflow: expired %d stale requests", expired)
	}
	return expired, nil
}
