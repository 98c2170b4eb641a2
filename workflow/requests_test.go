package workflow

import (
	"testing"
	"time"
)

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.CreateRequest(f.requester.ID, f.shop.ID, 0, UrgencyNormal, nil)
	wantErr(t, err, KindValidation, "bad_quantity")

	_, err = f.c.CreateRequest(f.driver.ID, f.shop.ID, 10, UrgencyNormal, nil)
	wantErr(t, err, KindAuthorization, "wrong_role")

	_, err = f.c.CreateRequest(f.requester.ID, 999, 10, UrgencyNormal, nil)
	wantErr(t, err, KindNotFound, "not_found")

	r, err := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Urgency != UrgencyNormal || r.Status != RequestPending {
		t.Fatalf("unexpected request: %+v", r)
	}
	if len(f.notices.roles) == 0 || f.notices.roles[0].event != "request_created" {
		t.Fatalf("drivers not notified: %+v", f.notices.roles)
	}
}

func TestAcceptRequestLoserGetsConflict(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)

	if _, err := f.c.AcceptRequest(f.driver.ID, r.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := f.c.AcceptRequest(f.driver2.ID, r.ID)
	wantErr(t, err, KindConflict, "already_accepted")

	if len(f.emitter.requests) != 2 || f.emitter.requests[1].status != RequestAccepted {
		t.Fatalf("unexpected emits: %+v", f.emitter.requests)
	}
}

func TestProposalLifecycle(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	when := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	_, err := f.c.ProposeTime(f.driver.ID, r.ID, when, "", "")
	wantErr(t, err, KindValidation, "missing_reason")

	if _, err := f.c.ProposeTime(f.driver.ID, r.ID, when, "truck in service", ""); err != nil {
		t.Fatalf("propose: %v", err)
	}
	_, err = f.c.ProposeTime(f.driver2.ID, r.ID, when, "also busy", "")
	wantErr(t, err, KindConflict, "proposal_pending")

	if _, err := f.c.DeclineProposal(f.requester.ID, r.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	_, err = f.c.AcceptProposal(f.requester.ID, r.ID)
	wantErr(t, err, KindConflict, "no_proposal")

	if _, err := f.c.ProposeTime(f.driver2.ID, r.ID, when, "earliest slot", ""); err != nil {
		t.Fatalf("second propose: %v", err)
	}
	got, err := f.c.AcceptProposal(f.requester.ID, r.ID)
	if err != nil {
		t.Fatalf("accept proposal: %v", err)
	}
	if got.Status != RequestAccepted || got.AcceptedBy == nil || *got.AcceptedBy != f.driver2.ID {
		t.Fatalf("proposer should become acceptor: %+v", got)
	}
	if got.RequestedTime == nil || !got.RequestedTime.Equal(when) {
		t.Fatalf("proposed time not committed: %v", got.RequestedTime)
	}
}

func TestCancelNeedsReason(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)

	_, err := f.c.CancelRequest(f.requester.ID, r.ID, "")
	wantErr(t, err, KindValidation, "missing_reason")

	got, err := f.c.CancelRequest(f.requester.ID, r.ID, "ordered too much")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != RequestCancelled || got.CancelReason != "ordered too much" {
		t.Fatalf("unexpected request: %+v", got)
	}

	_, err = f.c.CancelRequest(f.requester.ID, r.ID, "again")
	wantErr(t, err, KindConflict, "already_cancelled")
}

func TestCancelClearsAcceptance(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	if _, err := f.c.AcceptRequest(f.driver.ID, r.ID); err != nil {
		t.Fatal(err)
	}

	got, err := f.c.CancelRequest(f.requester.ID, r.ID, "no longer needed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != RequestCancelled {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.AcceptedBy != nil || got.AcceptedAt != nil {
		t.Fatalf("cancelled request retains acceptance: %+v", got)
	}
	// The acceptor is still told the request went away.
	last := f.notices.users[len(f.notices.users)-1]
	if last.event != "request_cancelled" {
		t.Fatalf("acceptor not notified: %+v", f.notices.users)
	}
}

func TestMarkUrgentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)

	got, err := f.c.MarkUrgent(f.requester.ID, r.ID)
	if err != nil || got.Urgency != UrgencyUrgent {
		t.Fatalf("mark urgent: %v %+v", err, got)
	}
	got, err = f.c.MarkUrgent(f.requester.ID, r.ID)
	if err != nil || got.Urgency != UrgencyUrgent {
		t.Fatalf("second mark urgent should be a no-op: %v %+v", err, got)
	}
}

func TestReRequestBroadcastsWithoutStateChange(t *testing.T) {
	f := newFixture(t)
	r, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 20, UrgencyNormal, nil)

	before := len(f.notices.roles)
	got, err := f.c.ReRequest(f.requester.ID, r.ID)
	if err != nil {
		t.Fatalf("re-request: %v", err)
	}
	if got.Status != RequestPending {
		t.Fatalf("re-request changed status to %s", got.Status)
	}
	if len(f.notices.roles) != before+1 || f.notices.roles[before].event != "request_available" {
		t.Fatalf("expected a driver re-broadcast notice, got %+v", f.notices.roles)
	}

	if _, err := f.c.CancelRequest(f.requester.ID, r.ID, "wrong shop"); err != nil {
		t.Fatal(err)
	}
	_, err = f.c.ReRequest(f.requester.ID, r.ID)
	wantErr(t, err, KindConflict, "already_cancelled")
}

func TestExpireSweepSkipsAccepted(t *testing.T) {
	f := newFixture(t)
	stale, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 10, UrgencyNormal, nil)
	taken, _ := f.c.CreateRequest(f.requester.ID, f.shop.ID, 5, UrgencyNormal, nil)
	if _, err := f.c.AcceptRequest(f.driver.ID, taken.ID); err != nil {
		t.Fatal(err)
	}

	// Zero max age makes everything created before "now" stale.
	n, err := f.c.ExpireStaleRequests(-time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}
	got, _ := f.db.GetRequest(stale.ID)
	if got.Status != RequestExpired {
		t.Fatalf("stale request not expired: %s", got.Status)
	}
	got, _ = f.db.GetRequest(taken.ID)
	if got.Status != RequestAccepted {
		t.Fatalf("accepted request must survive the sweep: %s", got.Status)
	}
}
