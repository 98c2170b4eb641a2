package engine

import "testing"

func TestEventBusTypeFilter(t *testing.T) {
	eb := NewEventBus()

	var trips, all int
	eb.SubscribeTypes(func(evt Event) { trips++ }, EventTripChanged)
	eb.Subscribe(func(evt Event) { all++ })

	eb.Emit(Event{Type: EventTripChanged, Payload: TripChangedEvent{TripID: 1}})
	eb.Emit(Event{Type: EventRequestChanged, Payload: RequestChangedEvent{RequestID: 1}})

	if trips != 1 {
		t.Fatalf("filtered subscriber saw %d trip events, want 1", trips)
	}
	if all != 2 {
		t.Fatalf("unfiltered subscriber saw %d events, want 2", all)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := NewEventBus()

	var n int
	id := eb.Subscribe(func(evt Event) { n++ })

	eb.Emit(Event{Type: EventVehicleChanged})
	eb.Unsubscribe(id)
	eb.Emit(Event{Type: EventVehicleChanged})

	if n != 1 {
		t.Fatalf("subscriber saw %d events after unsubscribe, want 1", n)
	}
}

func TestEventBusStampsTimestamp(t *testing.T) {
	eb := NewEventBus()

	var got Event
	eb.Subscribe(func(evt Event) { got = evt })
	eb.Emit(Event{Type: EventLoanChanged})

	if got.Timestamp.IsZero() {
		t.Fatal("emitted event carries no timestamp")
	}
}

func TestEventTypeNames(t *testing.T) {
	cases := map[EventType]string{
		EventRequestChanged:        "request",
		EventTripChanged:           "trip",
		EventLoanChanged:           "loan",
		EventDeliveryChanged:       "delivery",
		EventVehicleChanged:        "vehicle",
		EventMessagingConnected:    "messaging",
		EventMessagingDisconnected: "messaging",
	}
	for et, want := range cases {
		if got := et.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", et, got, want)
		}
	}
}
