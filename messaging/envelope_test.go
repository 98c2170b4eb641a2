package messaging

import "testing"

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope("entity_changed", "depot-1", EntityEvent{
		Entity:   "request",
		EntityID: 42,
		Status:   "accepted",
		Detail:   "accepted by driver 3",
	})
	if env.MsgID == "" {
		t.Fatal("envelope needs an id")
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ev, ok := decoded.Payload.(EntityEvent)
	if !ok {
		t.Fatalf("payload type: %T", decoded.Payload)
	}
	if ev.EntityID != 42 || ev.Status != "accepted" || decoded.DepotID != "depot-1" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	env := NewEnvelope("mystery", "depot-1", Notice{Event: "x"})
	data, _ := env.Encode()
	if _, err := DecodeEnvelope(data); err == nil {
		t.Fatal("unknown msg_type must fail decode")
	}
}

func TestNoticeTopics(t *testing.T) {
	if got := NoticeTopic("depotflow/notices", 7); got != "depotflow/notices/user/7" {
		t.Fatalf("user topic: %s", got)
	}
	if got := RoleNoticeTopic("depotflow/notices", "driver"); got != "depotflow/notices/role/driver" {
		t.Fatalf("role topic: %s", got)
	}
}
