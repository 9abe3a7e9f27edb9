package notify

import (
	"encoding/json"
	"testing"
)

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad envelope json: %v", err)
		}
		return env
	default:
		t.Fatal("expected a buffered message")
		return Envelope{}
	}
}

func TestPublishReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	vendor := NewClient(nil)
	driver := NewClient(nil)
	hub.Join(VendorRoom("v1"), vendor)
	hub.Join(AllDriversRoom, driver)

	hub.Publish(VendorRoom("v1"), EventNewOrder, map[string]string{"orderId": "abc"})

	env := receive(t, vendor)
	if env.Event != EventNewOrder || env.Room != VendorRoom("v1") {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	select {
	case <-driver.send:
		t.Fatal("driver should not receive vendor room events")
	default:
	}
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish(OrderRoom("missing"), EventOrderUpdated, nil)
}

func TestLeaveRemovesClientFromAllRooms(t *testing.T) {
	hub := NewHub()
	c := NewClient(nil)
	hub.Join(DriverRoom("d1"), c)
	hub.Join(AllDriversRoom, c)

	if hub.RoomSize(AllDriversRoom) != 1 {
		t.Fatalf("expected one subscriber, got %d", hub.RoomSize(AllDriversRoom))
	}

	hub.Leave(c)
	if hub.RoomSize(DriverRoom("d1")) != 0 || hub.RoomSize(AllDriversRoom) != 0 {
		t.Fatal("expected client to be gone from every room")
	}
}

func TestSlowClientIsDroppedNotBlocked(t *testing.T) {
	hub := NewHub()
	c := NewClient(nil)
	hub.Join(OrderRoom("o1"), c)

	// Overfill the send buffer; Publish must never block the caller.
	for i := 0; i < sendBufferSize+5; i++ {
		hub.Publish(OrderRoom("o1"), EventOrderUpdated, i)
	}
}

func TestRelayDeliversChatToRoomMembers(t *testing.T) {
	hub := NewHub()
	passenger := NewClient(nil)
	driver := NewClient(nil)
	hub.Join(OrderRoom("o1"), passenger)
	hub.Join(OrderRoom("o1"), driver)

	hub.relay(passenger, []byte(`{"room":"order_o1","payload":{"text":"almost there"}}`))

	env := receive(t, driver)
	if env.Event != EventNewMessage || env.Room != OrderRoom("o1") {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	payload, err := json.Marshal(env.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if string(payload) != `{"text":"almost there"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestRelayDropsFramesForUnjoinedRooms(t *testing.T) {
	hub := NewHub()
	sender := NewClient(nil)
	member := NewClient(nil)
	hub.Join(OrderRoom("o1"), sender)
	hub.Join(OrderRoom("o2"), member)

	hub.relay(sender, []byte(`{"room":"order_o2","payload":{"text":"hi"}}`))

	select {
	case <-member.send:
		t.Fatal("frames for rooms the sender has not joined must be dropped")
	default:
	}
}

func TestRelayIgnoresMalformedFrames(t *testing.T) {
	hub := NewHub()
	c := NewClient(nil)
	hub.Join(OrderRoom("o1"), c)

	hub.relay(c, []byte(`not json`))
	hub.relay(c, []byte(`{"payload":{"text":"no room"}}`))

	select {
	case <-c.send:
		t.Fatal("malformed frames must not publish")
	default:
	}
}

func TestRoomNaming(t *testing.T) {
	if OrderRoom("x") != "order_x" {
		t.Fatalf("unexpected order room: %s", OrderRoom("x"))
	}
	if VendorRoom("v") != "vendor_v" || PassengerRoom("p") != "passenger_p" || DriverRoom("d") != "driver_d" {
		t.Fatal("unexpected role room naming")
	}
}
