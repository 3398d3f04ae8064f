package amqp

import (
	"testing"
	"time"
)

func TestSlipEventRoundTrip(t *testing.T) {
	msg := NewSlipEvent(EventMemberLifted, "slip-1", "chitty-1", 3, "member-1")
	if msg.Timestamp.IsZero() {
		t.Error("NewSlipEvent should stamp the event")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := SlipEventFromJSON(body)
	if err != nil {
		t.Fatalf("SlipEventFromJSON: %v", err)
	}
	if got.Type != EventMemberLifted || got.SlipID != "slip-1" ||
		got.ChittyID != "chitty-1" || got.Month != 3 || got.MemberID != "member-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp.Truncate(time.Nanosecond)) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSlipEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := SlipEventFromJSON([]byte("not json at all")); err == nil {
		t.Error("garbage payload should not parse")
	}
}
