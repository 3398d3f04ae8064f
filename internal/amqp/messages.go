package amqp

import (
	"encoding/json"
	"time"
)

// Event types published on the slip exchange.
const (
	EventSlipGenerated  = "slip.generated"
	EventMemberLifted   = "member.lifted"
	EventPaymentUpdated = "payment.updated"
)

// SlipEventMessage is the lightweight notification published after a slip
// mutation. Consumers fetch the full slip from the store by id, so the
// message only carries identifiers.
type SlipEventMessage struct {
	Type      string    `json:"type"`
	SlipID    string    `json:"slipId"`
	ChittyID  string    `json:"chittyId"`
	Month     int       `json:"month"`
	MemberID  string    `json:"memberId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSlipEvent(eventType, slipID, chittyID string, month int, memberID string) *SlipEventMessage {
	return &SlipEventMessage{
		Type:      eventType,
		SlipID:    slipID,
		ChittyID:  chittyID,
		Month:     month,
		MemberID:  memberID,
		Timestamp: time.Now(),
	}
}

func (m *SlipEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SlipEventFromJSON(data []byte) (*SlipEventMessage, error) {
	var msg SlipEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
