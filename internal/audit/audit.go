package audit

import "time"

// Outcome records what the callback handler did with a decrypted message.
type Outcome string

const (
	OutcomeDispatched  Outcome = "dispatched"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFiltered    Outcome = "filtered"
	OutcomeDropped     Outcome = "dropped"
)

// Event is one accepted callback message.
type Event struct {
	ID         string     `json:"id"`
	ReceivedAt time.Time  `json:"received_at"`
	Channel    string     `json:"channel"`
	MsgID      string     `json:"msg_id"`
	MsgType    string     `json:"msg_type"`
	ChatID     string     `json:"chat_id"`
	ChatType   string     `json:"chat_type"`
	UserID     string     `json:"user_id"`
	Outcome    Outcome    `json:"outcome"`
	Deliveries []Delivery `json:"deliveries,omitempty"`
}

// Delivery is the result of pushing a reply for an event.
type Delivery struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	DeliveredAt time.Time `json:"delivered_at"`
	Channel     string    `json:"channel"`
	ChatID      string    `json:"chat_id"`
	OK          bool      `json:"ok"`
	Runner      string    `json:"runner"`
	Detail      string    `json:"detail"`
}
