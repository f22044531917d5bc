package coach

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

const timestampLayout = "15:04"

type Message struct {
	ID        string
	Sender    Sender
	Timestamp string
	Payload   Payload
}

// NewMessage stamps p with a time-ordered id and the local HH:MM time.
func NewMessage(sender Sender, p Payload, now time.Time) Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Message{
		ID:        id.String(),
		Sender:    sender,
		Timestamp: now.Format(timestampLayout),
		Payload:   p,
	}
}

type messageJSON struct {
	ID        string          `json:"id"`
	Sender    Sender          `json:"sender"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	raw, err := MarshalPayload(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		ID:        m.ID,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
		Payload:   raw,
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(b, &mj); err != nil {
		return err
	}
	p, err := UnmarshalPayload(mj.Payload)
	if err != nil {
		return err
	}
	*m = Message{ID: mj.ID, Sender: mj.Sender, Timestamp: mj.Timestamp, Payload: p}
	return nil
}
