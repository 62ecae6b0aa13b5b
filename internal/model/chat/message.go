package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one entry of the append-only conversation log.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	IsFirst   bool      `json:"isFirst,omitempty"` // synthetic opening greeting
	CreatedAt time.Time `json:"createdAt"`
}
