package storage

import "time"

// Event is one finished conversation turn.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	TurnID    string    `json:"turn_id"`
	Username  string    `json:"username"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`

	// search turns
	Query    string  `json:"query,omitempty"`
	Category string  `json:"category,omitempty"`
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
	Results  int     `json:"results,omitempty"`

	// purchase turns
	ProductID int64 `json:"product_id,omitempty"`

	BotReply string `json:"bot_reply"`
	Error    string `json:"error,omitempty"`
	Elapsed  int64  `json:"elapsed_ms"`
}

// Recorder abstracts persistence of turn events.
// LoadEvents returns events in the order they were appended.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}
