package shopapi

import (
	"bytes"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// Credentials is the login and register payload. The backend expects the
// password in cleartext.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginReply is the successful part of a /login answer.
type LoginReply struct {
	Token string
	User  string
}

// envelope is the {success, message} shape every non-list endpoint replies with.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	User    string `json:"user,omitempty"`
}

// Product is a catalog item as returned by /search.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
}

// SearchQuery holds the free-text query and the filters sent to /search.
// An empty Category means unfiltered.
type SearchQuery struct {
	Text     string
	Category string
	MinPrice float64
	MaxPrice float64
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type purchaseRequest struct {
	ProductID int64 `json:"product_id"`
}

type saveChatRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// HistoryEntry is one stored chat line from /chat_history.
type HistoryEntry struct {
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	Timestamp Timestamp `json:"timestamp"`
}

// Timestamp accepts the formats the backend has been seen to emit:
// RFC 3339, SQLite's "YYYY-MM-DD HH:MM:SS" and epoch milliseconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		t.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	// unknown layout: leave zero, callers substitute the receive time
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(t.Time.UTC().Format(time.RFC3339))
}
