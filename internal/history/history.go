package history

import (
	"sync"
	"time"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat line. ID is its display position.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is an append-only conversation. Reset and Replace are the
// only ways to drop lines.
type Transcript struct {
	mu   sync.RWMutex
	msgs []Message
	now  func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: func() time.Time { return time.Now().UTC() }}
}

// Reset drops every line and, if welcome is non-empty, seeds a single bot line.
func (t *Transcript) Reset(welcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = nil
	if welcome != "" {
		t.appendLocked(SenderBot, welcome, time.Time{})
	}
}

func (t *Transcript) AppendUser(text string) Message {
	return t.append(SenderUser, text)
}

func (t *Transcript) AppendBot(text string) Message {
	return t.append(SenderBot, text)
}

func (t *Transcript) append(sender Sender, text string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(sender, text, time.Time{})
}

func (t *Transcript) appendLocked(sender Sender, text string, ts time.Time) Message {
	if ts.IsZero() {
		ts = t.now()
	}
	m := Message{ID: len(t.msgs), Text: text, Sender: sender, Timestamp: ts}
	t.msgs = append(t.msgs, m)
	return m
}

// Replace swaps the whole transcript, renumbering IDs by position. Zero
// timestamps are filled with the current time.
func (t *Transcript) Replace(msgs []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		t.appendLocked(m.Sender, m.Text, m.Timestamp)
	}
}

// All returns a copy of the transcript.
func (t *Transcript) All() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// Last returns the newest line.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.msgs) == 0 {
		return Message{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}
