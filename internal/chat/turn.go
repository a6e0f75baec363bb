package chat

import "time"

// Phase is the interaction state of the controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingResponse
)

func (p Phase) String() string {
	if p == PhaseAwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

type TurnKind string

const (
	TurnSearch   TurnKind = "search"
	TurnPurchase TurnKind = "purchase"
)

// TurnStatus tracks the two phases of a turn: it is pending while the
// request is out, then either committed (products/stock updated, reply
// appended), rolled back (local state untouched, apology appended) or
// discarded (the conversation was reset underneath it).
type TurnStatus string

const (
	TurnPending    TurnStatus = "pending"
	TurnCommitted  TurnStatus = "committed"
	TurnRolledBack TurnStatus = "rolled_back"
	TurnDiscarded  TurnStatus = "discarded"
)

// Turn is one user-initiated interaction and its outcome.
type Turn struct {
	ID        string
	Kind      TurnKind
	Status    TurnStatus
	Query     string
	ProductID int64
	Results   int
	Reply     string
	Err       error
	Started   time.Time
	Finished  time.Time
}

type turn struct {
	Turn
	gen     uint64
	filters Filters
	// user is the display name when the turn started.
	user string
}
