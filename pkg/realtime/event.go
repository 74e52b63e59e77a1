package realtime

import "encoding/json"

// Event is an inbound push payload. A payload missing the identifier is
// malformed and dropped before it reaches listeners.
type Event struct {
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Status    string          `json:"status,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// Listener observes every well-formed inbound event. Order boards, the
// notification bell and activity feeds all attach here.
type Listener func(Event)
