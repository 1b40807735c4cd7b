package model

// Wire event types exchanged with the relay.
const (
	EventJoin    = "join"
	EventMessage = "message"
	EventLog     = "log"
)

// Envelope is the single frame format used in both directions.
//
// Client to server: {"event":"join","room":...} or
// {"event":"message","room":...,"message":...}.
// Server to client: {"event":"message","message":...} for forwarded
// payloads, {"event":"log","items":[...]} for unicast diagnostics.
type Envelope struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Message any    `json:"message,omitempty"`
	Items   []any  `json:"items,omitempty"`
}

type Wire struct {
	RX chan Envelope
	TX chan Envelope
}

func NewWire() Wire {
	return Wire{
		RX: make(chan Envelope),
		TX: make(chan Envelope),
	}
}

// Song pairs a score binary with its page ordering. Pages holds 1-based
// source page numbers in display order; it may be reordered, duplicated or
// shortened relative to the natural sequence, and stays empty until the
// page count of a freshly discovered score is known. URL is a transient
// serving path regenerated on every scan, never trusted from disk.
type Song struct {
	Name  string `json:"name"`
	Pages []int  `json:"pages"`
	URL   string `json:"url"`
}
