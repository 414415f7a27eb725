package chat

// Inbound is the typed envelope around client messages. Legacy clients
// send untyped content; those are treated as plain messages against the
// currently bound page.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	PageID  string `json:"page_id,omitempty"`
}

const (
	InboundMessage    = "message"
	InboundSwitchPage = "switch_page"
	InboundRegenerate = "regenerate"
	InboundStop       = "stop"
)

// Outbound envelopes pushed back over the channel.

type OutboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type OutboundPageCreated struct {
	Type   string `json:"type"`
	PageID string `json:"page_id"`
	Title  string `json:"title"`
}

type OutboundError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type OutboundSubscription struct {
	Type     string `json:"type"`
	IsActive bool   `json:"isActive"`
	Plan     string `json:"plan"`
}

func newMessage(text string) OutboundMessage {
	return OutboundMessage{Type: "message", Message: text}
}

func newPageCreated(pageID, title string) OutboundPageCreated {
	return OutboundPageCreated{Type: "page_created", PageID: pageID, Title: title}
}

func newError(text string) OutboundError {
	return OutboundError{Type: "error", Message: text}
}
