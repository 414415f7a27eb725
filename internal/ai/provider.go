package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the opaque language-model collaborator: messages in, text
// out, may fail. Transient failures are reported as ordinary errors.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
