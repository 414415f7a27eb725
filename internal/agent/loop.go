package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/careerpilot/careerpilot/internal/ai"
)

var (
	// ErrTurnTimeout means the wall-clock ceiling for one turn expired.
	ErrTurnTimeout = errors.New("turn timed out")
	// ErrToolBudget means the model exceeded the tool-call ceiling.
	ErrToolBudget = errors.New("tool call budget exhausted")
	// ErrStopped means the client cancelled the turn between iterations.
	ErrStopped = errors.New("turn stopped by client")
)

// Loop drives one conversational turn: it hands the model the history
// plus the tool catalog, executes the tool calls it decides on, and
// returns the final text. Both a tool-call ceiling and a wall-clock
// deadline bound the turn.
type Loop struct {
	provider     ai.Provider
	registry     *Registry
	maxToolCalls int
	turnTimeout  time.Duration
	logger       *slog.Logger
}

func NewLoop(provider ai.Provider, registry *Registry, maxToolCalls int, turnTimeout time.Duration, logger *slog.Logger) *Loop {
	if maxToolCalls <= 0 {
		maxToolCalls = 8
	}
	if turnTimeout <= 0 {
		turnTimeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		provider:     provider,
		registry:     registry,
		maxToolCalls: maxToolCalls,
		turnTimeout:  turnTimeout,
		logger:       logger,
	}
}

type decision struct {
	Action   string          `json:"action"`
	Tool     string          `json:"tool,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Response string          `json:"response,omitempty"`
}

const fixOutputPrompt = `Your previous output was not valid JSON for the required decision format. ` +
	`Reply with exactly one JSON object: {"action":"tool_call","tool":"<name>","args":{...}} ` +
	`or {"action":"final","response":"<text>"}. Fix your output.`

// Dispatch runs one turn. history must already end with the user's
// latest message.
func (l *Loop) Dispatch(ctx context.Context, deps *Deps, history []ai.Message) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, l.turnTimeout)
	defer cancel()

	msgs := make([]ai.Message, 0, len(history)+2)
	msgs = append(msgs, ai.Message{Role: "system", Content: l.systemPrompt()})
	msgs = append(msgs, history...)

	toolCalls := 0
	reprompted := false

	for {
		out, err := l.provider.Chat(tctx, msgs)
		if err != nil {
			if tctx.Err() != nil {
				return "", ErrTurnTimeout
			}
			return "", fmt.Errorf("model call: %w", err)
		}

		d, structured, perr := parseDecision(out)
		if !structured {
			// Plain text is a final answer.
			return out, nil
		}
		if perr != nil {
			if reprompted {
				return "", fmt.Errorf("model output stayed malformed after re-prompt: %w", perr)
			}
			reprompted = true
			msgs = append(msgs,
				ai.Message{Role: "assistant", Content: out},
				ai.Message{Role: "user", Content: fixOutputPrompt},
			)
			continue
		}

		if d.Action == "final" {
			return d.Response, nil
		}

		if deps.Stop != nil && deps.Stop.Load() {
			return "", ErrStopped
		}

		toolCalls++
		if toolCalls > l.maxToolCalls {
			return "", ErrToolBudget
		}

		result := l.registry.Invoke(tctx, deps, d.Tool, d.Args)
		l.logger.Info("tool invoked", "tool", d.Tool, "result_len", len(result))

		msgs = append(msgs,
			ai.Message{Role: "assistant", Content: out},
			ai.Message{Role: "tool", Content: fmt.Sprintf("Result of %s: %s", d.Tool, result)},
		)

		if tctx.Err() != nil {
			return "", ErrTurnTimeout
		}
	}
}

// parseDecision reports whether the output looked like a structured
// decision at all, and if so whether it decoded into a usable one.
func parseDecision(out string) (*decision, bool, error) {
	s := strings.TrimSpace(out)
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.TrimPrefix(s[i+3:], "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		return nil, false, nil
	}

	var d decision
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, true, fmt.Errorf("decode decision: %w", err)
	}
	switch d.Action {
	case "tool_call":
		if d.Tool == "" {
			return nil, true, errors.New("tool_call decision without a tool name")
		}
		return &d, true, nil
	case "final":
		return &d, true, nil
	default:
		return nil, true, fmt.Errorf("unknown action %q", d.Action)
	}
}

func (l *Loop) systemPrompt() string {
	catalog, _ := json.Marshal(l.registry.Catalog())
	var b strings.Builder
	b.WriteString("You are a career assistant. You help with resumes, cover letters, job search and application forms.\n")
	b.WriteString("When the user's intent maps to a tool, call it; do not pretend to have done work without the tool.\n\n")
	b.WriteString("Available tools (JSON schemas describe the arguments you may pass):\n")
	b.Write(catalog)
	b.WriteString("\n\nTo call a tool, reply with exactly one JSON object: {\"action\":\"tool_call\",\"tool\":\"<name>\",\"args\":{...}}.\n")
	b.WriteString("To answer the user, reply with {\"action\":\"final\",\"response\":\"<text>\"} or plain text.\n")
	b.WriteString("You may embed the markers " + MarkerResumeDownload + ", " + MarkerCoverLetterDownload + " or " + MarkerJobResults + " where the client should offer a download or interactive block.\n")
	return b.String()
}
