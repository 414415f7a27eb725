package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/careerpilot/careerpilot/internal/ai"
)

// scriptedProvider replays canned model outputs and records every
// conversation it was shown.
type scriptedProvider struct {
	outputs []string
	calls   [][]ai.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.calls = append(p.calls, append([]ai.Message(nil), messages...))
	if len(p.outputs) == 0 {
		return "", fmt.Errorf("script exhausted")
	}
	out := p.outputs[0]
	p.outputs = p.outputs[1:]
	return out, nil
}

func history(content string) []ai.Message {
	return []ai.Message{{Role: "user", Content: content}}
}

func TestDispatch_PlainTextIsFinal(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{"Here is some advice."}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))

	out, err := loop.Dispatch(context.Background(), deps, history("help me"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "Here is some advice." {
		t.Fatalf("unexpected reply: %q", out)
	}
	if len(prov.calls) != 1 {
		t.Fatalf("expected one model call, got %d", len(prov.calls))
	}
	if prov.calls[0][0].Role != "system" {
		t.Fatalf("system prompt missing")
	}
}

func TestDispatch_FinalDecisionJSON(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{`{"action":"final","response":"done"}`}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))

	out, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected reply: %q", out)
	}
}

func TestDispatch_ToolCallThenFinal(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{
		`{"action":"tool_call","tool":"add_education","args":{"degree":"B.Sc.","institution":"MIT","start_year":"2018","end_year":"2022"}}`,
		`{"action":"final","response":"Added your degree."}`,
	}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	db := openTestDB(t)
	deps := newTestDeps(t, db)

	out, err := loop.Dispatch(context.Background(), deps, history("add my B.Sc. from MIT, 2018 to 2022"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "Added your degree." {
		t.Fatalf("unexpected reply: %q", out)
	}

	_, doc, err := deps.Resumes.GetOrCreate(context.Background(), deps.User)
	if err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if len(doc.Education) != 1 {
		t.Fatalf("expected 1 education entry, got %d", len(doc.Education))
	}
	e := doc.Education[0]
	if e.Degree != "B.Sc." || e.Institution != "MIT" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Dates.Start != "2018" || e.Dates.End != "2022" {
		t.Fatalf("unexpected dates: %+v", e.Dates)
	}

	// second model call must carry the tool result
	second := prov.calls[1]
	last := second[len(second)-1]
	if last.Role != "tool" || !strings.Contains(last.Content, "add_education") {
		t.Fatalf("tool result not fed back: %+v", last)
	}
}

func TestDispatch_OneRepromptOnMalformedJSON(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{
		`{"action":"tool_call","tool":`, // broken JSON
		`{"action":"final","response":"recovered"}`,
	}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))

	out, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "recovered" {
		t.Fatalf("unexpected reply: %q", out)
	}

	second := prov.calls[1]
	last := second[len(second)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "Fix your output") {
		t.Fatalf("re-prompt missing: %+v", last)
	}
}

func TestDispatch_SecondMalformedOutputFails(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{
		`{"action":"tool_call","tool":`,
		`{"action":"wat"}`,
	}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))

	_, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if err == nil {
		t.Fatalf("expected error after second malformed output")
	}
}

func TestDispatch_ToolBudgetExceeded(t *testing.T) {
	call := `{"action":"tool_call","tool":"list_documents","args":{}}`
	prov := &scriptedProvider{outputs: []string{call, call, call, call}}
	loop := NewLoop(prov, testRegistry(t), 2, time.Minute, nil)
	db := openTestDB(t)
	deps := newTestDeps(t, db)

	_, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if !errors.Is(err, ErrToolBudget) {
		t.Fatalf("expected ErrToolBudget, got %v", err)
	}
}

func TestDispatch_StopFlagHonoredAtBoundary(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{
		`{"action":"tool_call","tool":"list_documents","args":{}}`,
	}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))
	deps.Stop.Store(true)

	_, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDispatch_InvalidToolArgsFedBackAsResult(t *testing.T) {
	prov := &scriptedProvider{outputs: []string{
		`{"action":"tool_call","tool":"add_experience","args":{"title":42}}`,
		`{"action":"final","response":"sorry"}`,
	}}
	loop := NewLoop(prov, testRegistry(t), 8, time.Minute, nil)
	deps := newTestDeps(t, openTestDB(t))

	out, err := loop.Dispatch(context.Background(), deps, history("hi"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "sorry" {
		t.Fatalf("unexpected reply: %q", out)
	}
	second := prov.calls[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "invalid arguments for add_experience") {
		t.Fatalf("validation feedback missing: %q", last.Content)
	}
}
