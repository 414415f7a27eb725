package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/agent"
	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/common"
)

// Conn is the transport the channel manager drives. *websocket.Conn
// satisfies it; tests use an in-memory fake.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
}

// Dispatcher produces the assistant's reply for one turn.
type Dispatcher interface {
	Dispatch(ctx context.Context, deps *agent.Deps, history []ai.Message) (string, error)
}

const errorTurnText = "❌ Sorry, an error occurred while processing your request. Please try again."

// Channel owns one user's persistent conversation connection. It binds
// to one page at a time, keeps that page's history in memory, and
// processes turns strictly in arrival order: turn N+1 is not touched
// until turn N's response went out. A stop envelope is the only thing
// handled out of band.
type Channel struct {
	conn       Conn
	writeMu    sync.Mutex
	repo       *Repo
	deps       *agent.Deps
	dispatcher Dispatcher
	window     int
	logger     *slog.Logger

	pageID  *string
	history []Message
}

func NewChannel(conn Conn, repo *Repo, deps *agent.Deps, dispatcher Dispatcher, window int, logger *slog.Logger) *Channel {
	if window <= 0 {
		window = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		conn:       conn,
		repo:       repo,
		deps:       deps,
		dispatcher: dispatcher,
		window:     window,
		logger:     logger,
	}
}

func (c *Channel) send(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Warn("write to channel failed", "err", err)
	}
}

// Push forwards an externally produced payload (e.g. an async generation
// result) to the client.
func (c *Channel) Push(v any) {
	c.send(v)
}

// Run reads envelopes until the connection breaks. A single turn's
// failure never closes the connection; the loop keeps awaiting the next
// envelope.
func (c *Channel) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	envCh := make(chan Inbound, 8)
	go c.readPump(ctx, envCh)

	// Queued envelopes are drained in order even after the connection
	// breaks; the closed channel ends the loop.
	for env := range envCh {
		c.handleEnvelope(ctx, env)
	}
}

// readPump decodes inbound frames. Stop envelopes are acted on
// immediately so a cancel request is not stuck behind the in-flight
// turn; everything else is queued in arrival order.
func (c *Channel) readPump(ctx context.Context, envCh chan<- Inbound) {
	defer close(envCh)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			// Malformed envelope: answer with an error and keep going.
			c.send(newError("unrecognized message"))
			continue
		}
		if env.Type == "" && env.Content == "" {
			c.send(newError("empty message"))
			continue
		}

		if env.Type == InboundStop {
			// Acknowledged, but the in-flight model call is not preempted;
			// the dispatch loop stops at its next iteration boundary.
			if c.deps.Stop != nil {
				c.deps.Stop.Store(true)
			}
			c.send(newMessage("Stop requested."))
			continue
		}

		select {
		case envCh <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) handleEnvelope(ctx context.Context, env Inbound) {
	switch env.Type {
	case InboundSwitchPage:
		c.switchPage(ctx, env.PageID)
	case InboundRegenerate:
		c.handleTurn(ctx, env, true)
	default:
		// message, or a legacy untyped envelope carrying content
		c.handleTurn(ctx, env, false)
	}
}

// switchPage discards in-memory history and loads the requested page's
// persisted messages in creation order.
func (c *Channel) switchPage(ctx context.Context, pageID string) {
	if pageID == "" {
		// Fresh page: unbind; the next message creates one.
		c.pageID = nil
		c.history = nil
		return
	}
	if err := c.bindPage(ctx, pageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.send(newError("page not found"))
			return
		}
		c.logger.Error("switch page failed", "page_id", pageID, "err", err)
		c.send(newError("could not switch page"))
	}
}

func (c *Channel) bindPage(ctx context.Context, pageID string) error {
	if _, err := c.repo.GetPage(ctx, c.deps.User.ID, pageID); err != nil {
		return err
	}
	history, err := c.repo.ListMessagesAsc(ctx, c.deps.User.ID, &pageID)
	if err != nil {
		return err
	}
	_ = c.repo.TouchPage(ctx, c.deps.User.ID, pageID)
	c.pageID = &pageID
	c.history = history
	return nil
}

func (c *Channel) handleTurn(ctx context.Context, env Inbound, regenerate bool) {
	if env.Content == "" {
		c.send(newError("message content required"))
		return
	}

	if env.PageID != "" && (c.pageID == nil || *c.pageID != env.PageID) {
		if err := c.bindPage(ctx, env.PageID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.send(newError("page not found"))
			} else {
				c.logger.Error("bind page failed", "page_id", env.PageID, "err", err)
				c.send(newError("could not open page"))
			}
			return
		}
	}

	if c.pageID == nil {
		if err := c.createPage(ctx, env.Content); err != nil {
			c.logger.Error("create page failed", "err", err)
			c.send(newError("could not start a conversation"))
			return
		}
	}

	if regenerate {
		c.dropLastAssistant(ctx)
	}

	// Persist the user's turn before the model runs, in its own
	// transaction: a failure later never loses the input.
	if !c.lastIsUserTurn(env.Content) {
		userMsg := Message{
			UserID:  c.deps.User.ID,
			PageID:  c.pageID,
			Role:    RoleUser,
			Content: env.Content,
		}
		if err := c.repo.InsertMessage(ctx, &userMsg); err != nil {
			c.logger.Error("persist user message failed", "err", err)
			c.send(newError("could not save your message"))
			return
		}
		c.history = append(c.history, userMsg)
	}

	if c.deps.Stop != nil {
		c.deps.Stop.Store(false)
	}

	reply, err := c.dispatcher.Dispatch(ctx, c.deps, c.recentHistory())
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrStopped):
			reply = "Generation stopped."
		case errors.Is(err, agent.ErrTurnTimeout), errors.Is(err, agent.ErrToolBudget):
			c.logger.Warn("turn hit a limit", "err", err)
			reply = "⏱️ That took too long and was stopped partway. Please try a smaller request."
		default:
			c.logger.Error("dispatch failed", "err", err)
			reply = errorTurnText
		}
	}

	// Assistant turn is a separate transaction from the user turn.
	assistantMsg := Message{
		UserID:  c.deps.User.ID,
		PageID:  c.pageID,
		Role:    RoleAssistant,
		Content: reply,
	}
	if err := c.repo.InsertMessage(ctx, &assistantMsg); err != nil {
		c.logger.Error("persist assistant message failed", "err", err)
		c.send(newError("could not save the reply"))
		return
	}
	c.history = append(c.history, assistantMsg)
	c.send(newMessage(reply))
}

// createPage makes the implicit thread for a first message and tells the
// client its id before processing continues.
func (c *Channel) createPage(ctx context.Context, content string) error {
	pageID, err := common.NewULID()
	if err != nil {
		return err
	}
	page := Page{
		PageID: pageID,
		UserID: c.deps.User.ID,
		Title:  truncateTitle(content, 60),
	}
	if err := c.repo.CreatePage(ctx, &page); err != nil {
		return err
	}
	c.pageID = &page.PageID
	c.history = nil
	c.send(newPageCreated(page.PageID, page.Title))
	return nil
}

// dropLastAssistant removes the newest assistant turn from memory and
// storage for the regenerate flow. The row is matched by page and
// recency, never by a client-supplied id.
func (c *Channel) dropLastAssistant(ctx context.Context) {
	if n := len(c.history); n > 0 && c.history[n-1].Role == RoleAssistant {
		c.history = c.history[:n-1]
	}
	if _, err := c.repo.DeleteLatestAssistant(ctx, c.deps.User.ID, c.pageID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.Error("delete assistant message failed", "err", err)
		}
	}
}

func (c *Channel) lastIsUserTurn(content string) bool {
	n := len(c.history)
	return n > 0 && c.history[n-1].Role == RoleUser && c.history[n-1].Content == content
}

func (c *Channel) recentHistory() []ai.Message {
	msgs := c.history
	if len(msgs) > c.window {
		msgs = msgs[len(msgs)-c.window:]
	}
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func truncateTitle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
