package agent

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/docs"
	"github.com/careerpilot/careerpilot/internal/jobsearch"
	"github.com/careerpilot/careerpilot/internal/models"
	"github.com/careerpilot/careerpilot/internal/resume"
)

// LetterQueue enqueues an async cover-letter generation job.
type LetterQueue interface {
	EnqueueLetterJob(ctx context.Context, jobID string) error
}

// Deps carries the collaborators a tool handler may need. The registry
// injects them per invocation; the model only ever supplies the declared
// schema arguments, never a collaborator.
type Deps struct {
	DB   *gorm.DB
	User *models.User
	Lock *Lock

	// Stop is set when the client asked to cancel the in-flight turn.
	Stop *atomic.Bool

	Resumes   *resume.Store
	Documents *docs.Store
	Index     docs.SimilarityIndex
	Extractor docs.Extractor
	Search    jobsearch.Provider
	Fetcher   jobsearch.Fetcher
	Letters   LetterQueue
	Provider  ai.Provider

	afterCommit []func(context.Context) error
}

// AfterCommit defers fn until the tool's transaction has committed, so
// side effects outside the database (queue publishes, notifications)
// never race a rollback. Without a transaction fn runs as soon as the
// handler succeeds. Hook failures are logged, not surfaced: the
// database work already stands.
func (d *Deps) AfterCommit(fn func(context.Context) error) {
	d.afterCommit = append(d.afterCommit, fn)
}

// withTx rebinds the database-backed collaborators to a transaction.
func (d *Deps) withTx(tx *gorm.DB) *Deps {
	out := *d
	out.DB = tx
	if d.Resumes != nil {
		out.Resumes = d.Resumes.WithTx(tx)
	}
	if d.Documents != nil {
		out.Documents = d.Documents.WithTx(tx)
	}
	return &out
}

// Handler is a plain function taking explicit dependencies, so tools are
// unit-testable without any ambient session or user.
type Handler func(ctx context.Context, deps *Deps, args map[string]any) (string, error)

// Tool couples a name and input schema with its handler. Mutating tools
// run under the session lock and inside a transaction.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Mutating    bool
	Handler     Handler
}
