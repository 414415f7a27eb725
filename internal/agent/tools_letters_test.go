package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/letters"
)

// visibilityQueue acts like the rabbitmq publisher but reads the job
// back through a separate root connection, the way the worker does.
// A publish that beats the commit fails here exactly as it would in
// production.
type visibilityQueue struct {
	rootDB *gorm.DB
	seen   []string
}

func (q *visibilityQueue) EnqueueLetterJob(ctx context.Context, jobID string) error {
	if _, err := letters.NewRepo(q.rootDB).GetJobByID(ctx, jobID); err != nil {
		return fmt.Errorf("job %s not visible at publish time: %w", jobID, err)
	}
	q.seen = append(q.seen, jobID)
	return nil
}

func migrateLetters(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(&letters.GeneratedCoverLetter{}, &letters.GenerationJob{}); err != nil {
		t.Fatalf("automigrate letters: %v", err)
	}
}

func TestGenerateCoverLetter_JobCommittedBeforeEnqueue(t *testing.T) {
	r := testRegistry(t)
	db := openTestDB(t)
	migrateLetters(t, db)
	deps := newTestDeps(t, db)

	q := &visibilityQueue{rootDB: db}
	deps.Letters = q

	args, _ := json.Marshal(map[string]any{
		"job_title": "Platform Engineer",
		"company":   "Acme",
	})
	out := r.Invoke(context.Background(), deps, "generate_cover_letter", args)
	if !strings.Contains(out, "being generated") {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(q.seen) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(q.seen))
	}
	job, err := letters.NewRepo(db).GetJobByID(context.Background(), q.seen[0])
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != letters.JobQueued || job.UserID != deps.User.ID {
		t.Fatalf("unexpected job row: %+v", job)
	}
}

func TestListCoverLetters_SkipsUnreadableContent(t *testing.T) {
	r := testRegistry(t)
	db := openTestDB(t)
	migrateLetters(t, db)
	deps := newTestDeps(t, db)

	good := letters.GeneratedCoverLetter{
		UserID:  deps.User.ID,
		Content: datatypes.JSON(`{"job_title": "Platform Engineer", "company": "Acme"}`),
	}
	if err := db.Create(&good).Error; err != nil {
		t.Fatalf("create letter: %v", err)
	}
	bad := letters.GeneratedCoverLetter{
		UserID:  deps.User.ID,
		Content: datatypes.JSON(`{"job_title":`),
	}
	if err := db.Create(&bad).Error; err != nil {
		t.Fatalf("create corrupt letter: %v", err)
	}

	out := r.Invoke(context.Background(), deps, "list_cover_letters", nil)
	if !strings.Contains(out, "Platform Engineer at Acme") {
		t.Fatalf("valid letter missing from output: %q", out)
	}
	if !strings.Contains(out, "unreadable entry") {
		t.Fatalf("corrupt letter not annotated: %q", out)
	}
	if !strings.Contains(out, "2 cover letters") {
		t.Fatalf("unexpected count line: %q", out)
	}
}
