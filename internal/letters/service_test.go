package letters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/models"
	"github.com/careerpilot/careerpilot/internal/resume"
)

type scriptedProvider struct {
	outputs []string
	calls   int
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.calls++
	if len(p.outputs) == 0 {
		return "", errors.New("script exhausted")
	}
	out := p.outputs[0]
	p.outputs = p.outputs[1:]
	return out, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &resume.Resume{}, &GeneratedCoverLetter{}, &GenerationJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedJob(t *testing.T, db *gorm.DB) (*Service, *Repo, *GenerationJob) {
	t.Helper()
	user := models.User{
		Email:        "ada@example.com",
		Username:     "ada@example.com",
		PasswordHash: "x",
		Name:         "Ada Lovelace",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	repo := NewRepo(db)
	job := GenerationJob{
		ID:       "01TESTJOB00000000000000000",
		UserID:   user.ID,
		JobTitle: "Platform Engineer",
		Company:  "Acme",
		Tone:     "formal",
		Status:   JobQueued,
	}
	if err := repo.CreateJob(context.Background(), &job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	svc := NewService(db, repo, resume.NewStore(db), nil)
	return svc, repo, &job
}

const validLetterJSON = `{
	"job_title": "Platform Engineer",
	"company": "Acme",
	"greeting": "Dear Hiring Manager,",
	"opening": "I am excited to apply.",
	"paragraphs": ["My background fits."],
	"closing": "Thank you for your consideration.",
	"signature": "Ada Lovelace"
}`

func TestRunJob_HappyPath(t *testing.T) {
	db := openTestDB(t)
	svc, repo, job := seedJob(t, db)
	prov := &scriptedProvider{outputs: []string{validLetterJSON}}

	letterID, err := svc.RunJob(context.Background(), prov, job.ID)
	if err != nil {
		t.Fatalf("run job: %v", err)
	}
	if letterID == 0 {
		t.Fatalf("letter id not returned")
	}

	reloaded, err := repo.GetJobByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if reloaded.Status != JobSucceeded {
		t.Fatalf("status = %q, want %q", reloaded.Status, JobSucceeded)
	}
	if reloaded.ResultLetterID == nil || *reloaded.ResultLetterID != letterID {
		t.Fatalf("result letter id not recorded: %+v", reloaded)
	}

	var letter GeneratedCoverLetter
	if err := db.First(&letter, letterID).Error; err != nil {
		t.Fatalf("letter row missing: %v", err)
	}
	var c Content
	if err := json.Unmarshal(letter.Content, &c); err != nil {
		t.Fatalf("letter content invalid: %v", err)
	}
	if c.Company != "Acme" || c.Opening == "" {
		t.Fatalf("unexpected content: %+v", c)
	}
}

func TestRunJob_RepromptsOnceOnMalformedOutput(t *testing.T) {
	db := openTestDB(t)
	svc, _, job := seedJob(t, db)
	prov := &scriptedProvider{outputs: []string{"sorry, here you go: maybe", validLetterJSON}}

	if _, err := svc.RunJob(context.Background(), prov, job.ID); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if prov.calls != 2 {
		t.Fatalf("expected exactly one re-prompt (2 calls), got %d", prov.calls)
	}
}

func TestRunJob_SecondMalformedOutputMarksFailed(t *testing.T) {
	db := openTestDB(t)
	svc, repo, job := seedJob(t, db)
	prov := &scriptedProvider{outputs: []string{"nonsense", "{}"}}

	_, err := svc.RunJob(context.Background(), prov, job.ID)
	if err == nil {
		t.Fatalf("expected failure")
	}

	reloaded, gerr := repo.GetJobByID(context.Background(), job.ID)
	if gerr != nil {
		t.Fatalf("reload job: %v", gerr)
	}
	if reloaded.Status != JobFailed {
		t.Fatalf("status = %q, want %q", reloaded.Status, JobFailed)
	}
	if reloaded.Error == nil || *reloaded.Error == "" {
		t.Fatalf("error detail not recorded")
	}
}

func TestRunJob_ProviderErrorMarksFailed(t *testing.T) {
	db := openTestDB(t)
	svc, repo, job := seedJob(t, db)
	prov := &scriptedProvider{} // script exhausted = provider error

	if _, err := svc.RunJob(context.Background(), prov, job.ID); err == nil {
		t.Fatalf("expected failure")
	}
	reloaded, err := repo.GetJobByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if reloaded.Status != JobFailed {
		t.Fatalf("status = %q, want %q", reloaded.Status, JobFailed)
	}
}

func TestCreateJobOrGetExisting_Idempotent(t *testing.T) {
	db := openTestDB(t)
	_, repo, job := seedJob(t, db)

	key := "client-key-1"
	job2 := GenerationJob{
		ID:             "01TESTJOB00000000000000001",
		UserID:         job.UserID,
		JobTitle:       "Platform Engineer",
		Company:        "Acme",
		Status:         JobQueued,
		IdempotencyKey: &key,
	}
	created, existed, err := repo.CreateJobOrGetExisting(context.Background(), &job2)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if existed {
		t.Fatalf("first create reported as existing")
	}

	dup := GenerationJob{
		ID:             "01TESTJOB00000000000000002",
		UserID:         job.UserID,
		JobTitle:       "Platform Engineer",
		Company:        "Acme",
		Status:         JobQueued,
		IdempotencyKey: &key,
	}
	got, existed, err := repo.CreateJobOrGetExisting(context.Background(), &dup)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if !existed {
		t.Fatalf("duplicate not detected")
	}
	if got.ID != created.ID {
		t.Fatalf("got job %q, want original %q", got.ID, created.ID)
	}
}

func TestCreateJobOrGetExisting_KeyScopedPerUser(t *testing.T) {
	db := openTestDB(t)
	_, repo, job := seedJob(t, db)

	other := models.User{
		Email:        "grace@example.com",
		Username:     "grace@example.com",
		PasswordHash: "x",
		Name:         "Grace Hopper",
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create second user: %v", err)
	}

	key := "client-key-1"
	first := GenerationJob{
		ID:             "01TESTJOB00000000000000003",
		UserID:         job.UserID,
		JobTitle:       "Platform Engineer",
		Company:        "Acme",
		Status:         JobQueued,
		IdempotencyKey: &key,
	}
	if _, existed, err := repo.CreateJobOrGetExisting(context.Background(), &first); err != nil || existed {
		t.Fatalf("first user create: existed=%v err=%v", existed, err)
	}

	second := GenerationJob{
		ID:             "01TESTJOB00000000000000004",
		UserID:         other.ID,
		JobTitle:       "Compiler Engineer",
		Company:        "Initech",
		Status:         JobQueued,
		IdempotencyKey: &key,
	}
	got, existed, err := repo.CreateJobOrGetExisting(context.Background(), &second)
	if err != nil {
		t.Fatalf("second user reusing key: %v", err)
	}
	if existed {
		t.Fatalf("second user's job treated as a duplicate of the first user's")
	}
	if got.ID != second.ID || got.UserID != other.ID {
		t.Fatalf("got job %q for user %d, want %q for user %d", got.ID, got.UserID, second.ID, other.ID)
	}
}
