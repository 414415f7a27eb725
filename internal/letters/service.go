package letters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/models"
	"github.com/careerpilot/careerpilot/internal/resume"
)

// Service runs the multi-step cover-letter generation workflow. A failed
// step marks the job failed rather than leaving it dangling, so a crashed
// generation can be retried or reported.
type Service struct {
	db      *gorm.DB
	repo    *Repo
	resumes *resume.Store
	logger  *slog.Logger
}

func NewService(db *gorm.DB, repo *Repo, resumes *resume.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, repo: repo, resumes: resumes, logger: logger}
}

// RunJob executes one queued generation job end to end and returns the
// inserted letter id.
func (s *Service) RunJob(ctx context.Context, provider ai.Provider, jobID string) (uint64, error) {
	_ = s.repo.UpdateJobStatusRunning(ctx, jobID)

	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("load job: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, job.UserID).Error; err != nil {
		s.fail(ctx, jobID, err)
		return 0, fmt.Errorf("load user: %w", err)
	}

	_, doc, err := s.resumes.GetOrCreate(ctx, &user)
	if err != nil {
		s.fail(ctx, jobID, err)
		return 0, fmt.Errorf("load resume: %w", err)
	}

	content, err := GenerateContent(ctx, provider, &user, doc, job)
	if err != nil {
		s.fail(ctx, jobID, err)
		return 0, fmt.Errorf("generate: %w", err)
	}

	raw, err := json.Marshal(content)
	if err != nil {
		s.fail(ctx, jobID, err)
		return 0, err
	}
	letter := GeneratedCoverLetter{UserID: job.UserID, Content: raw}
	if err := s.repo.InsertLetter(ctx, &letter); err != nil {
		s.fail(ctx, jobID, err)
		return 0, fmt.Errorf("insert letter: %w", err)
	}

	if err := s.repo.MarkJobSucceeded(ctx, jobID, letter.ID); err != nil {
		return 0, fmt.Errorf("mark succeeded: %w", err)
	}
	return letter.ID, nil
}

func (s *Service) fail(ctx context.Context, jobID string, err error) {
	if merr := s.repo.MarkJobFailed(ctx, jobID, err.Error()); merr != nil {
		s.logger.Error("mark job failed", "job_id", jobID, "err", merr)
	}
}

// GenerateContent asks the model for the structured letter. An
// unparsable reply gets exactly one "fix your output" re-prompt before
// the failure surfaces.
func GenerateContent(ctx context.Context, provider ai.Provider, user *models.User, doc *resume.Document, job *GenerationJob) (*Content, error) {
	resumeJSON, _ := json.Marshal(doc)
	prompt := fmt.Sprintf(
		"Write a cover letter as JSON with fields job_title, company, greeting, opening, paragraphs (array), closing, signature.\n"+
			"Candidate: %s\nResume: %s\nTarget role: %s at %s\nPosting: %s\nTone: %s\n"+
			"Reply with the JSON object only.",
		user.Name, resumeJSON, job.JobTitle, job.Company, job.JobPosting, job.Tone,
	)

	msgs := []ai.Message{{Role: "user", Content: prompt}}
	out, err := provider.Chat(ctx, msgs)
	if err != nil {
		return nil, err
	}

	content, perr := parseContent(out)
	if perr == nil {
		return content, nil
	}

	msgs = append(msgs,
		ai.Message{Role: "assistant", Content: out},
		ai.Message{Role: "user", Content: "That was not valid JSON for the requested fields. Fix your output and reply with the JSON object only."},
	)
	out, err = provider.Chat(ctx, msgs)
	if err != nil {
		return nil, err
	}
	content, perr = parseContent(out)
	if perr != nil {
		return nil, fmt.Errorf("model output stayed malformed after re-prompt: %w", perr)
	}
	return content, nil
}

func parseContent(out string) (*Content, error) {
	s := strings.TrimSpace(out)
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.TrimPrefix(s[i+3:], "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	var c Content
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, err
	}
	if c.Opening == "" && len(c.Paragraphs) == 0 {
		return nil, fmt.Errorf("letter content is empty")
	}
	return &c, nil
}
