package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/letters"
)

func registerLetterTools(r *Registry) {
	r.MustRegister(Tool{
		Name:        "generate_cover_letter",
		Description: "Queue generation of a cover letter for a specific role. The finished letter is pushed to the user when ready.",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"job_title": {"type": "string"},
				"company": {"type": "string"},
				"job_posting": {"type": "string", "description": "Posting text to tailor the letter to"},
				"tone": {"type": "string", "enum": ["formal", "conversational", "enthusiastic"]}
			},
			"required": ["job_title", "company"]
		}`),
		Handler: generateCoverLetter,
	})

	r.MustRegister(Tool{
		Name:        "list_cover_letters",
		Description: "List the user's previously generated cover letters.",
		Schema:      json.RawMessage(`{"type": "object", "properties": {}}`),
		Handler:     listCoverLetters,
	})
}

func generateCoverLetter(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	if deps.Letters == nil {
		return "", fmt.Errorf("letter generation is not configured")
	}

	jobID, err := common.NewULID()
	if err != nil {
		return "", err
	}

	job := letters.GenerationJob{
		ID:         jobID,
		UserID:     deps.User.ID,
		JobTitle:   strArg(args, "job_title"),
		Company:    strArg(args, "company"),
		JobPosting: strArg(args, "job_posting"),
		Tone:       strArg(args, "tone"),
		Status:     letters.JobQueued,
	}
	if err := letters.NewRepo(deps.DB).CreateJob(ctx, &job); err != nil {
		return "", fmt.Errorf("create generation job: %w", err)
	}
	// Publish only once the job row is committed; a worker that wins the
	// race against an uncommitted row would dead-letter the message.
	deps.AfterCommit(func(ctx context.Context) error {
		return deps.Letters.EnqueueLetterJob(ctx, jobID)
	})
	return fmt.Sprintf("Cover letter for %s at %s is being generated (job %s). It will be delivered here shortly.",
		job.JobTitle, job.Company, jobID), nil
}

func listCoverLetters(ctx context.Context, deps *Deps, _ map[string]any) (string, error) {
	rows, err := letters.NewRepo(deps.DB).ListLetters(ctx, deps.User.ID, 10)
	if err != nil {
		return "", fmt.Errorf("list letters: %w", err)
	}
	if len(rows) == 0 {
		return "No cover letters generated yet.", nil
	}
	out := fmt.Sprintf("%d cover letters available. %s\n", len(rows), MarkerCoverLetterDownload)
	for _, row := range rows {
		var c letters.Content
		if err := json.Unmarshal(row.Content, &c); err != nil {
			out += fmt.Sprintf("- #%d (unreadable entry) (%s)\n", row.ID, row.CreatedAt.Format("2006-01-02"))
			continue
		}
		out += fmt.Sprintf("- #%d %s at %s (%s)\n", row.ID, c.JobTitle, c.Company, row.CreatedAt.Format("2006-01-02"))
	}
	return out, nil
}
