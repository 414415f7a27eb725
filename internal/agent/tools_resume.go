package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/resume"
)

// Resume-mutating tools. Each goes through the store accessor under the
// session lock; none touches the resumes table directly.

func registerResumeTools(r *Registry) {
	r.MustRegister(Tool{
		Name:        "add_experience",
		Description: "Add a work experience entry to the user's resume.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Job title"},
				"company": {"type": "string", "description": "Company name"},
				"start": {"type": "string", "description": "Start date, e.g. Jan 2020"},
				"end": {"type": "string", "description": "End date or Present"},
				"description": {"type": "string", "description": "What the user did in the role"}
			},
			"required": ["title", "company"]
		}`),
		Handler: addExperience,
	})

	r.MustRegister(Tool{
		Name:        "add_education",
		Description: "Add an education entry to the user's resume.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"degree": {"type": "string"},
				"institution": {"type": "string"},
				"start_year": {"type": "string"},
				"end_year": {"type": "string"},
				"description": {"type": "string"}
			},
			"required": ["degree", "institution"]
		}`),
		Handler: addEducation,
	})

	r.MustRegister(Tool{
		Name:        "add_project",
		Description: "Add a project entry to the user's resume.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"description": {"type": "string"},
				"url": {"type": "string"},
				"technologies": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["name", "description"]
		}`),
		Handler: addProject,
	})

	r.MustRegister(Tool{
		Name:        "add_certification",
		Description: "Add a certification to the user's resume.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"issuer": {"type": "string"},
				"date": {"type": "string"}
			},
			"required": ["name"]
		}`),
		Handler: addCertification,
	})

	r.MustRegister(Tool{
		Name:        "set_skills",
		Description: "Replace the skills list on the user's resume. Duplicates are dropped.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"skills": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["skills"]
		}`),
		Handler: setSkills,
	})

	r.MustRegister(Tool{
		Name:        "update_summary",
		Description: "Set the professional summary on the user's resume.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"summary": {"type": "string"}
			},
			"required": ["summary"]
		}`),
		Handler: updateSummary,
	})

	r.MustRegister(Tool{
		Name:        "enhance_section",
		Description: "Rewrite one resume section (summary or an experience description) with the language model.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"section": {"type": "string", "enum": ["summary", "experience"]},
				"entry_id": {"type": "string", "description": "Experience entry id, required for section=experience"},
				"instructions": {"type": "string"}
			},
			"required": ["section"]
		}`),
		Handler: enhanceSection,
	})

	r.MustRegister(Tool{
		Name:        "refine_resume",
		Description: "Rewrite the whole resume document according to free-text instructions.",
		Mutating:    true,
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"instructions": {"type": "string"}
			},
			"required": ["instructions"]
		}`),
		Handler: refineResume,
	})

	r.MustRegister(Tool{
		Name:        "update_profile",
		Description: "Update the user's profile fields (name, phone, address, linkedin, headline).",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"phone": {"type": "string"},
				"address": {"type": "string"},
				"linkedin_url": {"type": "string"},
				"headline": {"type": "string"}
			}
		}`),
		Handler: updateProfile,
	})
}

func addExperience(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	entry := resume.Experience{
		ID:          uuid.NewString(),
		Title:       strArg(args, "title"),
		Company:     strArg(args, "company"),
		Dates:       resume.DateRange{Start: strArg(args, "start"), End: strArg(args, "end")},
		Description: strArg(args, "description"),
	}
	doc.Experience = append(doc.Experience, entry)
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added experience %q at %s.", entry.Title, entry.Company), nil
}

func addEducation(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	entry := resume.Education{
		ID:          uuid.NewString(),
		Degree:      strArg(args, "degree"),
		Institution: strArg(args, "institution"),
		Dates:       resume.DateRange{Start: strArg(args, "start_year"), End: strArg(args, "end_year")},
		Description: strArg(args, "description"),
	}
	doc.Education = append(doc.Education, entry)
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s at %s to education.", entry.Degree, entry.Institution), nil
}

func addProject(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	entry := resume.Project{
		ID:           uuid.NewString(),
		Name:         strArg(args, "name"),
		Description:  strArg(args, "description"),
		URL:          strArg(args, "url"),
		Technologies: strSliceArg(args, "technologies"),
	}
	doc.Projects = append(doc.Projects, entry)
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added project %q.", entry.Name), nil
}

func addCertification(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	entry := resume.Certification{
		ID:     uuid.NewString(),
		Name:   strArg(args, "name"),
		Issuer: strArg(args, "issuer"),
		Date:   strArg(args, "date"),
	}
	doc.Certifications = append(doc.Certifications, entry)
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added certification %q.", entry.Name), nil
}

func setSkills(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	doc.Skills = strSliceArg(args, "skills")
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("Skills updated (%d entries).", len(doc.Skills)), nil
}

func updateSummary(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}
	doc.PersonalInfo.Summary = strArg(args, "summary")
	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return "Summary updated.", nil
}

func enhanceSection(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	if deps.Provider == nil {
		return "", fmt.Errorf("no language model configured")
	}
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}

	instructions := strArg(args, "instructions")
	switch strArg(args, "section") {
	case "summary":
		rewritten, err := rewriteText(ctx, deps.Provider, doc.PersonalInfo.Summary, "professional summary", instructions)
		if err != nil {
			return "", err
		}
		doc.PersonalInfo.Summary = rewritten
	case "experience":
		id := strArg(args, "entry_id")
		idx := -1
		for i := range doc.Experience {
			if doc.Experience[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return "", fmt.Errorf("no experience entry with id %q", id)
		}
		rewritten, err := rewriteText(ctx, deps.Provider, doc.Experience[idx].Description, "experience description", instructions)
		if err != nil {
			return "", err
		}
		doc.Experience[idx].Description = rewritten
	default:
		return "", fmt.Errorf("unknown section")
	}

	if err := deps.Resumes.Save(ctx, row, doc); err != nil {
		return "", err
	}
	return "Section rewritten and saved.", nil
}

func rewriteText(ctx context.Context, provider ai.Provider, current, kind, instructions string) (string, error) {
	prompt := fmt.Sprintf("Rewrite this %s for a resume. %s\n\nCurrent text:\n%s\n\nReply with the rewritten text only.",
		kind, instructions, current)
	out, err := provider.Chat(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model returned empty text")
	}
	return out, nil
}

func refineResume(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	if deps.Provider == nil {
		return "", fmt.Errorf("no language model configured")
	}
	row, doc, err := deps.Resumes.GetOrCreate(ctx, deps.User)
	if err != nil {
		return "", err
	}

	current, _ := json.Marshal(doc)
	prompt := fmt.Sprintf(
		"Refine this resume document according to the instructions. Keep the same JSON structure and entry ids.\n"+
			"Instructions: %s\nResume JSON:\n%s\nReply with the full JSON document only.",
		strArg(args, "instructions"), current,
	)

	msgs := []ai.Message{{Role: "user", Content: prompt}}
	out, err := deps.Provider.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	refined, perr := parseDocumentJSON(out)
	if perr != nil {
		msgs = append(msgs,
			ai.Message{Role: "assistant", Content: out},
			ai.Message{Role: "user", Content: "That was not a valid resume JSON document. Fix your output and reply with the JSON only."},
		)
		out, err = deps.Provider.Chat(ctx, msgs)
		if err != nil {
			return "", err
		}
		if refined, perr = parseDocumentJSON(out); perr != nil {
			return "", fmt.Errorf("model output stayed malformed after re-prompt: %w", perr)
		}
	}

	if err := deps.Resumes.Save(ctx, row, refined); err != nil {
		return "", err
	}
	return "Resume refined. " + MarkerResumeDownload, nil
}

func parseDocumentJSON(out string) (*resume.Document, error) {
	s := strings.TrimSpace(out)
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.TrimPrefix(s[i+3:], "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	var doc resume.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func updateProfile(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	updates := map[string]any{}
	for argKey, column := range map[string]string{
		"name":         "name",
		"phone":        "phone",
		"address":      "address",
		"linkedin_url": "linkedin_url",
		"headline":     "headline",
	} {
		if v := strArg(args, argKey); v != "" {
			updates[column] = v
		}
	}
	if len(updates) == 0 {
		return "Nothing to update.", nil
	}
	if err := deps.DB.WithContext(ctx).Model(deps.User).Updates(updates).Error; err != nil {
		return "", fmt.Errorf("save profile: %w", err)
	}
	return "Profile updated.", nil
}
