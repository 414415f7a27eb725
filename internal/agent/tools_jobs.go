package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

func registerJobTools(r *Registry) {
	r.MustRegister(Tool{
		Name:        "search_jobs",
		Description: "Search external job listings by keyword and location.",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"keyword": {"type": "string"},
				"location": {"type": "string"},
				"remote": {"type": "string", "enum": ["any", "remote", "onsite"]}
			},
			"required": ["keyword"]
		}`),
		Handler: searchJobs,
	})

	r.MustRegister(Tool{
		Name:        "fetch_job_posting",
		Description: "Fetch a job-posting URL and extract its title, company, description and requirements.",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string"}
			},
			"required": ["url"]
		}`),
		Handler: fetchJobPosting,
	})
}

func searchJobs(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	if deps.Search == nil {
		return "", fmt.Errorf("job search is not configured")
	}
	filters := map[string]string{}
	// The provider's remote filter is boolean; "onsite" has no upstream
	// counterpart and means no filter.
	if strArg(args, "remote") == "remote" {
		filters["remote"] = "true"
	}
	listings, err := deps.Search.Search(ctx, strArg(args, "keyword"), strArg(args, "location"), filters)
	if err != nil {
		return "", fmt.Errorf("search jobs: %w", err)
	}
	if len(listings) == 0 {
		return "No jobs found for that search.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d listings %s\n", len(listings), MarkerJobResults)
	for i, l := range listings {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s at %s (%s) %s\n", l.Title, l.Company, l.Location, l.URL)
	}
	return b.String(), nil
}

func fetchJobPosting(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	if deps.Fetcher == nil {
		return "", fmt.Errorf("url fetching is not configured")
	}
	posting, err := deps.Fetcher.FetchAndExtract(ctx, strArg(args, "url"))
	if err != nil {
		return "", fmt.Errorf("fetch posting: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\n", posting.Title, posting.Company)
	if len(posting.Requirements) > 0 {
		fmt.Fprintf(&b, "Requirements:\n")
		for _, req := range posting.Requirements {
			fmt.Fprintf(&b, "- %s\n", req)
		}
	}
	desc := posting.Description
	if len(desc) > 2000 {
		desc = desc[:2000] + "…"
	}
	fmt.Fprintf(&b, "Description:\n%s\n", desc)
	return b.String(), nil
}
