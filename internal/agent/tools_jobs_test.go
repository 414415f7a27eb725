package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/careerpilot/careerpilot/internal/jobsearch"
)

type capturingSearch struct {
	keyword  string
	location string
	filters  map[string]string
}

func (s *capturingSearch) Search(_ context.Context, keyword, location string, filters map[string]string) ([]jobsearch.Listing, error) {
	s.keyword, s.location, s.filters = keyword, location, filters
	return []jobsearch.Listing{{Title: "Platform Engineer", Company: "Acme", Location: "Remote", URL: "https://jobs.example.com/1"}}, nil
}

func TestSearchJobs_RemoteFilterMapsToProviderBoolean(t *testing.T) {
	r := testRegistry(t)
	deps := newTestDeps(t, openTestDB(t))
	search := &capturingSearch{}
	deps.Search = search

	args, _ := json.Marshal(map[string]any{"keyword": "go engineer", "remote": "remote"})
	out := r.Invoke(context.Background(), deps, "search_jobs", args)
	if !strings.Contains(out, "Platform Engineer at Acme") {
		t.Fatalf("unexpected output: %q", out)
	}
	if got := search.filters["remote"]; got != "true" {
		t.Fatalf(`filters["remote"] = %q, want "true"`, got)
	}

	args, _ = json.Marshal(map[string]any{"keyword": "go engineer", "remote": "onsite"})
	r.Invoke(context.Background(), deps, "search_jobs", args)
	if _, ok := search.filters["remote"]; ok {
		t.Fatalf("onsite search must not set a remote filter: %v", search.filters)
	}

	args, _ = json.Marshal(map[string]any{"keyword": "go engineer", "remote": "any"})
	r.Invoke(context.Background(), deps, "search_jobs", args)
	if len(search.filters) != 0 {
		t.Fatalf(`"any" search must pass no filters: %v`, search.filters)
	}
}
