package jobsearch

import "context"

// Listing is one job-search result.
type Listing struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Salary      string `json:"salary,omitempty"`
	Description string `json:"description,omitempty"`
}

// Provider is the external job-listing search collaborator.
type Provider interface {
	Search(ctx context.Context, keyword, location string, filters map[string]string) ([]Listing, error)
}

// Posting is the structured content extracted from one job-posting URL.
type Posting struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

// Fetcher pulls a job posting from an arbitrary URL and extracts its
// structured fields.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, url string) (*Posting, error)
}
