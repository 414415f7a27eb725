package jobsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AdzunaProvider searches job listings through the Adzuna REST API.
type AdzunaProvider struct {
	BaseURL string
	AppID   string
	AppKey  string
	Country string
	Client  *http.Client
}

func NewAdzunaProvider(appID, appKey, country string) *AdzunaProvider {
	if country == "" {
		country = "us"
	}
	return &AdzunaProvider{
		BaseURL: "https://api.adzuna.com/v1/api/jobs",
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type adzunaResp struct {
	Results []struct {
		Title   string `json:"title"`
		Company struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		RedirectURL string  `json:"redirect_url"`
		SalaryMin   float64 `json:"salary_min"`
		SalaryMax   float64 `json:"salary_max"`
		Description string  `json:"description"`
	} `json:"results"`
}

func (p *AdzunaProvider) Search(ctx context.Context, keyword, location string, filters map[string]string) ([]Listing, error) {
	q := url.Values{}
	q.Set("app_id", p.AppID)
	q.Set("app_key", p.AppKey)
	q.Set("what", keyword)
	q.Set("results_per_page", "10")
	if location != "" {
		q.Set("where", location)
	}
	for k, v := range filters {
		switch k {
		case "remote":
			if v == "true" {
				q.Set("what_or", "remote")
			}
		case "full_time", "part_time", "contract", "permanent":
			q.Set(k, v)
		}
	}

	endpoint := fmt.Sprintf("%s/%s/search/1?%s", p.BaseURL, p.Country, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("adzuna: status %d", resp.StatusCode)
	}

	var decoded adzunaResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	out := make([]Listing, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		salary := ""
		if r.SalaryMin > 0 || r.SalaryMax > 0 {
			salary = fmt.Sprintf("%.0f-%.0f", r.SalaryMin, r.SalaryMax)
		}
		out = append(out, Listing{
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			URL:         r.RedirectURL,
			Salary:      salary,
			Description: r.Description,
		})
	}
	return out, nil
}
