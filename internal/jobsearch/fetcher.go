package jobsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher extracts job-posting fields from arbitrary pages with a
// best-effort selector pass.
type CollyFetcher struct {
	userAgent string
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	}
}

func (f *CollyFetcher) FetchAndExtract(ctx context.Context, url string) (*Posting, error) {
	c := colly.NewCollector()
	c.SetRequestTimeout(25 * time.Second)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, RandomDelay: 300 * time.Millisecond})

	var out Posting
	var reqErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", f.userAgent)
	})

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if out.Title == "" {
			out.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if t := strings.TrimSpace(e.Text); t != "" {
			out.Title = t
		}
	})

	c.OnHTML(`meta[property="og:site_name"]`, func(e *colly.HTMLElement) {
		if out.Company == "" {
			out.Company = strings.TrimSpace(e.Attr("content"))
		}
	})

	c.OnHTML("body", func(e *colly.HTMLElement) {
		text := strings.TrimSpace(e.DOM.Text())
		if len(text) > 8000 {
			text = text[:8000]
		}
		out.Description = text
	})

	c.OnHTML("li", func(e *colly.HTMLElement) {
		t := strings.TrimSpace(e.Text)
		lower := strings.ToLower(t)
		if t == "" || len(t) > 300 {
			return
		}
		if strings.Contains(lower, "experience") || strings.Contains(lower, "required") ||
			strings.Contains(lower, "proficien") || strings.Contains(lower, "degree") {
			out.Requirements = append(out.Requirements, t)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	c.Wait()
	if reqErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, reqErr)
	}
	if out.Title == "" && out.Description == "" {
		return nil, fmt.Errorf("fetch %s: no extractable content", url)
	}
	return &out, nil
}
