package resume

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Document is the single JSON-shaped record holding a user's structured
// CV data. The whole document is read, modified in memory and rewritten;
// there are no partial-field updates at the storage layer.
type Document struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []string        `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
}

type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Linkedin string `json:"linkedin"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// DateRange is the canonical {start, end} shape. Legacy documents store
// flat free-text ranges ("Jan 2020 - Present"); those are parsed at the
// unmarshal boundary so consuming code only ever sees the split form.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (d *DateRange) UnmarshalJSON(b []byte) error {
	var flat string
	if err := json.Unmarshal(b, &flat); err == nil {
		d.Start, d.End = splitDateRange(flat)
		return nil
	}
	type alias DateRange
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*d = DateRange(a)
	return nil
}

var rangeSeparators = []string{"–", "—", " - ", " to "}

func splitDateRange(s string) (string, string) {
	for _, sep := range rangeSeparators {
		if i := strings.Index(s, sep); i >= 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):])
		}
	}
	return strings.TrimSpace(s), ""
}

type Experience struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Dates       DateRange `json:"dates"`
	Description string    `json:"description"`
}

type Education struct {
	ID          string    `json:"id"`
	Degree      string    `json:"degree"`
	Institution string    `json:"institution"`
	Dates       DateRange `json:"dates"`
	Description string    `json:"description"`
}

type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Normalize fixes missing entry ids, de-duplicates skills and drops blank
// ones. It is idempotent; date ranges are already canonical after
// unmarshal.
func (doc *Document) Normalize() {
	for i := range doc.Experience {
		if doc.Experience[i].ID == "" {
			doc.Experience[i].ID = uuid.NewString()
		}
	}
	for i := range doc.Education {
		if doc.Education[i].ID == "" {
			doc.Education[i].ID = uuid.NewString()
		}
	}
	for i := range doc.Projects {
		if doc.Projects[i].ID == "" {
			doc.Projects[i].ID = uuid.NewString()
		}
	}
	for i := range doc.Certifications {
		if doc.Certifications[i].ID == "" {
			doc.Certifications[i].ID = uuid.NewString()
		}
	}
	doc.Skills = dedupeSkills(doc.Skills)
}

func dedupeSkills(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
