package letters

import (
	"time"

	"gorm.io/datatypes"
)

// GeneratedCoverLetter is an immutable, append-only record of one
// generated artifact.
type GeneratedCoverLetter struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64         `gorm:"index;not null" json:"-"`
	Content   datatypes.JSON `gorm:"type:json;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

func (GeneratedCoverLetter) TableName() string { return "generated_cover_letters" }

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// GenerationJob tracks one async cover-letter generation request.
type GenerationJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserID uint64 `gorm:"index;not null;index:uniq_letter_idempo,unique,priority:1"`

	JobTitle   string `gorm:"type:varchar(255)"`
	Company    string `gorm:"type:varchar(255)"`
	JobPosting string `gorm:"type:text"`
	Tone       string `gorm:"type:varchar(32)"`

	// Idempotency keys are scoped per user; two users may reuse the
	// same key without colliding.
	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_letter_idempo,unique,priority:2"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	ResultLetterID *uint64 `gorm:"index"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GenerationJob) TableName() string { return "letter_jobs" }

// Content is the structured cover-letter document stored as JSON.
type Content struct {
	JobTitle   string   `json:"job_title"`
	Company    string   `json:"company"`
	Greeting   string   `json:"greeting"`
	Opening    string   `json:"opening"`
	Paragraphs []string `json:"paragraphs"`
	Closing    string   `json:"closing"`
	Signature  string   `json:"signature"`
}
