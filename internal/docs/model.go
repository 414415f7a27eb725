package docs

import "time"

// Document is an uploaded file's metadata plus its extracted plain text.
// File bytes live in object storage under ObjectKey; IndexRef points at
// the similarity-search index entry, when one exists.
type Document struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64    `gorm:"index;not null" json:"-"`
	FileName      string    `gorm:"type:varchar(255);not null" json:"file_name"`
	MimeType      string    `gorm:"type:varchar(128)" json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ObjectKey     string    `gorm:"type:varchar(512)" json:"-"`
	ExtractedText string    `gorm:"type:text" json:"-"`
	IndexRef      string    `gorm:"type:varchar(128)" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Document) TableName() string { return "documents" }
