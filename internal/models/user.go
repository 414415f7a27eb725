package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the identity record. Tool handlers mutate profile fields; rows
// are never deleted by this subsystem.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	Name        string `gorm:"type:varchar(128)" json:"name"`
	Phone       string `gorm:"type:varchar(32)" json:"phone"`
	Address     string `gorm:"type:varchar(255)" json:"address"`
	LinkedinURL string `gorm:"type:varchar(255)" json:"linkedin_url"`
	Skills      string `gorm:"type:text" json:"skills"`
	Headline    string `gorm:"type:varchar(255)" json:"headline"`

	Preferences datatypes.JSON `gorm:"type:json" json:"preferences"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
