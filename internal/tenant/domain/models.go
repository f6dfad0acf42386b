package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is a registered third-party site whose pages embed the collection script.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	URL       string       `gorm:"type:text;not null;uniqueIndex"`
	Status    string       `gorm:"type:text;not null;default:'active'"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)
