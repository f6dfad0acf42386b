package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// VerificationRecord is the append-only audit line written once per
// verification call. Rows are never updated; the only delete path is the
// bulk retention purge.
type VerificationRecord struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	SessionID      string            `gorm:"column:session_id;type:text;not null;index"`
	TenantID       snowflake.ID      `gorm:"column:tenant_id;not null;index"`
	Timestamp      time.Time         `gorm:"not null;index"`
	FeatureVector  datatypes.JSONMap `gorm:"column:feature_vector"`
	IsHuman        bool              `gorm:"column:is_human;not null"`
	Confidence     float64           `gorm:"not null"`
	ResponseTimeMs int64             `gorm:"column:response_time_ms;not null"`
}

// TableName sets the database table name.
func (VerificationRecord) TableName() string { return "verification_records" }
