package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() verificationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *verificationdomain.VerificationRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]verificationdomain.VerificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []verificationdomain.VerificationRecord
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&verificationdomain.VerificationRecord{})
	return result.RowsAffected, result.Error
}
