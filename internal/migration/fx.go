package migration

import (
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module creates the relational tables on startup so the service is usable
// out of the box for local and self-hosted environments. The credential
// store lives in Redis (or memory) and needs no schema.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&tenantdomain.Tenant{},
			&verificationdomain.VerificationRecord{},
		)
	}),
)
