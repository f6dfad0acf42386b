package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botsense/internal/clock"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	"github.com/smallbiznis/botsense/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  tenantdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  tenantdomain.Repository
}

func New(p Params) tenantdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req tenantdomain.CreateRequest) (*tenantdomain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tenantdomain.ErrInvalidName
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, tenantdomain.ErrInvalidURL
	}

	now := s.clock.Now()
	tenant := &tenantdomain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		URL:       url,
		Status:    tenantdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, tenantdomain.ErrURLTaken
		}
		return nil, err
	}

	s.log.Info("tenant registered", zap.String("tenant_id", tenant.ID.String()), zap.String("url", url))
	return tenant, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, nil
	}
	return s.repo.FindByID(ctx, s.db, parsed)
}
