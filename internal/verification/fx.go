package verification

import (
	"github.com/smallbiznis/botsense/internal/verification/repository"
	"github.com/smallbiznis/botsense/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
