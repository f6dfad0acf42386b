package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botsense/internal/classifier"
	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	"github.com/smallbiznis/botsense/internal/credential"
	"github.com/smallbiznis/botsense/internal/liveevents"
	"github.com/smallbiznis/botsense/internal/migration"
	"github.com/smallbiznis/botsense/internal/observability"
	"github.com/smallbiznis/botsense/internal/ratelimit"
	"github.com/smallbiznis/botsense/internal/server"
	"github.com/smallbiznis/botsense/internal/tenant"
	"github.com/smallbiznis/botsense/internal/verification"
	"github.com/smallbiznis/botsense/internal/verification/retention"
	"github.com/smallbiznis/botsense/pkg/db"
	"github.com/smallbiznis/botsense/pkg/redisconn"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisconn.Module,
		clock.Module,
		migration.Module,

		tenant.Module,
		credential.Module,
		classifier.Module,
		ratelimit.Module,
		liveevents.Module,
		verification.Module,
		retention.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
