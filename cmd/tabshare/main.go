package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/auth"
	"github.com/tabshare/tabshare/internal/clock"
	"github.com/tabshare/tabshare/internal/config"
	"github.com/tabshare/tabshare/internal/expense"
	"github.com/tabshare/tabshare/internal/group"
	"github.com/tabshare/tabshare/internal/migration"
	"github.com/tabshare/tabshare/internal/notification"
	"github.com/tabshare/tabshare/internal/observability"
	"github.com/tabshare/tabshare/internal/plan"
	"github.com/tabshare/tabshare/internal/providers"
	"github.com/tabshare/tabshare/internal/ratelimit"
	"github.com/tabshare/tabshare/internal/scheduler"
	"github.com/tabshare/tabshare/internal/server"
	"github.com/tabshare/tabshare/internal/subscription"
	"github.com/tabshare/tabshare/internal/user"
	"github.com/tabshare/tabshare/pkg/db"
	"github.com/tabshare/tabshare/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		log.Module,
		fx.Provide(registerSnowflake),
		clock.Module,
		db.Module,
		migration.Module,
		observability.Module,
		ratelimit.Module,
		providers.Module,

		// domains
		user.Module,
		auth.Module,
		group.Module,
		expense.Module,
		notification.Module,
		plan.Module,
		subscription.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
