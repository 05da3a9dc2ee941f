package plan

import (
	"github.com/tabshare/tabshare/internal/plan/repository"
	"github.com/tabshare/tabshare/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
