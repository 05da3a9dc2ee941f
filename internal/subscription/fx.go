package subscription

import (
	"github.com/tabshare/tabshare/internal/subscription/repository"
	"github.com/tabshare/tabshare/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
