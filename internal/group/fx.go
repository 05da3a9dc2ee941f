package group

import (
	"github.com/tabshare/tabshare/internal/group/repository"
	"github.com/tabshare/tabshare/internal/group/service"
	"go.uber.org/fx"
)

var Module = fx.Module("group",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
