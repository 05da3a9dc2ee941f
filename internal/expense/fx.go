package expense

import (
	"github.com/tabshare/tabshare/internal/expense/repository"
	"github.com/tabshare/tabshare/internal/expense/service"
	"go.uber.org/fx"
)

var Module = fx.Module("expense",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
