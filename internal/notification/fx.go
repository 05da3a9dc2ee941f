package notification

import (
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	"github.com/tabshare/tabshare/internal/notification/repository"
	"github.com/tabshare/tabshare/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.Provide,
		service.NewService,
		func(s notifdomain.Service) notifdomain.Enqueuer { return s },
	),
)
