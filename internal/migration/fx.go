package migration

import (
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	"github.com/tabshare/tabshare/internal/config"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&userdomain.User{},
			&authdomain.Session{},
			&groupdomain.Group{},
			&groupdomain.GroupMember{},
			&expensedomain.Expense{},
			&expensedomain.ExpenseSplit{},
			&expensedomain.ExpenseItem{},
			&expensedomain.ItemAssignment{},
			&plandomain.Plan{},
			&subdomain.Subscription{},
			&subdomain.WebhookEvent{},
			&notifdomain.Notification{},
		)
	}),
)
