package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/config"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"github.com/unihub/unihub/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, membershipRepo membershipdomain.Repository) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}
		return seed.EnsureMembershipPlans(conn, genID, membershipRepo)
	}),
)
