package membership

import (
	"github.com/unihub/unihub/internal/membership/repository"
	membershipservice "github.com/unihub/unihub/internal/membership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membership",
	fx.Provide(repository.Provide),
	fx.Provide(membershipservice.NewService),
	fx.Provide(membershipservice.ProvideGate),
	fx.Provide(membershipservice.ProvideService),
)
