package settlement

import (
	settlementservice "github.com/unihub/unihub/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement",
	fx.Provide(settlementservice.NewService),
)
