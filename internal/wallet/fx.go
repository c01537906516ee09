package wallet

import (
	"github.com/unihub/unihub/internal/wallet/repository"
	walletservice "github.com/unihub/unihub/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet",
	fx.Provide(repository.Provide),
	fx.Provide(walletservice.NewService),
)
