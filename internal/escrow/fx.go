package escrow

import (
	"github.com/unihub/unihub/internal/escrow/repository"
	escrowservice "github.com/unihub/unihub/internal/escrow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("escrow",
	fx.Provide(repository.Provide),
	fx.Provide(escrowservice.NewService),
)
