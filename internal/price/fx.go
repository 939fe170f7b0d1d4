package price

import (
	"github.com/smallbiznis/procura/internal/price/repository"
	"github.com/smallbiznis/procura/internal/price/service"
	"go.uber.org/fx"
)

var Module = fx.Module("price.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
