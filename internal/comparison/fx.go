package comparison

import (
	"github.com/smallbiznis/procura/internal/comparison/service"
	"go.uber.org/fx"
)

var Module = fx.Module("comparison.service",
	fx.Provide(service.New),
)
