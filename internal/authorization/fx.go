package authorization

import (
	"github.com/casbin/casbin/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(func(e *casbin.SyncedEnforcer) Enforcer { return e }),
	fx.Provide(NewService),
)
