package authorization

import "go.uber.org/zap"

// NewTestService returns a Service backed by the built-in rules held in memory.
func NewTestService() Service {
	enforcer, err := NewMemoryEnforcer()
	if err != nil {
		panic(err)
	}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}
