package balanceledger

import (
	"log/slog"

	"boostpanel/contexts/finance-core/balance-ledger/adapters/memory"
	"boostpanel/contexts/finance-core/balance-ledger/application"
	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	"boostpanel/contexts/finance-core/balance-ledger/ports"
	"boostpanel/internal/shared/retry"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Store       ports.LedgerStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	RetryPolicy retry.Policy
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	policy := deps.RetryPolicy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultBalancePolicy()
	}
	return Module{
		Service: application.Service{
			Store:       deps.Store,
			Clock:       deps.Clock,
			IDGen:       deps.IDGenerator,
			RetryPolicy: policy,
			Logger:      deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.UserBalance, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Store:       store,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
