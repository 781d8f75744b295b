package sla

import (
	"context"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// Resolver decides whether a ticket/priority combination is tracked at
// all under a given contract's policy configuration.
type Resolver struct {
	contracts repository.ContractRepository
}

// NewResolver constructs the resolver.
func NewResolver(contracts repository.ContractRepository) *Resolver {
	return &Resolver{contracts: contracts}
}

// IsApplicable applies the gating rules in order: no contract, priority
// scope exclusion, explicit per-priority disable, missing policy or
// target, disabled target. A missing contract record is treated like no
// contract, not an error.
func (r *Resolver) IsApplicable(ctx context.Context, contractID *string, priority domain.Priority) (bool, error) {
	if contractID == nil || *contractID == "" {
		return false, nil
	}

	contract, err := r.contracts.GetByID(ctx, *contractID)
	if err != nil {
		if util.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return Applicable(contract, priority), nil
}

// Applicable is the pure form of the gating decision over an already
// loaded contract.
func Applicable(contract *domain.Contract, priority domain.Priority) bool {
	if contract == nil {
		return false
	}
	if !contract.Scope.Includes(priority) {
		return false
	}
	if enabled, ok := contract.EnabledByPrio[priority]; ok && !enabled {
		return false
	}
	if len(contract.Targets) == 0 {
		return false
	}
	target, ok := contract.TargetFor(priority)
	if !ok {
		return false
	}
	return target.Enabled
}
