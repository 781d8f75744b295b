package sla

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

func policyContract(scope domain.PriorityScope) *domain.Contract {
	return &domain.Contract{
		ID:    "c-1",
		Scope: scope,
		Targets: map[domain.Priority]domain.SLATarget{
			domain.PriorityP1: {ResponseMinutes: 30, ResolutionMinutes: 240, Enabled: true},
			domain.PriorityP2: {ResponseMinutes: 60, ResolutionMinutes: 480, Enabled: true},
			domain.PriorityP3: {ResponseMinutes: 120, ResolutionMinutes: 960, Enabled: false},
		},
		EnabledByPrio: map[domain.Priority]bool{
			domain.PriorityP1: true,
			domain.PriorityP2: true,
			domain.PriorityP3: true,
		},
	}
}

func TestApplicablePriorityScope(t *testing.T) {
	contract := policyContract(domain.PriorityScopeP1)

	assert.True(t, Applicable(contract, domain.PriorityP1))
	for _, p := range []domain.Priority{domain.PriorityP2, domain.PriorityP3, domain.PriorityP4} {
		assert.False(t, Applicable(contract, p), "P1_ONLY must exclude %s", p)
	}

	contract.Scope = domain.PriorityScopeP1P2
	assert.True(t, Applicable(contract, domain.PriorityP2))
	assert.False(t, Applicable(contract, domain.PriorityP3))
}

func TestApplicableTargetGates(t *testing.T) {
	contract := policyContract(domain.PriorityScopeAll)

	// disabled target entry
	assert.False(t, Applicable(contract, domain.PriorityP3))
	// no target entry for the priority
	assert.False(t, Applicable(contract, domain.PriorityP4))
	// explicit per-priority disable wins over an enabled target
	contract.EnabledByPrio[domain.PriorityP2] = false
	assert.False(t, Applicable(contract, domain.PriorityP2))
	// empty policy
	contract.Targets = nil
	assert.False(t, Applicable(contract, domain.PriorityP1))
}

func TestResolverNoContract(t *testing.T) {
	resolver := NewResolver(repository.NewMemoryContractRepository())

	applicable, err := resolver.IsApplicable(context.Background(), nil, domain.PriorityP1)
	require.NoError(t, err)
	assert.False(t, applicable)

	// attached but unknown contract behaves like no contract
	missing := "c-missing"
	applicable, err = resolver.IsApplicable(context.Background(), &missing, domain.PriorityP1)
	require.NoError(t, err)
	assert.False(t, applicable)
}

func TestResolverLoadsContract(t *testing.T) {
	contracts := repository.NewMemoryContractRepository()
	contracts.Put(policyContract(domain.PriorityScopeAll))
	resolver := NewResolver(contracts)

	id := "c-1"
	applicable, err := resolver.IsApplicable(context.Background(), &id, domain.PriorityP1)
	require.NoError(t, err)
	assert.True(t, applicable)
}
