package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// MemoryTrackingRepository is an in-memory TrackingRepository for
// deterministic tests without a live database.
type MemoryTrackingRepository struct {
	mu        sync.RWMutex
	trackings map[string]*domain.Tracking
	tickets   map[string]*domain.Ticket

	// FailOn makes the next operation on the given ticket fail, so
	// per-item failure isolation in the sweep can be exercised.
	FailOn map[string]error
}

// NewMemoryTrackingRepository creates an empty repository.
func NewMemoryTrackingRepository() *MemoryTrackingRepository {
	return &MemoryTrackingRepository{
		trackings: make(map[string]*domain.Tracking),
		tickets:   make(map[string]*domain.Ticket),
		FailOn:    make(map[string]error),
	}
}

// PutTicket seeds the owning ticket view used by the joined listings.
func (m *MemoryTrackingRepository) PutTicket(ticket *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *ticket
	m.tickets[ticket.ID] = &copied
}

func (m *MemoryTrackingRepository) Create(ctx context.Context, tracking *domain.Tracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailOn[tracking.TicketID]; err != nil {
		return err
	}
	now := time.Now()
	tracking.Version = 1
	tracking.CreatedAt = now
	tracking.UpdatedAt = now
	copied := *tracking
	m.trackings[tracking.TicketID] = &copied
	return nil
}

func (m *MemoryTrackingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Tracking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.FailOn[ticketID]; err != nil {
		return nil, err
	}
	tracking, ok := m.trackings[ticketID]
	if !ok {
		return nil, util.NewNotFound("tracking", map[string]any{"ticket_id": ticketID})
	}
	copied := *tracking
	return &copied, nil
}

func (m *MemoryTrackingRepository) Update(ctx context.Context, tracking *domain.Tracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailOn[tracking.TicketID]; err != nil {
		return err
	}
	current, ok := m.trackings[tracking.TicketID]
	if !ok {
		return util.NewNotFound("tracking", map[string]any{"ticket_id": tracking.TicketID})
	}
	if current.Version != tracking.Version {
		return util.NewVersionConflict(tracking.TicketID)
	}
	tracking.Version++
	tracking.UpdatedAt = time.Now()
	copied := *tracking
	m.trackings[tracking.TicketID] = &copied
	return nil
}

func (m *MemoryTrackingRepository) ListActive(ctx context.Context) ([]ActiveTracking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ActiveTracking
	for ticketID, tracking := range m.trackings {
		ticket, ok := m.tickets[ticketID]
		if !ok || ticket.Status.IsTerminal() || tracking.Settled() {
			continue
		}
		result = append(result, ActiveTracking{Tracking: *tracking, Ticket: *ticket})
	}
	return result, nil
}

func (m *MemoryTrackingRepository) ListEscalatable(ctx context.Context) ([]ActiveTracking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ActiveTracking
	for ticketID, tracking := range m.trackings {
		ticket, ok := m.tickets[ticketID]
		if !ok || ticket.Status.IsTerminal() {
			continue
		}
		if ticket.Priority != domain.PriorityP1 && ticket.Priority != domain.PriorityP2 {
			continue
		}
		if !tracking.BreachResponse && !tracking.BreachResolution {
			continue
		}
		if tracking.EscalatedAt != nil {
			continue
		}
		result = append(result, ActiveTracking{Tracking: *tracking, Ticket: *ticket})
	}
	return result, nil
}

// MemoryContractRepository is an in-memory ContractRepository.
type MemoryContractRepository struct {
	mu        sync.RWMutex
	contracts map[string]*domain.Contract
}

// NewMemoryContractRepository creates an empty repository.
func NewMemoryContractRepository() *MemoryContractRepository {
	return &MemoryContractRepository{contracts: make(map[string]*domain.Contract)}
}

// Put seeds a contract.
func (m *MemoryContractRepository) Put(contract *domain.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *contract
	m.contracts[contract.ID] = &copied
}

func (m *MemoryContractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	contract, ok := m.contracts[id]
	if !ok {
		return nil, util.NewNotFound("contract", map[string]any{"contract_id": id})
	}
	copied := *contract
	return &copied, nil
}

func (m *MemoryContractRepository) ListExpiring(ctx context.Context, before time.Time) ([]domain.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Contract
	for _, contract := range m.contracts {
		if contract.EndDate != nil && !contract.EndDate.After(before) {
			result = append(result, *contract)
		}
	}
	return result, nil
}

func (m *MemoryContractRepository) MarkExpiryNotified(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	contract, ok := m.contracts[id]
	if !ok {
		return util.NewNotFound("contract", map[string]any{"contract_id": id})
	}
	notified := at
	contract.ExpiryNotifiedAt = &notified
	return nil
}

// MemoryTicketRepository is an in-memory TicketRepository.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketRepository creates an empty repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

// Put seeds a ticket.
func (m *MemoryTicketRepository) Put(ticket *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *ticket
	m.tickets[ticket.ID] = &copied
}

func (m *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copied := *ticket
	return &copied, nil
}
