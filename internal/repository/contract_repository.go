package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// ContractRepository reads the SLA configuration attached to contracts.
// The contract aggregate itself is owned by the surrounding application;
// this engine only consumes it.
type ContractRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Contract, error)
	ListExpiring(ctx context.Context, before time.Time) ([]domain.Contract, error)
	MarkExpiryNotified(ctx context.Context, id string, at time.Time) error
}

type contractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository instantiates repository.
func NewContractRepository(pool *pgxpool.Pool) ContractRepository {
	return &contractRepository{pool: pool}
}

func (r *contractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	const query = `
        SELECT id, tenant_id, priority_scope, warning_threshold, pausing_statuses,
               shift_start_minute, shift_end_minute, working_weekdays, timezone,
               end_date, expiry_notified_at
        FROM contracts WHERE id=$1`

	var (
		contract        domain.Contract
		pausing         []string
		shiftStart      *int
		shiftEnd        *int
		workingWeekdays []int
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&contract.ID,
		&contract.TenantID,
		&contract.Scope,
		&contract.WarningThreshold,
		&pausing,
		&shiftStart,
		&shiftEnd,
		&workingWeekdays,
		&contract.Timezone,
		&contract.EndDate,
		&contract.ExpiryNotifiedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("contract", map[string]any{"contract_id": id})
		}
		return nil, err
	}

	for _, s := range pausing {
		contract.PausingStatuses = append(contract.PausingStatuses, domain.TicketStatus(s))
	}
	if shiftStart != nil && shiftEnd != nil {
		contract.Shift = &domain.Shift{StartMinute: *shiftStart, EndMinute: *shiftEnd}
	}
	for _, wd := range workingWeekdays {
		contract.WorkingWeekdays = append(contract.WorkingWeekdays, time.Weekday(wd))
	}

	if err := r.loadTargets(ctx, &contract); err != nil {
		return nil, err
	}
	if err := r.loadHolidays(ctx, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) loadTargets(ctx context.Context, contract *domain.Contract) error {
	const query = `
        SELECT priority, response_minutes, resolution_minutes, enabled, tracked
        FROM contract_sla_targets WHERE contract_id=$1`
	rows, err := r.pool.Query(ctx, query, contract.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	contract.Targets = make(map[domain.Priority]domain.SLATarget)
	contract.EnabledByPrio = make(map[domain.Priority]bool)
	for rows.Next() {
		var (
			priority domain.Priority
			target   domain.SLATarget
			tracked  bool
		)
		if err := rows.Scan(&priority, &target.ResponseMinutes, &target.ResolutionMinutes, &target.Enabled, &tracked); err != nil {
			return err
		}
		contract.Targets[priority] = target
		contract.EnabledByPrio[priority] = tracked
	}
	return rows.Err()
}

func (r *contractRepository) loadHolidays(ctx context.Context, contract *domain.Contract) error {
	const query = `SELECT day, coverage FROM contract_holidays WHERE contract_id=$1 ORDER BY day`
	rows, err := r.pool.Query(ctx, query, contract.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var holiday domain.Holiday
		if err := rows.Scan(&holiday.Date, &holiday.Coverage); err != nil {
			return err
		}
		contract.Holidays = append(contract.Holidays, holiday)
	}
	return rows.Err()
}

func (r *contractRepository) ListExpiring(ctx context.Context, before time.Time) ([]domain.Contract, error) {
	const query = `
        SELECT id, tenant_id, end_date, expiry_notified_at
        FROM contracts
        WHERE end_date IS NOT NULL AND end_date <= $1
        ORDER BY end_date`
	rows, err := r.pool.Query(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Contract
	for rows.Next() {
		var contract domain.Contract
		if err := rows.Scan(&contract.ID, &contract.TenantID, &contract.EndDate, &contract.ExpiryNotifiedAt); err != nil {
			return nil, err
		}
		result = append(result, contract)
	}
	return result, rows.Err()
}

func (r *contractRepository) MarkExpiryNotified(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE contracts SET expiry_notified_at=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("contract", map[string]any{"contract_id": id})
	}
	return nil
}
