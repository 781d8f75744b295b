package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// ActiveTracking pairs a tracking with the owning ticket fields the
// sweep needs for evaluation.
type ActiveTracking struct {
	Tracking domain.Tracking
	Ticket   domain.Ticket
}

// TrackingRepository encapsulates SLA tracking persistence. Update is
// versioned: a concurrent mutation of the same tracking surfaces as a
// version conflict instead of a lost write.
type TrackingRepository interface {
	Create(ctx context.Context, tracking *domain.Tracking) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Tracking, error)
	Update(ctx context.Context, tracking *domain.Tracking) error
	ListActive(ctx context.Context) ([]ActiveTracking, error)
	ListEscalatable(ctx context.Context) ([]ActiveTracking, error)
}

type trackingRepository struct {
	pool *pgxpool.Pool
}

// NewTrackingRepository instantiates repository.
func NewTrackingRepository(pool *pgxpool.Pool) TrackingRepository {
	return &trackingRepository{pool: pool}
}

const trackingColumns = `
        ticket_id, tenant_id, response_deadline, resolution_deadline, responded_at,
        paused_at, paused_minutes, warning_response_sent, warning_resolution_sent,
        breach_response, breach_resolution, response_state, resolution_state,
        escalated_at, version, created_at, updated_at`

// qualified form for queries that join the tickets table
const trackingColumnsQualified = `
        tr.ticket_id, tr.tenant_id, tr.response_deadline, tr.resolution_deadline, tr.responded_at,
        tr.paused_at, tr.paused_minutes, tr.warning_response_sent, tr.warning_resolution_sent,
        tr.breach_response, tr.breach_resolution, tr.response_state, tr.resolution_state,
        tr.escalated_at, tr.version, tr.created_at, tr.updated_at`

func (r *trackingRepository) Create(ctx context.Context, tracking *domain.Tracking) error {
	const query = `
        INSERT INTO sla_trackings (ticket_id, tenant_id, response_deadline, resolution_deadline,
            responded_at, paused_at, paused_minutes, warning_response_sent, warning_resolution_sent,
            breach_response, breach_resolution, response_state, resolution_state, escalated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,1)
        RETURNING version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tracking.TicketID,
		tracking.TenantID,
		tracking.ResponseDeadline,
		tracking.ResolutionDeadline,
		tracking.RespondedAt,
		tracking.PausedAt,
		tracking.PausedMinutes,
		tracking.WarningResponseSent,
		tracking.WarningResolutionSent,
		tracking.BreachResponse,
		tracking.BreachResolution,
		tracking.ResponseState,
		tracking.ResolutionState,
		tracking.EscalatedAt,
	).Scan(&tracking.Version, &tracking.CreatedAt, &tracking.UpdatedAt)
}

func (r *trackingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Tracking, error) {
	const query = `SELECT ` + trackingColumns + ` FROM sla_trackings WHERE ticket_id=$1`
	var tracking domain.Tracking
	if err := scanTracking(r.pool.QueryRow(ctx, query, ticketID), &tracking); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("tracking", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return &tracking, nil
}

func (r *trackingRepository) Update(ctx context.Context, tracking *domain.Tracking) error {
	const query = `
        UPDATE sla_trackings SET response_deadline=$1, resolution_deadline=$2, responded_at=$3,
            paused_at=$4, paused_minutes=$5, warning_response_sent=$6, warning_resolution_sent=$7,
            breach_response=$8, breach_resolution=$9, response_state=$10, resolution_state=$11,
            escalated_at=$12, version=version+1, updated_at=NOW()
        WHERE ticket_id=$13 AND version=$14`
	cmd, err := r.pool.Exec(ctx, query,
		tracking.ResponseDeadline,
		tracking.ResolutionDeadline,
		tracking.RespondedAt,
		tracking.PausedAt,
		tracking.PausedMinutes,
		tracking.WarningResponseSent,
		tracking.WarningResolutionSent,
		tracking.BreachResponse,
		tracking.BreachResolution,
		tracking.ResponseState,
		tracking.ResolutionState,
		tracking.EscalatedAt,
		tracking.TicketID,
		tracking.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewVersionConflict(tracking.TicketID)
	}
	tracking.Version++
	return nil
}

func (r *trackingRepository) ListActive(ctx context.Context) ([]ActiveTracking, error) {
	const query = `
        SELECT ` + trackingColumnsQualified + `,
               t.tenant_id, t.contract_id, t.status, t.priority, t.assignee_id, t.created_at
        FROM sla_trackings tr
        JOIN tickets t ON t.id = tr.ticket_id
        WHERE t.status NOT IN ('RESOLVED','CLOSED','CANCELLED')
          AND NOT (tr.warning_response_sent AND tr.warning_resolution_sent
                   AND tr.breach_response AND tr.breach_resolution)
        ORDER BY tr.created_at`
	return r.listJoined(ctx, query)
}

func (r *trackingRepository) ListEscalatable(ctx context.Context) ([]ActiveTracking, error) {
	const query = `
        SELECT ` + trackingColumnsQualified + `,
               t.tenant_id, t.contract_id, t.status, t.priority, t.assignee_id, t.created_at
        FROM sla_trackings tr
        JOIN tickets t ON t.id = tr.ticket_id
        WHERE t.status NOT IN ('RESOLVED','CLOSED','CANCELLED')
          AND t.priority IN ('P1','P2')
          AND (tr.breach_response OR tr.breach_resolution)
          AND tr.escalated_at IS NULL
        ORDER BY tr.created_at`
	return r.listJoined(ctx, query)
}

func (r *trackingRepository) listJoined(ctx context.Context, query string) ([]ActiveTracking, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActiveTracking
	for rows.Next() {
		var at ActiveTracking
		if err := rows.Scan(
			&at.Tracking.TicketID,
			&at.Tracking.TenantID,
			&at.Tracking.ResponseDeadline,
			&at.Tracking.ResolutionDeadline,
			&at.Tracking.RespondedAt,
			&at.Tracking.PausedAt,
			&at.Tracking.PausedMinutes,
			&at.Tracking.WarningResponseSent,
			&at.Tracking.WarningResolutionSent,
			&at.Tracking.BreachResponse,
			&at.Tracking.BreachResolution,
			&at.Tracking.ResponseState,
			&at.Tracking.ResolutionState,
			&at.Tracking.EscalatedAt,
			&at.Tracking.Version,
			&at.Tracking.CreatedAt,
			&at.Tracking.UpdatedAt,
			&at.Ticket.TenantID,
			&at.Ticket.ContractID,
			&at.Ticket.Status,
			&at.Ticket.Priority,
			&at.Ticket.AssigneeID,
			&at.Ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		at.Ticket.ID = at.Tracking.TicketID
		result = append(result, at)
	}
	return result, rows.Err()
}

func scanTracking(row pgx.Row, tracking *domain.Tracking) error {
	return row.Scan(
		&tracking.TicketID,
		&tracking.TenantID,
		&tracking.ResponseDeadline,
		&tracking.ResolutionDeadline,
		&tracking.RespondedAt,
		&tracking.PausedAt,
		&tracking.PausedMinutes,
		&tracking.WarningResponseSent,
		&tracking.WarningResolutionSent,
		&tracking.BreachResponse,
		&tracking.BreachResolution,
		&tracking.ResponseState,
		&tracking.ResolutionState,
		&tracking.EscalatedAt,
		&tracking.Version,
		&tracking.CreatedAt,
		&tracking.UpdatedAt,
	)
}
