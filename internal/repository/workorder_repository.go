package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// WorkOrderFilter captures listing parameters for work orders.
type WorkOrderFilter struct {
	ContractorID    *string
	Ward            *string
	IncludeUnscoped bool
	Statuses        []domain.WorkOrderStatus
	Limit           int
	Offset          int
}

// WorkOrderRepository encapsulates work-order persistence.
type WorkOrderRepository interface {
	Create(ctx context.Context, order *domain.WorkOrder) error
	GetByWorkOrderID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error)
	// UpdateStatus persists the order iff the stored status still equals
	// expected. Returns ErrStatusConflict on a lost conditional write.
	UpdateStatus(ctx context.Context, order *domain.WorkOrder, expected domain.WorkOrderStatus) error
	ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error)
}

type workOrderRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository instantiates repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) WorkOrderRepository {
	return &workOrderRepository{pool: pool}
}

const workOrderColumns = `id, work_order_id, ticket_id, category, description, department, ward_id,
	priority, status, contractor_id, assigned_by, created_by, verified_by,
	rejection_reason, verification_notes, completion_notes,
	delayed, delay_reason, eta, actual_arrival, timeline,
	created_at, updated_at, assigned_at, completed_at, verified_at, closed_at`

func (r *workOrderRepository) Create(ctx context.Context, order *domain.WorkOrder) error {
	timeline, err := json.Marshal(order.Timeline)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO work_orders (work_order_id, ticket_id, category, description, department, ward_id, priority, status, created_by, timeline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		order.WorkOrderID,
		nullable(order.TicketID),
		order.Category,
		order.Description,
		order.Department,
		order.WardID,
		order.Priority,
		order.Status,
		order.CreatedBy,
		timeline,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *workOrderRepository) GetByWorkOrderID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_orders WHERE work_order_id=$1`, workOrderColumns)
	rows, err := r.pool.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanWorkOrder(rows)
}

func (r *workOrderRepository) UpdateStatus(ctx context.Context, order *domain.WorkOrder, expected domain.WorkOrderStatus) error {
	timeline, err := json.Marshal(order.Timeline)
	if err != nil {
		return err
	}
	const query = `
        UPDATE work_orders SET status=$1, contractor_id=$2, assigned_by=$3, verified_by=$4,
            rejection_reason=$5, verification_notes=$6, completion_notes=$7,
            delayed=$8, delay_reason=$9, eta=$10, actual_arrival=$11, timeline=$12,
            assigned_at=$13, completed_at=$14, verified_at=$15, closed_at=$16, updated_at=NOW()
        WHERE work_order_id=$17 AND status=$18`
	cmd, err := r.pool.Exec(ctx, query,
		order.Status,
		nullable(order.ContractorID),
		nullable(order.AssignedBy),
		nullable(order.VerifiedBy),
		nullable(order.RejectionReason),
		nullable(order.VerificationNotes),
		nullable(order.CompletionNotes),
		order.Delayed,
		nullable(order.DelayReason),
		order.ETA,
		order.ActualArrival,
		timeline,
		order.AssignedAt,
		order.CompletedAt,
		order.VerifiedAt,
		order.ClosedAt,
		order.WorkOrderID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *workOrderRepository) ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error) {
	base := fmt.Sprintf(`SELECT %s FROM work_orders`, workOrderColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ContractorID != nil {
		args = append(args, *filter.ContractorID)
		clauses = append(clauses, fmt.Sprintf("contractor_id=$%d", len(args)))
	}
	if filter.Ward != nil {
		args = append(args, *filter.Ward)
		placeholder := fmt.Sprintf("$%d", len(args))
		if filter.IncludeUnscoped {
			clauses = append(clauses, fmt.Sprintf("(ward_id=%s OR ward_id='')", placeholder))
		} else {
			clauses = append(clauses, fmt.Sprintf("ward_id=%s", placeholder))
		}
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	return result, rows.Err()
}

func scanWorkOrder(rows pgx.Rows) (*domain.WorkOrder, error) {
	var order domain.WorkOrder
	var ticketID, contractorID, assignedBy, verifiedBy *string
	var rejectionReason, verificationNotes, completionNotes, delayReason *string
	var timeline []byte
	if err := rows.Scan(
		&order.ID,
		&order.WorkOrderID,
		&ticketID,
		&order.Category,
		&order.Description,
		&order.Department,
		&order.WardID,
		&order.Priority,
		&order.Status,
		&contractorID,
		&assignedBy,
		&order.CreatedBy,
		&verifiedBy,
		&rejectionReason,
		&verificationNotes,
		&completionNotes,
		&order.Delayed,
		&delayReason,
		&order.ETA,
		&order.ActualArrival,
		&timeline,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.AssignedAt,
		&order.CompletedAt,
		&order.VerifiedAt,
		&order.ClosedAt,
	); err != nil {
		return nil, err
	}
	order.TicketID = deref(ticketID)
	order.ContractorID = deref(contractorID)
	order.AssignedBy = deref(assignedBy)
	order.VerifiedBy = deref(verifiedBy)
	order.RejectionReason = deref(rejectionReason)
	order.VerificationNotes = deref(verificationNotes)
	order.CompletionNotes = deref(completionNotes)
	order.DelayReason = deref(delayReason)
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &order.Timeline); err != nil {
			return nil, err
		}
	}
	return &order, nil
}
