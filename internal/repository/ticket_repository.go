package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// ErrStatusConflict signals that a conditional status update lost to a
// concurrent writer: the row no longer carries the expected status.
var ErrStatusConflict = errors.New("concurrent status update conflict")

// TicketFilter captures role-scoped listing parameters. Ward filtering is
// lenient: when IncludeUnscoped is set, tickets without a ward also match.
type TicketFilter struct {
	CitizenID       *string
	AssignedTo      *string
	Ward            *string
	IncludeUnscoped bool
	Statuses        []domain.TicketStatus
	SearchTerm      *string
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	// UpdateStatus persists the ticket iff the stored status still equals
	// expected. Returns ErrStatusConflict when the conditional write hits
	// zero rows.
	UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_id, citizen_id, assigned_to, assigned_by, resolved_by,
	title, description, issue_type, department, ward, status, resolution_notes,
	created_at, updated_at, assigned_at, in_progress_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, citizen_id, title, description, issue_type, department, ward, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketID,
		ticket.CitizenID,
		ticket.Title,
		ticket.Description,
		ticket.IssueType,
		ticket.Department,
		ticket.Ward,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_id=$1`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, ticketID)
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
	return scanTicket(rows)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, assigned_by=$3, resolved_by=$4,
            resolution_notes=$5, assigned_at=$6, in_progress_at=$7, resolved_at=$8,
            updated_at=NOW()
        WHERE ticket_id=$9 AND status=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		nullable(ticket.AssignedTo),
		nullable(ticket.AssignedBy),
		nullable(ticket.ResolvedBy),
		nullable(ticket.ResolutionNotes),
		ticket.AssignedAt,
		ticket.InProgressAt,
		ticket.ResolvedAt,
		ticket.TicketID,
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

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CitizenID != nil {
		args = append(args, *filter.CitizenID)
		clauses = append(clauses, fmt.Sprintf("citizen_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Ward != nil {
		args = append(args, *filter.Ward)
		placeholder := fmt.Sprintf("$%d", len(args))
		if filter.IncludeUnscoped {
			clauses = append(clauses, fmt.Sprintf("(ward=%s OR ward='')", placeholder))
		} else {
			clauses = append(clauses, fmt.Sprintf("ward=%s", placeholder))
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
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(issue_type) LIKE %s OR LOWER(ticket_id) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
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

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(rows pgx.Rows) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var assignedTo, assignedBy, resolvedBy, resolutionNotes *string
	if err := rows.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.CitizenID,
		&assignedTo,
		&assignedBy,
		&resolvedBy,
		&ticket.Title,
		&ticket.Description,
		&ticket.IssueType,
		&ticket.Department,
		&ticket.Ward,
		&ticket.Status,
		&resolutionNotes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.InProgressAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	ticket.AssignedTo = deref(assignedTo)
	ticket.AssignedBy = deref(assignedBy)
	ticket.ResolvedBy = deref(resolvedBy)
	ticket.ResolutionNotes = deref(resolutionNotes)
	return &ticket, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
