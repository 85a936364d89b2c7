package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/civic-issue-service/internal/domain"
	"github.com/civic-kit/civic-issue-service/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// fakeTicketRepo is an in-memory TicketRepository with the same conditional
// update, filtering, and ordering semantics as the Postgres implementation.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	keys    []string // creation order; listings return newest first
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.tickets[ticket.TicketID] = &copied
	r.keys = append(r.keys, ticket.TicketID)
	return nil
}

func (r *fakeTicketRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.TicketID]
	if !ok || stored.Status != expected {
		return repository.ErrStatusConflict
	}
	copied := *ticket
	r.tickets[ticket.TicketID] = &copied
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for i := len(r.keys) - 1; i >= 0; i-- {
		ticket := r.tickets[r.keys[i]]
		if filter.CitizenID != nil && ticket.CitizenID != *filter.CitizenID {
			continue
		}
		if filter.AssignedTo != nil && ticket.AssignedTo != *filter.AssignedTo {
			continue
		}
		if filter.Ward != nil {
			if filter.IncludeUnscoped {
				if ticket.Ward != *filter.Ward && ticket.Ward != "" {
					continue
				}
			} else if ticket.Ward != *filter.Ward {
				continue
			}
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" && !ticketMatchesSearch(ticket, term) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

// ticketMatchesSearch mirrors the repository's case-insensitive LIKE clause.
func ticketMatchesSearch(ticket *domain.Ticket, term string) bool {
	for _, field := range []string{ticket.Title, ticket.Description, ticket.IssueType, ticket.TicketID} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// fakeWorkOrderRepo mirrors fakeTicketRepo for work orders.
type fakeWorkOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.WorkOrder
	keys   []string
}

func newFakeWorkOrderRepo() *fakeWorkOrderRepo {
	return &fakeWorkOrderRepo{orders: make(map[string]*domain.WorkOrder)}
}

func (r *fakeWorkOrderRepo) Create(_ context.Context, order *domain.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.ID = uuid.NewString()
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	copied := *order
	r.orders[order.WorkOrderID] = &copied
	r.keys = append(r.keys, order.WorkOrderID)
	return nil
}

func (r *fakeWorkOrderRepo) GetByWorkOrderID(_ context.Context, workOrderID string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[workOrderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	copied.Timeline = append([]domain.TimelineEntry(nil), order.Timeline...)
	return &copied, nil
}

func (r *fakeWorkOrderRepo) UpdateStatus(_ context.Context, order *domain.WorkOrder, expected domain.WorkOrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.WorkOrderID]
	if !ok || stored.Status != expected {
		return repository.ErrStatusConflict
	}
	copied := *order
	copied.Timeline = append([]domain.TimelineEntry(nil), order.Timeline...)
	r.orders[order.WorkOrderID] = &copied
	return nil
}

func (r *fakeWorkOrderRepo) ListWithFilter(_ context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.WorkOrder
	for i := len(r.keys) - 1; i >= 0; i-- {
		order := r.orders[r.keys[i]]
		if filter.ContractorID != nil && order.ContractorID != *filter.ContractorID {
			continue
		}
		if filter.Ward != nil {
			if filter.IncludeUnscoped {
				if order.WardID != *filter.Ward && order.WardID != "" {
					continue
				}
			} else if order.WardID != *filter.Ward {
				continue
			}
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if order.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, *order)
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}
