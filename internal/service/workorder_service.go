package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/civic-issue-service/internal/domain"
	"github.com/civic-kit/civic-issue-service/internal/events"
	"github.com/civic-kit/civic-issue-service/internal/repository"
	apperrors "github.com/civic-kit/civic-issue-service/pkg/util"
)

// WorkOrderService coordinates the contractor lifecycle:
// created -> assigned -> {accepted | rejected} -> en_route -> on_site ->
// in_progress -> completed -> verified -> closed.
type WorkOrderService struct {
	orders     repository.WorkOrderRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// WorkOrderDependencies bundles collaborators for the work-order service.
type WorkOrderDependencies struct {
	WorkOrderRepo repository.WorkOrderRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
}

// WorkOrderCreateInput describes officer-initiated work-order creation.
type WorkOrderCreateInput struct {
	TicketID    string
	Category    string
	Description string
	Department  string
	WardID      string
	Priority    domain.WorkOrderPriority
}

// WorkOrderListFilter describes caller-supplied listing filters.
type WorkOrderListFilter struct {
	Statuses []domain.WorkOrderStatus
	Limit    int
	Offset   int
}

// delayableStatuses are the active states a contractor may flag as delayed.
var delayableStatuses = map[domain.WorkOrderStatus]bool{
	domain.WorkOrderStatusAccepted:   true,
	domain.WorkOrderStatusEnRoute:    true,
	domain.WorkOrderStatusOnSite:     true,
	domain.WorkOrderStatusInProgress: true,
}

// NewWorkOrderService constructs the service.
func NewWorkOrderService(deps WorkOrderDependencies) *WorkOrderService {
	return &WorkOrderService{
		orders:     deps.WorkOrderRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// Create opens a new work order. Officer-side operation.
func (s *WorkOrderService) Create(ctx context.Context, actor domain.Actor, input WorkOrderCreateInput) (*domain.WorkOrder, error) {
	if !actor.IsOfficer() {
		return nil, apperrors.NewForbidden("only officers can create work orders")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, apperrors.NewValidationError("category required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.WorkOrderPriorityMedium
	}

	now := s.now()
	order := &domain.WorkOrder{
		WorkOrderID: generateWorkOrderKey(),
		TicketID:    strings.TrimSpace(input.TicketID),
		Category:    category,
		Description: strings.TrimSpace(input.Description),
		Department:  strings.TrimSpace(input.Department),
		WardID:      strings.TrimSpace(input.WardID),
		Priority:    priority,
		Status:      domain.WorkOrderStatusCreated,
		CreatedBy:   actor.ID,
	}
	order.AppendTimeline(domain.WorkOrderStatusCreated, actor.ID, "work order created", now)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.MapError(err)
	}
	return order, nil
}

// Assign hands a created work order to a contractor. Officer-side.
func (s *WorkOrderService) Assign(ctx context.Context, actor domain.Actor, workOrderID, contractorID string) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOfficer() {
		return nil, apperrors.NewForbidden("only officers can assign work orders")
	}
	if err := s.requireTransition(order, domain.WorkOrderStatusCreated, domain.WorkOrderStatusAssigned); err != nil {
		return nil, err
	}

	contractor, err := s.users.GetByID(ctx, contractorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("contractor", map[string]any{"user_id": contractorID})
		}
		return nil, apperrors.MapError(err)
	}
	if contractor.Role != domain.RoleContractor {
		return nil, apperrors.NewValidationError("work orders can only be assigned to contractors", map[string]any{
			"user_id": contractorID,
			"role":    contractor.Role,
		})
	}

	now := s.now()
	order.Status = domain.WorkOrderStatusAssigned
	order.ContractorID = contractor.ID
	order.AssignedBy = actor.ID
	order.AssignedAt = &now
	order.AppendTimeline(domain.WorkOrderStatusAssigned, actor.ID, "assigned to contractor "+contractor.Name, now)

	if err := s.orders.UpdateStatus(ctx, order, domain.WorkOrderStatusCreated); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	s.publishWorkOrderEvent(ctx, events.EventWorkOrderAssigned, order, actor.ID, contractor.Email, "")
	return order, nil
}

// Accept records the contractor taking the job, with an optional ETA.
func (s *WorkOrderService) Accept(ctx context.Context, actor domain.Actor, workOrderID string, eta *time.Time) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedContractor(actor, order); err != nil {
		return nil, err
	}
	if err := s.requireTransition(order, domain.WorkOrderStatusAssigned, domain.WorkOrderStatusAccepted); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = domain.WorkOrderStatusAccepted
	order.ETA = eta
	order.AppendTimeline(domain.WorkOrderStatusAccepted, actor.ID, "work order accepted", now)

	if err := s.orders.UpdateStatus(ctx, order, domain.WorkOrderStatusAssigned); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	return order, nil
}

// Reject declines an assigned work order. A reason is mandatory and the
// rejected state is terminal.
func (s *WorkOrderService) Reject(ctx context.Context, actor domain.Actor, workOrderID, reason string) (*domain.WorkOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedContractor(actor, order); err != nil {
		return nil, err
	}
	if err := s.requireTransition(order, domain.WorkOrderStatusAssigned, domain.WorkOrderStatusRejected); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = domain.WorkOrderStatusRejected
	order.RejectionReason = reason
	order.AppendTimeline(domain.WorkOrderStatusRejected, actor.ID, "rejected: "+reason, now)

	if err := s.orders.UpdateStatus(ctx, order, domain.WorkOrderStatusAssigned); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	s.publishWorkOrderEvent(ctx, events.EventWorkOrderRejected, order, actor.ID, s.lookupEmail(ctx, order.AssignedBy), reason)
	return order, nil
}

// MarkEnRoute records the contractor heading to the site.
func (s *WorkOrderService) MarkEnRoute(ctx context.Context, actor domain.Actor, workOrderID string) (*domain.WorkOrder, error) {
	return s.contractorTransition(ctx, actor, workOrderID,
		domain.WorkOrderStatusAccepted, domain.WorkOrderStatusEnRoute, "en route to site",
		func(order *domain.WorkOrder, now time.Time) {})
}

// MarkOnSite records arrival at the site.
func (s *WorkOrderService) MarkOnSite(ctx context.Context, actor domain.Actor, workOrderID string) (*domain.WorkOrder, error) {
	return s.contractorTransition(ctx, actor, workOrderID,
		domain.WorkOrderStatusEnRoute, domain.WorkOrderStatusOnSite, "arrived on site",
		func(order *domain.WorkOrder, now time.Time) {
			order.ActualArrival = &now
		})
}

// Start records the beginning of field work.
func (s *WorkOrderService) Start(ctx context.Context, actor domain.Actor, workOrderID string) (*domain.WorkOrder, error) {
	return s.contractorTransition(ctx, actor, workOrderID,
		domain.WorkOrderStatusOnSite, domain.WorkOrderStatusInProgress, "work started",
		func(order *domain.WorkOrder, now time.Time) {})
}

// Complete marks the field work done, pending officer verification.
func (s *WorkOrderService) Complete(ctx context.Context, actor domain.Actor, workOrderID, notes string) (*domain.WorkOrder, error) {
	return s.contractorTransition(ctx, actor, workOrderID,
		domain.WorkOrderStatusInProgress, domain.WorkOrderStatusCompleted, "work completed",
		func(order *domain.WorkOrder, now time.Time) {
			order.CompletedAt = &now
			order.CompletionNotes = strings.TrimSpace(notes)
		})
}

// Verify confirms completed work. Officer-side.
func (s *WorkOrderService) Verify(ctx context.Context, actor domain.Actor, workOrderID, notes string) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOfficer() {
		return nil, apperrors.NewForbidden("only officers can verify work orders")
	}
	if err := s.requireTransition(order, domain.WorkOrderStatusCompleted, domain.WorkOrderStatusVerified); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = domain.WorkOrderStatusVerified
	order.VerifiedBy = actor.ID
	order.VerifiedAt = &now
	order.VerificationNotes = strings.TrimSpace(notes)
	order.AppendTimeline(domain.WorkOrderStatusVerified, actor.ID, "work verified", now)

	if err := s.orders.UpdateStatus(ctx, order, domain.WorkOrderStatusCompleted); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	s.publishWorkOrderEvent(ctx, events.EventWorkOrderVerified, order, actor.ID, s.lookupEmail(ctx, order.ContractorID), "")
	return order, nil
}

// Close finishes a verified work order. Officer-side, terminal.
func (s *WorkOrderService) Close(ctx context.Context, actor domain.Actor, workOrderID string) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOfficer() {
		return nil, apperrors.NewForbidden("only officers can close work orders")
	}
	if err := s.requireTransition(order, domain.WorkOrderStatusVerified, domain.WorkOrderStatusClosed); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = domain.WorkOrderStatusClosed
	order.ClosedAt = &now
	order.AppendTimeline(domain.WorkOrderStatusClosed, actor.ID, "work order closed", now)

	if err := s.orders.UpdateStatus(ctx, order, domain.WorkOrderStatusVerified); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	return order, nil
}

// MarkDelayed flags an SLA breach on an active work order without changing
// its lifecycle state. Contractor-side; reason required.
func (s *WorkOrderService) MarkDelayed(ctx context.Context, actor domain.Actor, workOrderID, reason string, newETA *time.Time) (*domain.WorkOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("delay reason required", nil)
	}
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedContractor(actor, order); err != nil {
		return nil, err
	}
	if !delayableStatuses[order.Status] {
		return nil, apperrors.NewInvalidState(string(order.Status), "an active status")
	}

	now := s.now()
	order.Delayed = true
	order.DelayReason = reason
	if newETA != nil {
		order.ETA = newETA
	}
	order.AppendTimeline(order.Status, actor.ID, "delayed: "+reason, now)

	if err := s.orders.UpdateStatus(ctx, order, order.Status); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	return order, nil
}

// List returns work orders visible to the actor: contractors see their own,
// class_a officers everything, ward officers their ward plus unscoped orders.
func (s *WorkOrderService) List(ctx context.Context, actor domain.Actor, filter WorkOrderListFilter) ([]domain.WorkOrder, error) {
	repoFilter := repository.WorkOrderFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	switch actor.Role {
	case domain.RoleContractor:
		id := actor.ID
		repoFilter.ContractorID = &id
	case domain.RoleOfficer:
		if actor.OfficerClass != domain.OfficerClassA {
			if actor.WardID == "" {
				return nil, apperrors.NewValidationError("ward information required for ward officers", nil)
			}
			ward := actor.WardID
			repoFilter.Ward = &ward
			repoFilter.IncludeUnscoped = true
		}
	default:
		return nil, apperrors.NewForbidden("citizens cannot list work orders")
	}
	orders, err := s.orders.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

// Get fetches a single work order, gated by the visibility predicate.
func (s *WorkOrderService) Get(ctx context.Context, actor domain.Actor, workOrderID string) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanSeeWorkOrder(actor, order) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return order, nil
}

func (s *WorkOrderService) contractorTransition(
	ctx context.Context,
	actor domain.Actor,
	workOrderID string,
	from, to domain.WorkOrderStatus,
	note string,
	stamp func(order *domain.WorkOrder, now time.Time),
) (*domain.WorkOrder, error) {
	order, err := s.getOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedContractor(actor, order); err != nil {
		return nil, err
	}
	if err := s.requireTransition(order, from, to); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = to
	stamp(order, now)
	order.AppendTimeline(to, actor.ID, note, now)

	if err := s.orders.UpdateStatus(ctx, order, from); err != nil {
		return nil, s.mapUpdateError(err, workOrderID)
	}
	return order, nil
}

func (s *WorkOrderService) requireAssignedContractor(actor domain.Actor, order *domain.WorkOrder) error {
	if actor.Role != domain.RoleContractor || order.ContractorID == "" || order.ContractorID != actor.ID {
		return apperrors.NewForbidden("only the assigned contractor can act on this work order")
	}
	return nil
}

// requireTransition checks the state-machine guard: the order must sit in
// the required predecessor state and the lifecycle table must allow the move.
func (s *WorkOrderService) requireTransition(order *domain.WorkOrder, from, to domain.WorkOrderStatus) error {
	if order.Status != from || !domain.WorkOrderLifecycle.CanMove(from, to) {
		return apperrors.NewInvalidState(string(order.Status), string(from))
	}
	return nil
}

func (s *WorkOrderService) getOrder(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	order, err := s.orders.GetByWorkOrderID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
		}
		return nil, apperrors.MapError(err)
	}
	return order, nil
}

func (s *WorkOrderService) mapUpdateError(err error, workOrderID string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return apperrors.NewConflict("work order was modified concurrently", map[string]any{"work_order_id": workOrderID})
	}
	return apperrors.MapError(err)
}

func (s *WorkOrderService) lookupEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Email
}

func (s *WorkOrderService) publishWorkOrderEvent(ctx context.Context, eventType events.EventType, order *domain.WorkOrder, actorID, recipient, note string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		WorkOrderID:    order.WorkOrderID,
		TicketID:       order.TicketID,
		ActorID:        actorID,
		RecipientEmail: recipient,
		Timestamp:      s.now(),
		Note:           note,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateWorkOrderKey() string {
	return "WO-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
