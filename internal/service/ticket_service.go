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

// TicketService coordinates the citizen complaint lifecycle:
// pending -> assigned -> in_progress -> resolved.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes a citizen submission.
type TicketCreateInput struct {
	Title       string
	Description string
	IssueType   string
	Department  string
	Ward        string
}

// TicketListFilter describes caller-supplied listing filters; visibility
// scoping is derived from the actor, not the filter.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	SearchTerm string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// Create registers a new complaint for a citizen. Tickets always start
// pending; triage fields (issue type, department, ward) arrive pre-computed.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleCitizen {
		return nil, apperrors.NewForbidden("only citizens can submit complaints")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket := &domain.Ticket{
		TicketID:    generateTicketKey(),
		CitizenID:   actor.ID,
		Title:       title,
		Description: description,
		IssueType:   strings.TrimSpace(input.IssueType),
		Department:  strings.TrimSpace(input.Department),
		Ward:        strings.TrimSpace(input.Ward),
		Status:      domain.TicketStatusPending,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishTicketEvent(ctx, events.EventTicketCreated, ticket, actor.ID, "")
	return ticket, nil
}

// Assign moves a pending ticket to assigned. Only class_b officers may
// assign, and only to someone who can execute field work: a class_c officer
// or a contractor.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTicket(actor, ticket, domain.TicketStatusAssigned) {
		return nil, apperrors.NewForbidden("only class_b officers can assign tickets")
	}
	if err := requireTicketTransition(ticket, domain.TicketStatusPending, domain.TicketStatusAssigned); err != nil {
		return nil, err
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.AsActor().CanExecuteFieldWork() {
		return nil, apperrors.NewValidationError("assignee must be a class_c officer or a contractor", map[string]any{
			"user_id": assigneeID,
			"role":    assignee.Role,
		})
	}

	now := s.now()
	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedTo = assignee.ID
	ticket.AssignedBy = actor.ID
	ticket.AssignedAt = &now
	ticket.UpdatedAt = now

	if err := s.tickets.UpdateStatus(ctx, ticket, domain.TicketStatusPending); err != nil {
		return nil, s.mapUpdateError(err, ticketID)
	}
	s.publishTicketEvent(ctx, events.EventTicketAssigned, ticket, actor.ID, assignee.Name)
	return ticket, nil
}

// Start moves an assigned ticket to in_progress. Permitted for any class_b
// officer, or for the exact assignee regardless of role.
func (s *TicketService) Start(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTicket(actor, ticket, domain.TicketStatusInProgress) {
		return nil, apperrors.NewForbidden("you must be assigned to this ticket or be a class_b officer to start work")
	}
	if err := requireTicketTransition(ticket, domain.TicketStatusAssigned, domain.TicketStatusInProgress); err != nil {
		return nil, err
	}

	now := s.now()
	ticket.Status = domain.TicketStatusInProgress
	ticket.InProgressAt = &now
	ticket.UpdatedAt = now

	if err := s.tickets.UpdateStatus(ctx, ticket, domain.TicketStatusAssigned); err != nil {
		return nil, s.mapUpdateError(err, ticketID)
	}
	s.publishTicketEvent(ctx, events.EventTicketInProgress, ticket, actor.ID, s.lookupName(ctx, actor.ID))
	return ticket, nil
}

// Resolve moves an in_progress ticket to resolved, the terminal state.
// Same authorization as Start.
func (s *TicketService) Resolve(ctx context.Context, actor domain.Actor, ticketID, resolutionNotes string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTicket(actor, ticket, domain.TicketStatusResolved) {
		return nil, apperrors.NewForbidden("you must be assigned to this ticket or be a class_b officer to resolve it")
	}
	if err := requireTicketTransition(ticket, domain.TicketStatusInProgress, domain.TicketStatusResolved); err != nil {
		return nil, err
	}

	now := s.now()
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedBy = actor.ID
	ticket.ResolvedAt = &now
	ticket.UpdatedAt = now
	if notes := strings.TrimSpace(resolutionNotes); notes != "" {
		ticket.ResolutionNotes = notes
	}

	if err := s.tickets.UpdateStatus(ctx, ticket, domain.TicketStatusInProgress); err != nil {
		return nil, s.mapUpdateError(err, ticketID)
	}
	s.publishTicketEvent(ctx, events.EventTicketResolved, ticket, actor.ID, s.lookupName(ctx, actor.ID))
	return ticket, nil
}

// List returns tickets visible to the actor. Citizens see their own,
// contractors their assignments, class_a officers everything, and ward
// officers their ward plus unscoped legacy tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		repoFilter.SearchTerm = &term
	}
	if err := applyActorScope(&repoFilter, actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches a single ticket, gated by the same visibility predicate as List.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanSeeTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func applyActorScope(filter *repository.TicketFilter, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleCitizen:
		id := actor.ID
		filter.CitizenID = &id
	case domain.RoleContractor:
		id := actor.ID
		filter.AssignedTo = &id
	case domain.RoleOfficer:
		if actor.OfficerClass == domain.OfficerClassA {
			return nil
		}
		if actor.WardID == "" {
			return apperrors.NewValidationError("ward information required for ward officers", nil)
		}
		ward := actor.WardID
		filter.Ward = &ward
		filter.IncludeUnscoped = true
	default:
		return apperrors.NewForbidden("unknown role")
	}
	return nil
}

// requireTicketTransition checks the state-machine guard: the ticket must
// sit in the required predecessor state and the lifecycle table must allow
// the move.
func requireTicketTransition(ticket *domain.Ticket, from, to domain.TicketStatus) error {
	if ticket.Status != from || !domain.TicketLifecycle.CanMove(from, to) {
		return apperrors.NewInvalidState(string(ticket.Status), string(from))
	}
	return nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) mapUpdateError(err error, ticketID string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

// lookupName resolves an actor's display name for notification copy.
// Best-effort: an unknown id just yields an empty name.
func (s *TicketService) lookupName(ctx context.Context, userID string) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Name
}

// publishTicketEvent emits a notification event addressed to the reporting
// citizen. Failures here never reach the transition caller.
func (s *TicketService) publishTicketEvent(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actorID, actorName string) {
	if s.dispatcher == nil {
		return
	}
	recipient := ""
	if citizen, err := s.users.GetByID(ctx, ticket.CitizenID); err == nil {
		recipient = citizen.Email
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		TicketID:       ticket.TicketID,
		ActorID:        actorID,
		ActorName:      actorName,
		RecipientEmail: recipient,
		Timestamp:      s.now(),
		Ticket: &events.TicketSnapshot{
			TicketID:    ticket.TicketID,
			Title:       ticket.Title,
			Description: ticket.Description,
			IssueType:   ticket.IssueType,
			Department:  ticket.Department,
			Ward:        ticket.Ward,
			Status:      ticket.Status,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
