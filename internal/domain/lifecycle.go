package domain

// Lifecycle is a finite-state transition table shared by the ticket and
// work-order state machines. Both lifecycles are strictly forward; a state
// with no successors is terminal.
type Lifecycle[S comparable] struct {
	transitions map[S][]S
}

// NewLifecycle builds a lifecycle from its successor table.
func NewLifecycle[S comparable](transitions map[S][]S) Lifecycle[S] {
	return Lifecycle[S]{transitions: transitions}
}

// CanMove reports whether current -> next is an allowed transition.
func (l Lifecycle[S]) CanMove(current, next S) bool {
	for _, candidate := range l.transitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves the given state.
func (l Lifecycle[S]) Terminal(state S) bool {
	return len(l.transitions[state]) == 0
}

// TicketLifecycle: pending -> assigned -> in_progress -> resolved.
// No skips, no regressions.
var TicketLifecycle = NewLifecycle(map[TicketStatus][]TicketStatus{
	TicketStatusPending:    {TicketStatusAssigned},
	TicketStatusAssigned:   {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {},
})

// WorkOrderLifecycle: created -> assigned -> {accepted | rejected}, then
// accepted -> en_route -> on_site -> in_progress -> completed -> verified
// -> closed. Rejected and closed are terminal.
var WorkOrderLifecycle = NewLifecycle(map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusCreated:    {WorkOrderStatusAssigned},
	WorkOrderStatusAssigned:   {WorkOrderStatusAccepted, WorkOrderStatusRejected},
	WorkOrderStatusAccepted:   {WorkOrderStatusEnRoute},
	WorkOrderStatusEnRoute:    {WorkOrderStatusOnSite},
	WorkOrderStatusOnSite:     {WorkOrderStatusInProgress},
	WorkOrderStatusInProgress: {WorkOrderStatusCompleted},
	WorkOrderStatusCompleted:  {WorkOrderStatusVerified},
	WorkOrderStatusVerified:   {WorkOrderStatusClosed},
	WorkOrderStatusRejected:   {},
	WorkOrderStatusClosed:     {},
})
