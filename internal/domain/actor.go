package domain

// Actor identifies the caller of a state-machine operation. It is built per
// request by the transport layer; the core holds no session state.
type Actor struct {
	ID           string
	Role         Role
	OfficerClass OfficerClass // set only when Role == RoleOfficer
	WardID       string
}

// IsOfficer reports whether the actor holds any officer class.
func (a Actor) IsOfficer() bool {
	return a.Role == RoleOfficer
}

// IsClassB reports whether the actor is a department-level officer, who may
// act on any ticket regardless of assignment.
func (a Actor) IsClassB() bool {
	return a.Role == RoleOfficer && a.OfficerClass == OfficerClassB
}

// CanExecuteFieldWork reports whether the actor qualifies as a ticket
// assignee: class_c officers and contractors do field work.
func (a Actor) CanExecuteFieldWork() bool {
	switch a.Role {
	case RoleContractor:
		return true
	case RoleOfficer:
		return a.OfficerClass == OfficerClassC
	default:
		return false
	}
}

// CanTransitionTicket is the permission predicate for ticket transitions.
// It is a pure function of its inputs; the state-machine precondition
// (current status matches the required predecessor) is checked separately.
//
//   - pending -> assigned: class_b officers only.
//   - assigned -> in_progress, in_progress -> resolved: class_b officers on
//     any ticket, or the exact assignee (officer or contractor).
//
// Class_b keeps its super-resolver privilege regardless of who assigned.
func CanTransitionTicket(actor Actor, ticket *Ticket, target TicketStatus) bool {
	switch target {
	case TicketStatusAssigned:
		return actor.IsClassB()
	case TicketStatusInProgress, TicketStatusResolved:
		if actor.IsClassB() {
			return true
		}
		switch actor.Role {
		case RoleOfficer, RoleContractor:
			return ticket.AssignedTo != "" && ticket.AssignedTo == actor.ID
		default:
			return false
		}
	default:
		return false
	}
}

// CanSeeTicket is the visibility predicate behind role-scoped listing.
// Ward officers also see tickets that carry no ward at all; legacy records
// predate ward stamping and are intentionally shown rather than hidden.
func CanSeeTicket(actor Actor, ticket *Ticket) bool {
	switch actor.Role {
	case RoleCitizen:
		return ticket.CitizenID == actor.ID
	case RoleContractor:
		return ticket.AssignedTo != "" && ticket.AssignedTo == actor.ID
	case RoleOfficer:
		if actor.OfficerClass == OfficerClassA {
			return true
		}
		return ticket.Ward == "" || ticket.Ward == actor.WardID
	default:
		return false
	}
}

// CanSeeWorkOrder mirrors CanSeeTicket for the contractor lifecycle.
func CanSeeWorkOrder(actor Actor, order *WorkOrder) bool {
	switch actor.Role {
	case RoleContractor:
		return order.ContractorID != "" && order.ContractorID == actor.ID
	case RoleOfficer:
		if actor.OfficerClass == OfficerClassA {
			return true
		}
		return order.WardID == "" || order.WardID == actor.WardID
	default:
		return false
	}
}
