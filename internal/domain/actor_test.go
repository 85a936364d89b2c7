package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func classB() Actor  { return Actor{ID: "off-b", Role: RoleOfficer, OfficerClass: OfficerClassB} }
func classC() Actor  { return Actor{ID: "off-c", Role: RoleOfficer, OfficerClass: OfficerClassC} }
func classA() Actor  { return Actor{ID: "off-a", Role: RoleOfficer, OfficerClass: OfficerClassA} }
func citizen() Actor { return Actor{ID: "cit-1", Role: RoleCitizen} }
func contractor() Actor {
	return Actor{ID: "con-1", Role: RoleContractor}
}

func TestCanTransitionTicketAssign(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusPending}

	require.True(t, CanTransitionTicket(classB(), ticket, TicketStatusAssigned))

	// Everyone else is refused, regardless of ticket state.
	for _, actor := range []Actor{classA(), classC(), citizen(), contractor()} {
		require.False(t, CanTransitionTicket(actor, ticket, TicketStatusAssigned), "role %s class %s", actor.Role, actor.OfficerClass)
	}
}

func TestCanTransitionTicketStartAndResolve(t *testing.T) {
	assignee := classC()
	ticket := &Ticket{Status: TicketStatusAssigned, AssignedTo: assignee.ID}

	for _, target := range []TicketStatus{TicketStatusInProgress, TicketStatusResolved} {
		require.True(t, CanTransitionTicket(assignee, ticket, target), "assignee on %s", target)
		require.True(t, CanTransitionTicket(classB(), ticket, target), "class_b super on %s", target)

		other := classC()
		other.ID = "off-c-other"
		require.False(t, CanTransitionTicket(other, ticket, target), "non-assignee officer on %s", target)
		require.False(t, CanTransitionTicket(citizen(), ticket, target), "citizen on %s", target)
		require.False(t, CanTransitionTicket(classA(), ticket, target), "class_a on %s", target)
	}
}

func TestCanTransitionTicketContractorAssignee(t *testing.T) {
	worker := contractor()
	ticket := &Ticket{Status: TicketStatusAssigned, AssignedTo: worker.ID}
	require.True(t, CanTransitionTicket(worker, ticket, TicketStatusInProgress))

	stranger := contractor()
	stranger.ID = "con-2"
	require.False(t, CanTransitionTicket(stranger, ticket, TicketStatusInProgress))
}

func TestCanTransitionTicketUnassigned(t *testing.T) {
	// An empty AssignedTo never matches an actor ID.
	ticket := &Ticket{Status: TicketStatusAssigned}
	actor := classC()
	actor.ID = ""
	require.False(t, CanTransitionTicket(actor, ticket, TicketStatusInProgress))
}

func TestCanSeeTicket(t *testing.T) {
	owner := citizen()
	assignedContractor := contractor()
	wardOfficer := classC()
	wardOfficer.WardID = "ward-7"

	ticket := &Ticket{
		CitizenID:  owner.ID,
		AssignedTo: assignedContractor.ID,
		Ward:       "ward-7",
	}

	require.True(t, CanSeeTicket(owner, ticket))
	require.True(t, CanSeeTicket(assignedContractor, ticket))
	require.True(t, CanSeeTicket(classA(), ticket))
	require.True(t, CanSeeTicket(wardOfficer, ticket))

	otherCitizen := citizen()
	otherCitizen.ID = "cit-2"
	require.False(t, CanSeeTicket(otherCitizen, ticket))

	otherContractor := contractor()
	otherContractor.ID = "con-9"
	require.False(t, CanSeeTicket(otherContractor, ticket))

	farOfficer := classC()
	farOfficer.WardID = "ward-1"
	require.False(t, CanSeeTicket(farOfficer, ticket))
}

func TestCanSeeTicketWardlessFallback(t *testing.T) {
	wardOfficer := classB()
	wardOfficer.WardID = "ward-3"
	ticket := &Ticket{CitizenID: "cit-x", Ward: ""}
	require.True(t, CanSeeTicket(wardOfficer, ticket))
}

func TestCanSeeTicketMixedOwnership(t *testing.T) {
	me := citizen()
	var mine, visible int
	for i := 0; i < 12; i++ {
		ticket := &Ticket{CitizenID: "cit-other"}
		if i%3 == 0 {
			ticket.CitizenID = me.ID
			mine++
		}
		if CanSeeTicket(me, ticket) {
			visible++
		}
	}
	require.Equal(t, mine, visible)
}

func TestCanExecuteFieldWork(t *testing.T) {
	require.True(t, contractor().CanExecuteFieldWork())
	require.True(t, classC().CanExecuteFieldWork())
	require.False(t, classA().CanExecuteFieldWork())
	require.False(t, classB().CanExecuteFieldWork())
	require.False(t, citizen().CanExecuteFieldWork())
}

func TestCanSeeWorkOrder(t *testing.T) {
	assigned := contractor()
	order := &WorkOrder{ContractorID: assigned.ID, WardID: "ward-2"}

	require.True(t, CanSeeWorkOrder(assigned, order))
	require.True(t, CanSeeWorkOrder(classA(), order))

	wardOfficer := classC()
	wardOfficer.WardID = "ward-2"
	require.True(t, CanSeeWorkOrder(wardOfficer, order))

	farOfficer := classC()
	farOfficer.WardID = "ward-9"
	require.False(t, CanSeeWorkOrder(farOfficer, order))

	require.False(t, CanSeeWorkOrder(citizen(), order))

	stranger := contractor()
	stranger.ID = "con-99"
	require.False(t, CanSeeWorkOrder(stranger, order))
}
