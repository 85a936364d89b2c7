package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civic-kit/civic-issue-service/internal/domain"
	"github.com/civic-kit/civic-issue-service/internal/events"
	apperrors "github.com/civic-kit/civic-issue-service/pkg/util"
)

type workOrderFixture struct {
	service    *WorkOrderService
	orders     *fakeWorkOrderRepo
	users      *fakeUserRepo
	dispatcher events.Dispatcher

	officer    domain.Actor
	officerA   domain.Actor
	contractor domain.Actor
	citizen    domain.Actor
}

func newWorkOrderFixture(t *testing.T) *workOrderFixture {
	t.Helper()

	officer := &domain.User{ID: "off-b", Name: "Dept Head", Email: "b@gov.example.com", Role: domain.RoleOfficer, OfficerClass: domain.OfficerClassB, WardID: "ward-1", Active: true}
	officerA := &domain.User{ID: "off-a", Name: "Commissioner", Email: "a@gov.example.com", Role: domain.RoleOfficer, OfficerClass: domain.OfficerClassA, Active: true}
	contractor := &domain.User{ID: "con-1", Name: "Fixit Ltd", Email: "ops@fixit.example.com", Role: domain.RoleContractor, Active: true}
	citizen := &domain.User{ID: "cit-1", Name: "Asha", Email: "asha@example.com", Role: domain.RoleCitizen, Active: true}

	users := newFakeUserRepo(officer, officerA, contractor, citizen)
	orders := newFakeWorkOrderRepo()
	dispatcher := events.NewInMemoryDispatcher()

	svc := NewWorkOrderService(WorkOrderDependencies{
		WorkOrderRepo: orders,
		UserRepo:      users,
		Dispatcher:    dispatcher,
	})

	return &workOrderFixture{
		service:    svc,
		orders:     orders,
		users:      users,
		dispatcher: dispatcher,
		officer:    officer.AsActor(),
		officerA:   officerA.AsActor(),
		contractor: contractor.AsActor(),
		citizen:    citizen.AsActor(),
	}
}

func (f *workOrderFixture) createOrder(t *testing.T) *domain.WorkOrder {
	t.Helper()
	order, err := f.service.Create(context.Background(), f.officer, WorkOrderCreateInput{
		TicketID:    "TCK-AB12CD34",
		Category:    "pothole",
		Description: "Fill pothole near school",
		Department:  "roads",
		WardID:      "ward-1",
	})
	require.NoError(t, err)
	return order
}

// assignedOrder runs create + assign and returns the order.
func (f *workOrderFixture) assignedOrder(t *testing.T) *domain.WorkOrder {
	t.Helper()
	order := f.createOrder(t)
	assigned, err := f.service.Assign(context.Background(), f.officer, order.WorkOrderID, f.contractor.ID)
	require.NoError(t, err)
	return assigned
}

func TestWorkOrderCreate(t *testing.T) {
	f := newWorkOrderFixture(t)

	order := f.createOrder(t)
	require.Equal(t, domain.WorkOrderStatusCreated, order.Status)
	require.Equal(t, domain.WorkOrderPriorityMedium, order.Priority)
	require.Regexp(t, `^WO-[0-9A-F]{8}$`, order.WorkOrderID)
	require.Len(t, order.Timeline, 1)
	require.Equal(t, domain.WorkOrderStatusCreated, order.Timeline[0].Status)
}

func TestWorkOrderCreateRequiresOfficerAndCategory(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.contractor, WorkOrderCreateInput{Category: "pothole"})
	require.True(t, apperrors.HasCode(err, "FORBIDDEN"))

	_, err = f.service.Create(ctx, f.officer, WorkOrderCreateInput{Category: "  "})
	require.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestWorkOrderAssign(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.createOrder(t)

	assigned, err := f.service.Assign(context.Background(), f.officer, order.WorkOrderID, f.contractor.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WorkOrderStatusAssigned, assigned.Status)
	require.Equal(t, f.contractor.ID, assigned.ContractorID)
	require.Equal(t, f.officer.ID, assigned.AssignedBy)
	require.NotNil(t, assigned.AssignedAt)
	require.Len(t, assigned.Timeline, 2)
}

func TestWorkOrderAssignOnlyToContractors(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.createOrder(t)
	ctx := context.Background()

	_, err := f.service.Assign(ctx, f.officer, order.WorkOrderID, f.citizen.ID)
	require.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	_, err = f.service.Assign(ctx, f.officer, order.WorkOrderID, "ghost")
	require.True(t, apperrors.HasCode(err, "NOT_FOUND"))

	_, err = f.service.Assign(ctx, f.contractor, order.WorkOrderID, f.contractor.ID)
	require.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}

func TestWorkOrderAcceptWithETA(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.assignedOrder(t)

	eta := time.Now().Add(2 * time.Hour)
	accepted, err := f.service.Accept(context.Background(), f.contractor, order.WorkOrderID, &eta)
	require.NoError(t, err)
	require.Equal(t, domain.WorkOrderStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ETA)
}

func TestWorkOrderAcceptOnlyAssignedContractor(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.assignedOrder(t)

	stranger := f.contractor
	stranger.ID = "con-99"
	_, err := f.service.Accept(context.Background(), stranger, order.WorkOrderID, nil)
	require.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}

func TestWorkOrderRejectRequiresReason(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.assignedOrder(t)

	_, err := f.service.Reject(context.Background(), f.contractor, order.WorkOrderID, "   ")
	require.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestWorkOrderRejectIsTerminal(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.assignedOrder(t)
	ctx := context.Background()

	rejected, err := f.service.Reject(ctx, f.contractor, order.WorkOrderID, "no capacity this week")
	require.NoError(t, err)
	require.Equal(t, domain.WorkOrderStatusRejected, rejected.Status)
	require.Equal(t, "no capacity this week", rejected.RejectionReason)

	_, err = f.service.Accept(ctx, f.contractor, order.WorkOrderID, nil)
	require.True(t, apperrors.HasCode(err, "INVALID_STATE"))
	_, err = f.service.Assign(ctx, f.officer, order.WorkOrderID, f.contractor.ID)
	require.True(t, apperrors.HasCode(err, "INVALID_STATE"))
}

func TestWorkOrderFullLifecycleTimeline(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()
	order := f.assignedOrder(t)
	id := order.WorkOrderID

	_, err := f.service.Accept(ctx, f.contractor, id, nil)
	require.NoError(t, err)
	_, err = f.service.MarkEnRoute(ctx, f.contractor, id)
	require.NoError(t, err)
	onSite, err := f.service.MarkOnSite(ctx, f.contractor, id)
	require.NoError(t, err)
	require.NotNil(t, onSite.ActualArrival)
	_, err = f.service.Start(ctx, f.contractor, id)
	require.NoError(t, err)
	completed, err := f.service.Complete(ctx, f.contractor, id, "patched and compacted")
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
	require.Equal(t, "patched and compacted", completed.CompletionNotes)

	verified, err := f.service.Verify(ctx, f.officer, id, "inspected on site")
	require.NoError(t, err)
	require.Equal(t, f.officer.ID, verified.VerifiedBy)
	closed, err := f.service.Close(ctx, f.officer, id)
	require.NoError(t, err)
	require.Equal(t, domain.WorkOrderStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// One timeline entry per transition: created, assigned, accepted,
	// en_route, on_site, in_progress, completed, verified, closed.
	require.Len(t, closed.Timeline, 9)
	require.Equal(t, domain.WorkOrderStatusClosed, closed.Timeline[8].Status)
}

func TestWorkOrderNoSkippingStates(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()
	order := f.assignedOrder(t)

	// Straight to completion from assigned is refused.
	_, err := f.service.Complete(ctx, f.contractor, order.WorkOrderID, "")
	require.True(t, apperrors.HasCode(err, "INVALID_STATE"))

	_, err = f.service.MarkOnSite(ctx, f.contractor, order.WorkOrderID)
	require.True(t, apperrors.HasCode(err, "INVALID_STATE"))
}

func TestWorkOrderVerifyRequiresOfficer(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()
	order := f.assignedOrder(t)
	id := order.WorkOrderID

	_, err := f.service.Accept(ctx, f.contractor, id, nil)
	require.NoError(t, err)
	_, err = f.service.MarkEnRoute(ctx, f.contractor, id)
	require.NoError(t, err)
	_, err = f.service.MarkOnSite(ctx, f.contractor, id)
	require.NoError(t, err)
	_, err = f.service.Start(ctx, f.contractor, id)
	require.NoError(t, err)
	_, err = f.service.Complete(ctx, f.contractor, id, "")
	require.NoError(t, err)

	_, err = f.service.Verify(ctx, f.contractor, id, "")
	require.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}

func TestWorkOrderMarkDelayedKeepsStatus(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()
	order := f.assignedOrder(t)
	id := order.WorkOrderID

	_, err := f.service.Accept(ctx, f.contractor, id, nil)
	require.NoError(t, err)

	newETA := time.Now().Add(48 * time.Hour)
	delayed, err := f.service.MarkDelayed(ctx, f.contractor, id, "material shortage", &newETA)
	require.NoError(t, err)
	require.True(t, delayed.Delayed)
	require.Equal(t, "material shortage", delayed.DelayReason)
	require.Equal(t, domain.WorkOrderStatusAccepted, delayed.Status)
	require.NotNil(t, delayed.ETA)

	// The lifecycle continues normally from the same state.
	_, err = f.service.MarkEnRoute(ctx, f.contractor, id)
	require.NoError(t, err)
}

func TestWorkOrderMarkDelayedValidation(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()
	order := f.assignedOrder(t)

	_, err := f.service.MarkDelayed(ctx, f.contractor, order.WorkOrderID, "", nil)
	require.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))

	// Assigned is not yet an active status; the contractor has not accepted.
	_, err = f.service.MarkDelayed(ctx, f.contractor, order.WorkOrderID, "late", nil)
	require.True(t, apperrors.HasCode(err, "INVALID_STATE"))
}

func TestWorkOrderListScoping(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()

	f.createOrder(t)
	assigned := f.assignedOrder(t)

	mine, err := f.service.List(ctx, f.contractor, WorkOrderListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, assigned.WorkOrderID, mine[0].WorkOrderID)

	all, err := f.service.List(ctx, f.officerA, WorkOrderListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	wardView, err := f.service.List(ctx, f.officer, WorkOrderListFilter{})
	require.NoError(t, err)
	require.Len(t, wardView, 2)

	_, err = f.service.List(ctx, f.citizen, WorkOrderListFilter{})
	require.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}

func TestWorkOrderRejectNotifiesAssigningOfficer(t *testing.T) {
	f := newWorkOrderFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []events.Event
	f.dispatcher.Subscribe(events.EventWorkOrderRejected, func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event)
		return nil
	})

	order := f.assignedOrder(t)
	_, err := f.service.Reject(ctx, f.contractor, order.WorkOrderID, "equipment failure")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.Equal(t, "b@gov.example.com", seen[0].RecipientEmail)
	require.Equal(t, "equipment failure", seen[0].Note)
}

func TestWorkOrderConcurrentAcceptExactlyOneWins(t *testing.T) {
	f := newWorkOrderFixture(t)
	order := f.assignedOrder(t)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Accept(context.Background(), f.contractor, order.WorkOrderID, nil)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, "CONFLICT"), apperrors.HasCode(err, "INVALID_STATE"):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
}
