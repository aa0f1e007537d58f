package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/store"
)

// broadcast is one recorded event. userID is empty for global events.
type broadcast struct {
	userID  string
	name    string
	payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcast
	err    error
}

func (r *recordingBroadcaster) BroadcastGlobal(_ context.Context, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcast{name: name, payload: payload})
	return r.err
}

func (r *recordingBroadcaster) BroadcastToUser(_ context.Context, userID, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcast{userID: userID, name: name, payload: payload})
	return r.err
}

func (r *recordingBroadcaster) named(name string) []broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []broadcast
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingBroadcaster) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, string, string, notify.Template, string) (*notify.Notification, error) {
	return nil, errors.New("notification store unavailable")
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	m          *Manager
	store      *store.SQLiteStore
	dispatcher *notify.Dispatcher
	events     *recordingBroadcaster
	clock      *clock

	alice, bob, carol string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{
		store:      s,
		dispatcher: notify.NewDispatcher(s, 0),
		events:     &recordingBroadcaster{},
		clock:      &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.m = NewManager(s, f.dispatcher, f.events)
	f.m.SetClock(f.clock.now)

	f.alice = f.seedUser(t, "Alice")
	f.bob = f.seedUser(t, "Bob")
	f.carol = f.seedUser(t, "Carol")
	return f
}

func (f *fixture) seedUser(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.store.CreateUser(context.Background(), &store.UserRecord{
		ID: id, Name: name, Email: name + "@example.com", PasswordHash: "x",
		CreatedAt: f.clock.t, UpdatedAt: f.clock.t,
	}))
	return id
}

// input returns a valid CreateInput due one day after the fixture clock.
func (f *fixture) input(title string) CreateInput {
	return CreateInput{
		Title:       title,
		Description: "details",
		DueDate:     f.clock.t.Add(24 * time.Hour).Format(time.RFC3339),
	}
}

func (f *fixture) notifications(t *testing.T, userID string) []notify.Notification {
	t.Helper()
	list, err := f.dispatcher.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	return list
}

func strPtr(s string) *string { return &s }

func TestManager_Create_PersistsWithDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	created, err := f.m.Create(context.Background(), f.alice, f.input("  Write docs "))
	require.NoError(t, err)

	assert.NoError(t, ValidateID("task", created.ID))
	assert.Equal(t, "Write docs", created.Title)
	assert.Equal(t, StatusToDo, created.Status)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.Equal(t, f.alice, created.CreatorID)
	require.NotNil(t, created.Creator)
	assert.Equal(t, "Alice", created.Creator.Name)
	assert.Nil(t, created.AssignedTo)
	assert.True(t, created.DueDate.After(f.clock.t))
	assert.Equal(t, f.clock.t, created.CreatedAt)
}

func TestManager_Create_PastDueDateRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, due := range []string{
		f.clock.t.Add(-time.Hour).Format(time.RFC3339),
		f.clock.t.Format(time.RFC3339),
		"2025-06-01",
	} {
		in := f.input("late")
		in.DueDate = due
		_, err := f.m.Create(ctx, f.alice, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, due)
	}

	tasks, err := f.m.List(ctx, Filter{}, Sort{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, f.events.named(notify.EventTaskCreated))
}

func TestManager_Create_ValidatesInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	mutations := map[string]func(*CreateInput){
		"missing title":       func(in *CreateInput) { in.Title = " " },
		"missing description": func(in *CreateInput) { in.Description = "" },
		"missing due date":    func(in *CreateInput) { in.DueDate = "" },
		"bad due date":        func(in *CreateInput) { in.DueDate = "soon" },
		"bad priority":        func(in *CreateInput) { in.Priority = "Critical" },
		"bad assignee":        func(in *CreateInput) { in.AssignedToID = "bob" },
	}
	for name, mutate := range mutations {
		in := f.input("x")
		mutate(&in)
		_, err := f.m.Create(ctx, f.alice, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
}

func TestManager_Create_AssignedToOtherUserNotifiesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := f.input("Ship release")
	in.Priority = PriorityHigh
	in.AssignedToID = f.bob
	created, err := f.m.Create(context.Background(), f.alice, in)
	require.NoError(t, err)

	require.NotNil(t, created.AssignedTo)
	assert.Equal(t, "Bob", created.AssignedTo.Name)

	list := f.notifications(t, f.bob)
	require.Len(t, list, 1)
	assert.Equal(t, `You have been assigned a new task: "Ship release"`, list[0].Message)
	assert.Equal(t, created.ID, list[0].TaskID)
	assert.False(t, list[0].IsRead)
	assert.Empty(t, f.notifications(t, f.alice))

	// Global creation first, then the two scoped events for the assignee.
	require.Len(t, f.events.events, 3)
	assert.Equal(t, broadcast{name: notify.EventTaskCreated, payload: created}, f.events.events[0])
	assert.Equal(t, notify.EventTaskAssigned, f.events.events[1].name)
	assert.Equal(t, f.bob, f.events.events[1].userID)
	assert.Equal(t, notify.EventNotificationNew, f.events.events[2].name)
	assert.Equal(t, f.bob, f.events.events[2].userID)
	assert.Equal(t, f.events.events[1].payload, f.events.events[2].payload)

	n, ok := f.events.events[1].payload.(*notify.Notification)
	require.True(t, ok)
	assert.Equal(t, list[0].ID, n.ID)
}

func TestManager_Create_SelfAssignmentNoNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := f.input("Mine")
	in.AssignedToID = f.alice
	_, err := f.m.Create(context.Background(), f.alice, in)
	require.NoError(t, err)

	assert.Empty(t, f.notifications(t, f.alice))
	assert.Len(t, f.events.named(notify.EventTaskCreated), 1)
	assert.Empty(t, f.events.named(notify.EventTaskAssigned))
	assert.Empty(t, f.events.named(notify.EventNotificationNew))
}

func TestManager_Update_WithoutDueDateSkipsRevalidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.m.Create(ctx, f.alice, f.input("Old"))
	require.NoError(t, err)

	f.clock.advance(72 * time.Hour) // task is now overdue

	updated, err := f.m.Update(ctx, created.ID, UpdateInput{Title: strPtr("Renamed")}, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, created.DueDate.Equal(updated.DueDate))
	assert.Equal(t, f.clock.t, updated.UpdatedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.alice, updated.CreatorID)

	_, err = f.m.Update(ctx, created.ID, UpdateInput{DueDate: strPtr(created.DueDate.Format(time.RFC3339))}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestManager_Update_RepeatedAssignmentNotifiesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.m.Create(ctx, f.alice, f.input("Review PR"))
	require.NoError(t, err)

	in := UpdateInput{AssignedToID: SetString(f.bob)}
	_, err = f.m.Update(ctx, created.ID, in, f.alice)
	require.NoError(t, err)
	_, err = f.m.Update(ctx, created.ID, in, f.alice)
	require.NoError(t, err)

	list := f.notifications(t, f.bob)
	require.Len(t, list, 1)
	assert.Equal(t, `You have been assigned to task: "Review PR"`, list[0].Message)
	assert.Len(t, f.events.named(notify.EventTaskUpdated), 2)
	assert.Len(t, f.events.named(notify.EventTaskAssigned), 1)
	assert.Len(t, f.events.named(notify.EventNotificationNew), 1)
}

func TestManager_Update_ClearAssigneeNoNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("Clear me")
	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)
	f.events.reset()

	updated, err := f.m.Update(ctx, created.ID, UpdateInput{AssignedToID: SetString("")}, f.alice)
	require.NoError(t, err)
	assert.Empty(t, updated.AssignedToID)
	assert.Nil(t, updated.AssignedTo)

	assert.Len(t, f.notifications(t, f.bob), 1, "only the creation notification")
	assert.Len(t, f.events.named(notify.EventTaskUpdated), 1)
	assert.Empty(t, f.events.named(notify.EventTaskAssigned))
}

func TestManager_Update_AssignToActorNoNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.m.Create(ctx, f.alice, f.input("Take it"))
	require.NoError(t, err)

	_, err = f.m.Update(ctx, created.ID, UpdateInput{AssignedToID: SetString(f.bob)}, f.bob)
	require.NoError(t, err)
	assert.Empty(t, f.notifications(t, f.bob))
}

func TestManager_Update_ReassignNotifiesNewAssignee(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("Handoff")
	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)

	_, err = f.m.Update(ctx, created.ID, UpdateInput{AssignedToID: SetString(f.carol)}, f.alice)
	require.NoError(t, err)

	assert.Len(t, f.notifications(t, f.bob), 1)
	carol := f.notifications(t, f.carol)
	require.Len(t, carol, 1)
	assert.Equal(t, `You have been assigned to task: "Handoff"`, carol[0].Message)
}

func TestManager_Update_NoAssigneeFieldNoNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("Keep")
	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)

	status := StatusInProgress
	updated, err := f.m.Update(ctx, created.ID, UpdateInput{Status: &status}, f.alice)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)
	assert.Equal(t, f.bob, updated.AssignedToID)
	assert.Len(t, f.notifications(t, f.bob), 1)
}

func TestManager_Update_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.Update(ctx, "not-a-uuid", UpdateInput{}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.m.Update(ctx, uuid.NewString(), UpdateInput{}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	created, err := f.m.Create(ctx, f.alice, f.input("x"))
	require.NoError(t, err)

	bad := Status("Done")
	_, err = f.m.Update(ctx, created.ID, UpdateInput{Status: &bad}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	badP := Priority("low")
	_, err = f.m.Update(ctx, created.ID, UpdateInput{Priority: &badP}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.m.Update(ctx, created.ID, UpdateInput{Title: strPtr("")}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got, "failed updates change nothing")
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("Temp")
	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)
	f.events.reset()

	require.NoError(t, f.m.Delete(ctx, created.ID))

	_, err = f.m.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, broadcast{name: notify.EventTaskDeleted, payload: map[string]string{"taskId": created.ID}}, f.events.events[0])
	assert.Len(t, f.notifications(t, f.bob), 1, "deletion creates no notification")

	assert.ErrorIs(t, f.m.Delete(ctx, created.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, f.m.Delete(ctx, "nope"), apperr.ErrValidation)
}

func TestManager_Get_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := CreateInput{
		Title:        "Round trip",
		Description:  "every field",
		DueDate:      "2025-06-10",
		Priority:     PriorityUrgent,
		AssignedToID: f.carol,
	}
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)

	got, err := f.m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.True(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC).Equal(got.DueDate))
	assert.Equal(t, in.Priority, got.Priority)
	assert.Equal(t, in.AssignedToID, got.AssignedToID)

	_, err = f.m.Get(ctx, "bad id")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestManager_List_Overdue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	soon := f.input("soon")
	soon.DueDate = f.clock.t.Add(time.Hour).Format(time.RFC3339)
	late, err := f.m.Create(ctx, f.alice, soon)
	require.NoError(t, err)

	doneIn := f.input("done")
	doneIn.DueDate = f.clock.t.Add(time.Hour).Format(time.RFC3339)
	done, err := f.m.Create(ctx, f.alice, doneIn)
	require.NoError(t, err)

	future := f.input("future")
	future.DueDate = f.clock.t.Add(30 * 24 * time.Hour).Format(time.RFC3339)
	_, err = f.m.Create(ctx, f.alice, future)
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)
	completed := StatusCompleted
	_, err = f.m.Update(ctx, done.ID, UpdateInput{Status: &completed}, f.alice)
	require.NoError(t, err)

	tasks, err := f.m.List(ctx, Filter{Overdue: true}, Sort{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, late.ID, tasks[0].ID)
}

func TestManager_List_FiltersAndSorts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	create := func(title string, p Priority, dueDays int, assignee string) *Task {
		in := f.input(title)
		in.Priority = p
		in.DueDate = f.clock.t.Add(time.Duration(dueDays) * 24 * time.Hour).Format(time.RFC3339)
		in.AssignedToID = assignee
		task, err := f.m.Create(ctx, f.alice, in)
		require.NoError(t, err)
		f.clock.advance(time.Minute)
		return task
	}
	low := create("low", PriorityLow, 3, f.bob)
	urgent := create("urgent", PriorityUrgent, 5, "")
	medium := create("medium", PriorityMedium, 1, f.bob)

	ids := func(tasks []Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}

	all, err := f.m.List(ctx, Filter{}, Sort{})
	require.NoError(t, err)
	assert.Equal(t, []string{medium.ID, urgent.ID, low.ID}, ids(all), "newest first by default")

	byPriority, err := f.m.List(ctx, Filter{}, Sort{Field: SortByPriority})
	require.NoError(t, err)
	assert.Equal(t, []string{urgent.ID, medium.ID, low.ID}, ids(byPriority))

	byPriorityAsc, err := f.m.List(ctx, Filter{}, Sort{Field: SortByPriority, Order: OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{low.ID, medium.ID, urgent.ID}, ids(byPriorityAsc))

	byDue, err := f.m.List(ctx, Filter{}, Sort{Field: SortByDueDate, Order: OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{medium.ID, low.ID, urgent.ID}, ids(byDue))

	bobs, err := f.m.List(ctx, Filter{AssignedToID: f.bob, Priority: PriorityLow}, Sort{})
	require.NoError(t, err)
	assert.Equal(t, []string{low.ID}, ids(bobs))
	require.NotNil(t, bobs[0].AssignedTo)
	assert.Equal(t, "Bob", bobs[0].AssignedTo.Name)

	mine, err := f.m.List(ctx, Filter{CreatorID: f.alice}, Sort{})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = f.m.List(ctx, Filter{Status: "Done"}, Sort{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.m.List(ctx, Filter{}, Sort{Field: "title"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestManager_BroadcastFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.events.err = errors.New("transport down")
	ctx := context.Background()

	in := f.input("Resilient")
	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)
	assert.Len(t, f.notifications(t, f.bob), 1)

	require.NoError(t, f.m.Delete(ctx, created.ID))
}

func TestManager_NilBroadcaster(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := NewManager(f.store, f.dispatcher, nil)
	m.SetClock(f.clock.now)

	in := f.input("Quiet")
	in.AssignedToID = f.bob
	_, err := m.Create(context.Background(), f.alice, in)
	require.NoError(t, err)
	assert.Len(t, f.notifications(t, f.bob), 1)
}

func TestManager_NotificationFailureKeepsTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := NewManager(f.store, failingNotifier{}, f.events)
	m.SetClock(f.clock.now)
	ctx := context.Background()

	in := f.input("Half done")
	in.AssignedToID = f.bob
	_, err := m.Create(ctx, f.alice, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification store unavailable")

	tasks, err := m.List(ctx, Filter{}, Sort{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1, "the task write is not rolled back")
	assert.Len(t, f.events.named(notify.EventTaskCreated), 1)
	assert.Empty(t, f.events.named(notify.EventTaskAssigned))
}

func TestManager_AssigneeVerification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.m.SetUserLookup(f.store)
	ctx := context.Background()

	in := f.input("Ghost")
	in.AssignedToID = uuid.NewString()
	_, err := f.m.Create(ctx, f.alice, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in.AssignedToID = f.bob
	created, err := f.m.Create(ctx, f.alice, in)
	require.NoError(t, err)

	_, err = f.m.Update(ctx, created.ID, UpdateInput{AssignedToID: SetString(uuid.NewString())}, f.alice)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// Clearing never needs a lookup.
	_, err = f.m.Update(ctx, created.ID, UpdateInput{AssignedToID: SetString("")}, f.alice)
	assert.NoError(t, err)
}

func TestManager_UnverifiedAssigneeAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := f.input("Unknown user")
	in.AssignedToID = uuid.NewString()
	created, err := f.m.Create(context.Background(), f.alice, in)
	require.NoError(t, err)
	assert.Nil(t, created.AssignedTo)
	assert.Len(t, f.notifications(t, in.AssignedToID), 1)
}
