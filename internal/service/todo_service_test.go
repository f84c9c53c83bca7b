package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontract "todoapp/contracts/mq"
	"todoapp/internal/authz"
	"todoapp/internal/model"
	"todoapp/internal/repository/sqlite"
	"todoapp/pkg/db"
)

type published struct {
	key     string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key: key, payload: payload})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type env struct {
	todos  *TodoService
	auth   *AuthService
	events *recordingPublisher
	now    time.Time
}

func newEnv(t *testing.T, mode DueTodayMode) *env {
	t.Helper()
	conn, err := db.NewSQLite(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	e := &env{
		events: &recordingPublisher{},
		now:    time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC),
	}
	e.todos = NewTodoService(
		sqlite.NewTaskRepository(conn, zap.NewNop()),
		e.events,
		Classifier{Mode: mode, Location: time.UTC},
		zap.NewNop(),
	)
	e.todos.SetClock(func() time.Time { return e.now })
	e.auth = NewAuthService(sqlite.NewUserRepository(conn), 4, zap.NewNop())
	return e
}

func (e *env) signup(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), SignupInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "password",
	})
	require.NoError(t, err)
	return u
}

func (e *env) add(t *testing.T, owner int, title string, due time.Time) *model.Task {
	t.Helper()
	task, err := e.todos.AddTask(context.Background(), owner, title, due)
	require.NoError(t, err)
	return task
}

func ids(tasks []model.Task) []int {
	out := []int{}
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestAddTask_Defaults(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")

	task := e.add(t, u.ID, "  Buy milk  ", e.now.Add(24*time.Hour))
	assert.NotZero(t, task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.False(t, task.Completed)
	assert.Equal(t, u.ID, task.UserID)
	assert.Equal(t, []string{mqcontract.RoutingTodoCreated}, e.events.keys())
}

func TestAddTask_Validation(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")

	_, err := e.todos.AddTask(context.Background(), u.ID, "   ", time.Time{})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Title is required", verr.Fields["title"])
	assert.Equal(t, "Due date is required", verr.Fields["dueDate"])

	tasks, err := e.todos.ListTasks(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, e.events.keys())
}

func TestAddTaskFromInput(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	task, err := e.todos.AddTaskFromInput(ctx, u.ID, "Write assignment", "2026-10-20")
	require.NoError(t, err)
	assert.True(t, task.DueDate.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)))

	task, err = e.todos.AddTaskFromInput(ctx, u.ID, "ISO", "2026-10-20T08:00:00.000Z")
	require.NoError(t, err)
	assert.True(t, task.DueDate.Equal(time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)))

	_, err = e.todos.AddTaskFromInput(ctx, u.ID, "", "tomorrow-ish")
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")
	assert.Equal(t, "Due date is not a valid date", verr.Fields["dueDate"])
}

func TestAddTask_RejectsAnonymousOwner(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	_, err := e.todos.AddTask(context.Background(), 0, "x", e.now)
	assert.ErrorIs(t, err, authz.ErrAnonymous)
}

func TestListTasks_ScopedToOwner(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	a := e.signup(t, "a@test.com")
	b := e.signup(t, "b@test.com")

	ta := e.add(t, a.ID, "X", e.now.Add(time.Hour))
	tb := e.add(t, b.ID, "X", e.now.Add(time.Hour))

	listA, err := e.todos.ListTasks(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{ta.ID}, ids(listA))

	listB, err := e.todos.ListTasks(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{tb.ID}, ids(listB))
}

func TestListTasks_OrderedByID(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")

	first := e.add(t, u.ID, "late", e.now.Add(48*time.Hour))
	second := e.add(t, u.ID, "early", e.now.Add(-48*time.Hour))

	list, err := e.todos.ListTasks(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{first.ID, second.ID}, ids(list))
}

func TestClassification_Instant(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	past := e.add(t, u.ID, "past", e.now.Add(-time.Minute))
	exact := e.add(t, u.ID, "exact", e.now)
	future := e.add(t, u.ID, "future", e.now.Add(time.Minute))

	overdue, err := e.todos.Overdue(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{past.ID}, ids(overdue))

	today, err := e.todos.DueToday(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{exact.ID}, ids(today))

	later, err := e.todos.DueLater(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{future.ID}, ids(later))

	completed, err := e.todos.CompletedItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestClassification_CalendarDay(t *testing.T) {
	e := newEnv(t, DueTodayCalendarDay)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	yesterday := e.add(t, u.ID, "yesterday", time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC))
	morning := e.add(t, u.ID, "this morning", time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	tonight := e.add(t, u.ID, "tonight", time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC))
	tomorrow := e.add(t, u.ID, "tomorrow", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	c, err := e.todos.Classify(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{yesterday.ID}, ids(c.Overdue))
	assert.Equal(t, []int{morning.ID, tonight.ID}, ids(c.DueToday))
	assert.Equal(t, []int{tomorrow.ID}, ids(c.DueLater))
	assert.Len(t, c.All, 4)
}

func TestScenario_DueLaterThenCompleted(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	task := e.add(t, u.ID, "Buy milk", e.now.Add(24*time.Hour))

	later, err := e.todos.DueLater(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{task.ID}, ids(later))

	_, err = e.todos.SetCompletionStatus(ctx, task, true, u.ID)
	require.NoError(t, err)

	completed, err := e.todos.CompletedItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{task.ID}, ids(completed))

	later, err = e.todos.DueLater(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestScenario_OverdueOnlyWhilePending(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	task := e.add(t, u.ID, "Pay rent", e.now.Add(-72*time.Hour))

	overdue, err := e.todos.Overdue(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{task.ID}, ids(overdue))

	_, err = e.todos.SetCompletionStatus(ctx, task, true, u.ID)
	require.NoError(t, err)
	overdue, err = e.todos.Overdue(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	_, err = e.todos.SetCompletionStatus(ctx, task, false, u.ID)
	require.NoError(t, err)
	overdue, err = e.todos.Overdue(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{task.ID}, ids(overdue))
}

func TestSetCompletionStatus_RoundTripKeepsOtherFields(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()
	task := e.add(t, u.ID, "Toggle me", e.now.Add(time.Hour))

	var cur = task
	for _, want := range []bool{true, false, true} {
		next, err := e.todos.SetCompletionStatus(ctx, cur, want, u.ID)
		require.NoError(t, err)
		assert.Equal(t, want, next.Completed)
		cur = next
	}

	assert.Equal(t, task.ID, cur.ID)
	assert.Equal(t, task.Title, cur.Title)
	assert.True(t, task.DueDate.Equal(cur.DueDate))
	assert.Equal(t, task.UserID, cur.UserID)
	assert.True(t, cur.Completed)
}

func TestMutations_RejectNonOwner(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	owner := e.signup(t, "owner@test.com")
	other := e.signup(t, "other@test.com")
	ctx := context.Background()

	pending := e.add(t, owner.ID, "pending", e.now.Add(time.Hour))
	done := e.add(t, owner.ID, "done", e.now.Add(-time.Hour))
	done, err := e.todos.SetCompletionStatus(ctx, done, true, owner.ID)
	require.NoError(t, err)

	for _, task := range []*model.Task{pending, done} {
		for _, completed := range []bool{true, false} {
			_, err := e.todos.SetCompletionStatus(ctx, task, completed, other.ID)
			assert.True(t, authz.IsForbidden(err))
		}
		assert.True(t, authz.IsForbidden(e.todos.RemoveTask(ctx, task, other.ID)))

		_, err := e.todos.Task(ctx, task.ID, other.ID)
		assert.True(t, authz.IsForbidden(err))
	}

	list, err := e.todos.ListTasks(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Completed)
	assert.True(t, list[1].Completed)
}

func TestMutations_IgnoreForgedOwnerOnTask(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	owner := e.signup(t, "owner@test.com")
	other := e.signup(t, "other@test.com")
	ctx := context.Background()
	task := e.add(t, owner.ID, "mine", e.now)

	forged := *task
	forged.UserID = other.ID

	_, err := e.todos.SetCompletionStatus(ctx, &forged, true, other.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, e.todos.RemoveTask(ctx, &forged, other.ID), model.ErrNotFound)

	still, err := e.todos.Task(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, still.Completed)
}

func TestRemoveTask(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()
	task := e.add(t, u.ID, "bye", e.now)

	require.NoError(t, e.todos.RemoveTask(ctx, task, u.ID))

	_, err := e.todos.Task(ctx, task.ID, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, e.todos.RemoveTask(ctx, task, u.ID), model.ErrNotFound)
	assert.Equal(t, []string{mqcontract.RoutingTodoCreated, mqcontract.RoutingTodoRemoved}, e.events.keys())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	e.events.err = errors.New("broker down")
	u := e.signup(t, "a@test.com")

	task, err := e.todos.AddTask(context.Background(), u.ID, "still saved", e.now)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
}

func TestListWithStatus(t *testing.T) {
	e := newEnv(t, DueTodayInstant)
	u := e.signup(t, "a@test.com")
	ctx := context.Background()

	e.add(t, u.ID, "past", e.now.Add(-time.Hour))
	e.add(t, u.ID, "now", e.now)
	e.add(t, u.ID, "future", e.now.Add(time.Hour))
	done := e.add(t, u.ID, "done", e.now.Add(time.Hour))
	_, err := e.todos.SetCompletionStatus(ctx, done, true, u.ID)
	require.NoError(t, err)

	list, err := e.todos.ListWithStatus(ctx, u.ID)
	require.NoError(t, err)
	statuses := []string{}
	for _, st := range list {
		statuses = append(statuses, st.Status)
	}
	assert.Equal(t, []string{
		model.StatusOverdue,
		model.StatusDueToday,
		model.StatusDueLater,
		model.StatusCompleted,
	}, statuses)
}

func TestParseDueTodayMode(t *testing.T) {
	m, err := ParseDueTodayMode("")
	require.NoError(t, err)
	assert.Equal(t, DueTodayInstant, m)

	m, err = ParseDueTodayMode("calendar_day")
	require.NoError(t, err)
	assert.Equal(t, DueTodayCalendarDay, m)

	_, err = ParseDueTodayMode("weekly")
	assert.Error(t, err)
}
