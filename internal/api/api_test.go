package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlefebvre/taskhive/internal/bus"
	"github.com/nlefebvre/taskhive/internal/notify"
	"github.com/nlefebvre/taskhive/internal/store"
)

type testEnv struct {
	store *store.SQLiteStore
	bus   *bus.Bus
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	b := bus.New(16)
	n := notify.NewNotifier(notify.NewBuilder(st), b, 16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go n.Run(ctx)

	h := NewHandler(st, b, n, nil)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &testEnv{store: st, bus: b, srv: srv}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) newUser(t *testing.T) store.UserRecord {
	t.Helper()
	resp := e.get(t, "/api/generate_id")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[store.UserRecord](t, resp)
}

func (e *testEnv) newGroup(t *testing.T, name, userID string) store.GroupRecord {
	t.Helper()
	resp := e.post(t, "/api/create_group", map[string]string{
		"group_name": name,
		"user_id":    userID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[store.GroupRecord](t, resp)
}

func TestGenerateID_MintsUserAndBroadcasts(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	sub := e.bus.Subscribe(bus.TopicUserCreated, nil)
	defer sub.Close()

	user := e.newUser(t)
	assert.NotEmpty(t, user.ID)

	select {
	case payload := <-sub.Events():
		created := payload.(store.UserRecord)
		assert.Equal(t, user.ID, created.ID)
	case <-time.After(time.Second):
		t.Fatal("no user-created event published")
	}
}

func TestGetUser_ReturnsFullGraph(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)
	group := e.newGroup(t, "errands", user.ID)

	resp := e.post(t, "/api/add_task", map[string]any{
		"group_id": group.ID,
		"task":     map[string]any{"name": "Buy milk", "location": "ICA"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = e.post(t, "/api/get_user", map[string]string{"user_id": user.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	graph := decodeBody[store.MemberSnapshot](t, resp)

	assert.Equal(t, user.ID, graph.UserID)
	require.Len(t, graph.Groups, 1)
	require.Len(t, graph.Groups[0].Tasks, 1)
	assert.Equal(t, "Buy milk", graph.Groups[0].Tasks[0].Name)
}

func TestGetUser_WhenMissing_Returns404(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	resp := e.post(t, "/api/get_user", map[string]string{"user_id": "ghost"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddTask_PersonalTask_PublishesNothing(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)

	sub := e.bus.Subscribe(bus.TopicTaskUpdates, nil)
	defer sub.Close()

	resp := e.post(t, "/api/add_task", map[string]any{
		"user_id": user.ID,
		"task":    map[string]any{"name": "call dentist"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decodeBody[store.TaskRecord](t, resp)
	assert.Equal(t, user.ID, task.UserID)

	select {
	case payload := <-sub.Events():
		t.Fatalf("personal task must not publish updates, got %v", payload)
	case <-time.After(100 * time.Millisecond):
	}

	resp = e.post(t, "/api/get_tasks", map[string]string{"user_id": user.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decodeBody[[]store.TaskRecord](t, resp)
	require.Len(t, tasks, 1)
	assert.Equal(t, "call dentist", tasks[0].Name)
}

func TestAddTask_GroupTask_NotifiesEveryMember(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	u1 := e.newUser(t)
	u2 := e.newUser(t)
	group := e.newGroup(t, "G1", u1.ID)

	resp := e.post(t, "/api/join_group", map[string]string{
		"user_id":  u2.ID,
		"group_id": group.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	sub1 := e.bus.Subscribe(bus.TopicTaskUpdates, notify.ForRecipient(u1.ID))
	sub2 := e.bus.Subscribe(bus.TopicTaskUpdates, notify.ForRecipient(u2.ID))
	defer sub1.Close()
	defer sub2.Close()

	resp = e.post(t, "/api/add_task", map[string]any{
		"group_id": group.ID,
		"task":     map[string]any{"name": "Buy milk"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	for _, sub := range []*bus.Subscription{sub1, sub2} {
		select {
		case payload := <-sub.Events():
			ev := payload.(notify.UpdateEvent)
			require.Len(t, ev.Snapshot.Groups, 1)
			require.NotEmpty(t, ev.Snapshot.Groups[0].Tasks)
			assert.Equal(t, "Buy milk", ev.Snapshot.Groups[0].Tasks[0].Name)
		case <-time.After(2 * time.Second):
			t.Fatal("member did not receive an update")
		}
	}
}

func TestAddTask_RequiresExactlyOneOwner(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)
	group := e.newGroup(t, "G", user.ID)

	for name, body := range map[string]map[string]any{
		"both owners": {
			"user_id":  user.ID,
			"group_id": group.ID,
			"task":     map[string]any{"name": "x"},
		},
		"no owner": {
			"task": map[string]any{"name": "x"},
		},
		"missing name": {
			"user_id": user.ID,
			"task":    map[string]any{},
		},
	} {
		resp := e.post(t, "/api/add_task", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		_ = resp.Body.Close()
	}
}

func TestAddTask_UnknownGroup_Returns404(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	resp := e.post(t, "/api/add_task", map[string]any{
		"group_id": "ghost",
		"task":     map[string]any{"name": "x"},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompleteTask_MarksAndNotifies(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)
	group := e.newGroup(t, "G", user.ID)

	resp := e.post(t, "/api/add_task", map[string]any{
		"group_id": group.ID,
		"task":     map[string]any{"name": "laundry"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decodeBody[store.TaskRecord](t, resp)

	sub := e.bus.Subscribe(bus.TopicTaskUpdates, notify.ForRecipient(user.ID))
	defer sub.Close()

	resp = e.post(t, "/api/complete_task", map[string]string{"task_id": task.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[store.TaskRecord](t, resp)
	assert.True(t, completed.Completed)

	select {
	case payload := <-sub.Events():
		ev := payload.(notify.UpdateEvent)
		require.Len(t, ev.Snapshot.Groups, 1)
		require.Len(t, ev.Snapshot.Groups[0].Tasks, 1)
		assert.True(t, ev.Snapshot.Groups[0].Tasks[0].Completed)
	case <-time.After(2 * time.Second):
		t.Fatal("no update after complete_task")
	}
}

func TestDeleteTask_LastGroupTask_NotifiesWithEmptyList(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)
	group := e.newGroup(t, "G", user.ID)

	resp := e.post(t, "/api/add_task", map[string]any{
		"group_id": group.ID,
		"task":     map[string]any{"name": "only one"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decodeBody[store.TaskRecord](t, resp)

	sub := e.bus.Subscribe(bus.TopicTaskUpdates, notify.ForRecipient(user.ID))
	defer sub.Close()

	resp = e.post(t, "/api/delete_task", map[string]string{"task_id": task.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	select {
	case payload := <-sub.Events():
		ev := payload.(notify.UpdateEvent)
		require.Len(t, ev.Snapshot.Groups, 1, "emptied group must still be present")
		assert.Empty(t, ev.Snapshot.Groups[0].Tasks)
	case <-time.After(2 * time.Second):
		t.Fatal("no update after delete_task")
	}
}

func TestDeleteTask_WhenMissing_Returns404(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	resp := e.post(t, "/api/delete_task", map[string]string{"task_id": "ghost"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetGroups_ListsMemberships(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	user := e.newUser(t)
	e.newGroup(t, "alpha", user.ID)
	e.newGroup(t, "beta", user.ID)

	resp := e.post(t, "/api/get_groups", map[string]string{"user_id": user.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groups := decodeBody[[]store.GroupRecord](t, resp)
	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].Name)
	assert.Equal(t, "beta", groups[1].Name)
}

func TestJoinGroup_ReturnsHydratedGroup(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	u1 := e.newUser(t)
	u2 := e.newUser(t)
	group := e.newGroup(t, "G", u1.ID)

	resp := e.post(t, "/api/join_group", map[string]string{
		"user_id":  u2.ID,
		"group_id": group.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	graph := decodeBody[store.GroupGraph](t, resp)
	assert.Len(t, graph.Members, 2)
}

func TestSearchLocation_WhenUnconfigured_Returns503(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	resp := e.get(t, "/api/search_location?query=milk&latitude=1&longitude=2")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	resp := e.get(t, "/health")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
