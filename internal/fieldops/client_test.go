// ABOUTME: Tests for typed field-service calls over a real rpc.Client and httptest backend
// ABOUTME: Covers payload shape, record decoding and the completion outcome

package fieldops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/fieldtask-mcp/internal/rpc"
)

var testProcs = Procedures{Tasks: "getTasks", Locations: "getLocations", CompleteTask: "completeTask"}

type backend struct {
	t        *testing.T
	bodies   map[string]string
	statuses map[string]int
	received map[string]map[string]any
	headers  map[string]http.Header
}

func newBackend(t *testing.T) (*backend, *Client) {
	t.Helper()
	b := &backend{
		t:        t,
		bodies:   map[string]string{},
		statuses: map[string]int{},
		received: map[string]map[string]any{},
		headers:  map[string]http.Header{},
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rc, err := rpc.NewClient(rpc.Config{BaseURL: srv.URL, Logger: logger})
	require.NoError(t, err)
	return b, NewClient(rc, testProcs, logger)
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	proc := r.URL.Path[1:]
	var env map[string]any
	assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&env))
	data, _ := env["data"].(map[string]any)
	b.received[proc] = data
	b.headers[proc] = r.Header.Clone()
	if code, ok := b.statuses[proc]; ok {
		w.WriteHeader(code)
	}
	_, _ = io.WriteString(w, b.bodies[proc])
}

func TestTasks_PayloadAndDecoding(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getTasks"] = `{"result":{"success":true,"tasks":[
		{"id":"t1","title":"Fix pump","status":"pending","locationPath":["Site A","Pump House"],"assignedTo":"Dana","instructions":"Bring gaskets"},
		{"id":"t2","title":"Inspect valve","status":"completed","locationPath":["Site A"],"assignedTo":{"displayName":"Lee"}}
	]}}`

	tasks, err := c.Tasks(context.Background(), TaskQuery{UserID: "fb-1", OrgID: "org-1", Date: "2026-10-19"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"userId": "fb-1", "orgId": "org-1", "date": "2026-10-19"}, b.received["getTasks"])

	require.Len(t, tasks, 2)
	assert.Equal(t, Task{
		ID: "t1", Title: "Fix pump", Status: StatusPending,
		Instructions: "Bring gaskets", AssignedTo: "Dana",
		LocationPath: []string{"Site A", "Pump House"},
	}, tasks[0])
	assert.Equal(t, "Lee", tasks[1].AssignedTo)
	assert.Equal(t, StatusCompleted, tasks[1].Status)
}

func TestTasks_OptionalFiltersPassedThrough(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getTasks"] = `{"success":true,"tasks":[]}`

	_, err := c.Tasks(context.Background(), TaskQuery{UserID: "u", OrgID: "o", Date: "2026-01-02", LocationID: "loc-7", Status: "pending"})
	require.NoError(t, err)

	assert.Equal(t, "loc-7", b.received["getTasks"]["locationId"])
	assert.Equal(t, "pending", b.received["getTasks"]["status"])
}

func TestTasks_UnknownStatusSurvivesVerbatim(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getTasks"] = `{"success":true,"tasks":[{"id":"t9","title":"Odd","status":"on_hold"}]}`

	tasks, err := c.Tasks(context.Background(), TaskQuery{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskStatus("on_hold"), tasks[0].Status)
	assert.False(t, tasks[0].Status.Known())
	assert.Equal(t, []string{}, tasks[0].LocationPath)
}

func TestTasks_MalformedRecords(t *testing.T) {
	cases := map[string]string{
		"missing tasks array": `{"success":true}`,
		"missing id":          `{"success":true,"tasks":[{"title":"x","status":"pending"}]}`,
		"missing title":       `{"success":true,"tasks":[{"id":"t1","status":"pending"}]}`,
		"missing status":      `{"success":true,"tasks":[{"id":"t1","title":"x"}]}`,
		"wrong type":          `{"success":true,"tasks":[{"id":5,"title":"x","status":"pending"}]}`,
		"not an object":       `"nope"`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			b, c := newBackend(t)
			b.bodies["getTasks"] = body

			_, err := c.Tasks(context.Background(), TaskQuery{})
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		})
	}
}

func TestTasks_UnsuccessfulResult(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getTasks"] = `{"success":false,"message":"org disabled"}`

	_, err := c.Tasks(context.Background(), TaskQuery{})
	var rce *rpc.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "org disabled", rce.Body)
	assert.NotContains(t, err.Error(), "org disabled")
}

func TestTasks_RemoteError(t *testing.T) {
	b, c := newBackend(t)
	b.statuses["getTasks"] = http.StatusInternalServerError
	b.bodies["getTasks"] = "stack trace"

	_, err := c.Tasks(context.Background(), TaskQuery{})
	var rce *rpc.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, http.StatusInternalServerError, rce.StatusCode)
}

func TestLocations_PayloadAndDecoding(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getLocations"] = `{"result":{"success":true,"locations":[
		{"id":"l1","name":"Site A","level":"site","path":["Site A"]},
		{"id":"l2","name":"Pump House","level":"building","path":["Site A","Pump House"]},
		{"id":"l3","name":"Yard","level":"zone"}
	]}}`

	locs, err := c.Locations(context.Background(), LocationQuery{UserID: "u", OrgID: "o", ParentID: "l0"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"userId": "u", "orgId": "o", "parentId": "l0"}, b.received["getLocations"])
	require.Len(t, locs, 3)
	assert.Equal(t, Location{ID: "l2", Name: "Pump House", Level: "building", Path: []string{"Site A", "Pump House"}}, locs[1])
	assert.Equal(t, []string{"Yard"}, locs[2].Path)
}

func TestLocations_ParentOmittedWhenEmpty(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getLocations"] = `{"success":true,"locations":[]}`

	_, err := c.Locations(context.Background(), LocationQuery{UserID: "u", OrgID: "o"})
	require.NoError(t, err)
	_, present := b.received["getLocations"]["parentId"]
	assert.False(t, present)
}

func TestLocations_MissingLevel(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["getLocations"] = `{"success":true,"locations":[{"id":"l1","name":"Site A"}]}`

	_, err := c.Locations(context.Background(), LocationQuery{})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "locations[0].level", ve.Field)
}

func TestCompleteTask_Success(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["completeTask"] = `{"data":{"taskId":"t1","status":"completed"}}`

	out, err := c.CompleteTask(context.Background(), CompletionRequest{
		TaskID: "t1", CompletionNotes: "replaced seal", UserID: "fb-1", AccessToken: "access-abc",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.JSONEq(t, `{"taskId":"t1","status":"completed"}`, string(out.Data))
	assert.Equal(t, map[string]any{"taskId": "t1", "completionNotes": "replaced seal", "userId": "fb-1"}, b.received["completeTask"])
	assert.Equal(t, "Bearer access-abc", b.headers["completeTask"].Get("Authorization"))
}

func TestCompleteTask_FailureBecomesOutcome(t *testing.T) {
	b, c := newBackend(t)
	b.statuses["completeTask"] = http.StatusConflict
	b.bodies["completeTask"] = "already completed"

	out, err := c.CompleteTask(context.Background(), CompletionRequest{TaskID: "t1", UserID: "fb-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "409")
}

func TestCompleteTask_MissingTaskID(t *testing.T) {
	b, c := newBackend(t)

	_, err := c.CompleteTask(context.Background(), CompletionRequest{UserID: "fb-1"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "taskId", ve.Field)
	assert.Empty(t, b.received, "no call made without a task id")
}
