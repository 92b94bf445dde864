// ABOUTME: Typed calls to the tasks, locations and task-completion procedures
// ABOUTME: Completion failures are converted to an outcome value instead of an error

package fieldops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/fieldtask-mcp/internal/auth"
	"github.com/2389/fieldtask-mcp/internal/rpc"
)

// Procedures names the backend procedures this client calls.
type Procedures struct {
	Tasks        string
	Locations    string
	CompleteTask string
}

// Client wraps the remote procedure client with typed requests and responses.
type Client struct {
	invoker rpc.Invoker
	procs   Procedures
	logger  *slog.Logger
}

// NewClient creates a field-service client.
func NewClient(invoker rpc.Invoker, procs Procedures, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{invoker: invoker, procs: procs, logger: logger}
}

// TaskQuery filters the tasks procedure. Empty optional fields are omitted
// from the payload, which the backend treats as "no filter".
type TaskQuery struct {
	UserID     string `json:"userId"`
	OrgID      string `json:"orgId"`
	Date       string `json:"date"`
	LocationID string `json:"locationId,omitempty"`
	Status     string `json:"status,omitempty"`
}

// LocationQuery filters the locations procedure.
type LocationQuery struct {
	UserID   string `json:"userId"`
	OrgID    string `json:"orgId"`
	ParentID string `json:"parentId,omitempty"`
}

type listEnvelope struct {
	Success   *bool             `json:"success"`
	Message   string            `json:"message"`
	Tasks     []json.RawMessage `json:"tasks"`
	Locations []json.RawMessage `json:"locations"`
}

func (c *Client) decodeList(procedure string, raw json.RawMessage) (listEnvelope, error) {
	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, &ValidationError{Field: procedure + " response", Reason: "not a JSON object"}
	}
	if env.Success != nil && !*env.Success {
		c.logger.Error("backend reported failure", "procedure", procedure, "message", env.Message)
		return env, &rpc.RemoteCallError{
			Procedure:  procedure,
			StatusCode: 200,
			Body:       env.Message,
			Reason:     "backend reported an unsuccessful result",
		}
	}
	return env, nil
}

// Tasks fetches the tasks matching q.
func (c *Client) Tasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	raw, err := c.invoker.Invoke(ctx, c.procs.Tasks, q)
	if err != nil {
		return nil, err
	}

	env, err := c.decodeList(c.procs.Tasks, raw)
	if err != nil {
		return nil, err
	}
	if env.Tasks == nil {
		return nil, &ValidationError{Field: "tasks", Reason: "missing from response"}
	}

	tasks := make([]Task, 0, len(env.Tasks))
	for i, item := range env.Tasks {
		var w wireTask
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("tasks[%d]", i), Reason: err.Error()}
		}
		task, err := w.toTask(i)
		if err != nil {
			return nil, err
		}
		if !task.Status.Known() {
			attrs := []any{"task_id", task.ID, "status", string(task.Status)}
			if uc := auth.FromContext(ctx); uc != nil {
				attrs = append(attrs, "user_id", uc.UserID, "org_id", uc.OrgID)
			}
			c.logger.Warn("task has unrecognized status", attrs...)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Locations fetches the locations matching q.
func (c *Client) Locations(ctx context.Context, q LocationQuery) ([]Location, error) {
	raw, err := c.invoker.Invoke(ctx, c.procs.Locations, q)
	if err != nil {
		return nil, err
	}

	env, err := c.decodeList(c.procs.Locations, raw)
	if err != nil {
		return nil, err
	}
	if env.Locations == nil {
		return nil, &ValidationError{Field: "locations", Reason: "missing from response"}
	}

	locs := make([]Location, 0, len(env.Locations))
	for i, item := range env.Locations {
		var w wireLocation
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("locations[%d]", i), Reason: err.Error()}
		}
		loc, err := w.toLocation(i)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// CompletionRequest marks one task complete. AccessToken is the short-lived
// token from authentication; it is sent as a bearer credential, not in the body.
type CompletionRequest struct {
	TaskID          string `json:"taskId"`
	CompletionNotes string `json:"completionNotes,omitempty"`
	UserID          string `json:"userId"`
	AccessToken     string `json:"-"`
}

// CompletionOutcome is the result of a completion call.
type CompletionOutcome struct {
	Success bool
	Message string
	Data    json.RawMessage
}

// CompleteTask calls the completion procedure. A missing task id is a
// *ValidationError; every other failure is reported as an unsuccessful outcome.
func (c *Client) CompleteTask(ctx context.Context, req CompletionRequest) (CompletionOutcome, error) {
	if req.TaskID == "" {
		return CompletionOutcome{}, &ValidationError{Field: "taskId", Reason: "required"}
	}

	var opts []rpc.CallOption
	if req.AccessToken != "" {
		opts = append(opts, rpc.WithBearer(req.AccessToken))
	}

	raw, err := c.invoker.Invoke(ctx, c.procs.CompleteTask, req, opts...)
	if err != nil {
		c.logger.Warn("task completion failed", "task_id", req.TaskID, "error", err)
		msg := "failed to complete task"
		var rce *rpc.RemoteCallError
		if errors.As(err, &rce) {
			msg = fmt.Sprintf("failed to complete task: backend returned status %d", rce.StatusCode)
		}
		return CompletionOutcome{Success: false, Message: msg}, nil
	}

	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Data == nil {
		body.Data = raw
	}

	return CompletionOutcome{
		Success: true,
		Message: fmt.Sprintf("task %s completed", req.TaskID),
		Data:    body.Data,
	}, nil
}
