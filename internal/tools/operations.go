// ABOUTME: The three field-service tools: tasks for a day, locations, and task status
// ABOUTME: Each call authenticates, checks permissions, makes one data call, then renders

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/fieldtask-mcp/internal/auth"
	"github.com/2389/fieldtask-mcp/internal/config"
	"github.com/2389/fieldtask-mcp/internal/fieldops"
	"github.com/2389/fieldtask-mcp/internal/render"
)

// DateLayout is the YYYY-MM-DD form used for task dates.
const DateLayout = "2006-01-02"

// Authenticator resolves credentials into a user context. *auth.Authenticator
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, creds config.Credentials) (*auth.UserContext, error)
}

// FieldService fetches tasks and locations. *fieldops.Client satisfies it.
type FieldService interface {
	Tasks(ctx context.Context, q fieldops.TaskQuery) ([]fieldops.Task, error)
	Locations(ctx context.Context, q fieldops.LocationQuery) ([]fieldops.Location, error)
}

// Deps are the collaborators shared by every tool.
type Deps struct {
	Auth        Authenticator
	Field       FieldService
	Credentials config.Credentials
	// Now defaults to time.Now; "today" is its local date.
	Now    func() time.Time
	Logger *slog.Logger
}

type operation struct {
	deps Deps
}

func newOperation(deps Deps) (*operation, error) {
	if deps.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if deps.Field == nil {
		return nil, errors.New("field service is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &operation{deps: deps}, nil
}

func (o *operation) today() string {
	return o.deps.Now().Format(DateLayout)
}

// authorize authenticates afresh and checks that any one of required is held.
// The returned context carries the user for the data call.
func (o *operation) authorize(ctx context.Context, required ...string) (context.Context, *auth.UserContext, error) {
	uc, err := o.deps.Auth.Authenticate(ctx, o.deps.Credentials)
	if err != nil {
		return ctx, nil, err
	}
	if err := auth.RequireAny(uc, required...); err != nil {
		o.deps.Logger.Warn("permission denied",
			"user_id", uc.UserID,
			"required", required,
			"granted", uc.Permissions.Names(),
		)
		return ctx, nil, err
	}
	return auth.WithUser(ctx, uc), uc, nil
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &fieldops.ValidationError{Field: "arguments", Reason: err.Error()}
	}
	return nil
}

// NewDefaultRegistry registers get_tasks_today, get_locations and
// get_task_status, in that order.
func NewDefaultRegistry(deps Deps) (*Registry, error) {
	op, err := newOperation(deps)
	if err != nil {
		return nil, err
	}

	r := NewRegistry(op.deps.Logger)
	for _, t := range []Tool{
		&TasksTodayTool{op: op},
		&LocationsTool{op: op},
		&TaskStatusTool{op: op},
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TasksTodayArgs are the arguments of get_tasks_today.
type TasksTodayArgs struct {
	Date       string `json:"date,omitempty" jsonschema:"description=Date in YYYY-MM-DD form; defaults to today,pattern=^[0-9]{4}-[0-9]{2}-[0-9]{2}$"`
	LocationID string `json:"locationId,omitempty" jsonschema:"description=Only tasks at this location"`
	Status     string `json:"status,omitempty" jsonschema:"description=Only tasks with this status,enum=pending,enum=in_progress,enum=completed"`
}

// TasksTodayTool lists the tasks for a day, pending work first.
type TasksTodayTool struct {
	op *operation
}

func (t *TasksTodayTool) Name() string { return "get_tasks_today" }

func (t *TasksTodayTool) Description() string {
	return "List field tasks for a day (default today), pending tasks first, then completed ones."
}

func (t *TasksTodayTool) InputSchema() (json.RawMessage, error) {
	return GenerateSchema(&TasksTodayArgs{})
}

func (t *TasksTodayTool) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args TasksTodayArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Date == "" {
		args.Date = t.op.today()
	} else if _, err := time.Parse(DateLayout, args.Date); err != nil {
		return "", &fieldops.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a calendar date", args.Date)}
	}

	ctx, uc, err := t.op.authorize(ctx, auth.PermViewAssignedTasks, auth.PermViewAllTasks)
	if err != nil {
		return "", err
	}

	tasks, err := t.op.deps.Field.Tasks(ctx, fieldops.TaskQuery{
		UserID:     uc.UserID,
		OrgID:      uc.OrgID,
		Date:       args.Date,
		LocationID: args.LocationID,
		Status:     args.Status,
	})
	if err != nil {
		return "", err
	}

	return render.TasksToday(args.Date, args.LocationID != "", tasks), nil
}

// LocationsArgs are the arguments of get_locations.
type LocationsArgs struct {
	ParentID string `json:"parentId,omitempty" jsonschema:"description=Only children of this location"`
}

// LocationsTool lists the organization's locations grouped by level.
type LocationsTool struct {
	op *operation
}

func (t *LocationsTool) Name() string { return "get_locations" }

func (t *LocationsTool) Description() string {
	return "List the organization's locations grouped by hierarchy level."
}

func (t *LocationsTool) InputSchema() (json.RawMessage, error) {
	return GenerateSchema(&LocationsArgs{})
}

func (t *LocationsTool) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args LocationsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}

	ctx, uc, err := t.op.authorize(ctx, auth.PermViewAllLocations, auth.PermManageLocations)
	if err != nil {
		return "", err
	}

	locs, err := t.op.deps.Field.Locations(ctx, fieldops.LocationQuery{
		UserID:   uc.UserID,
		OrgID:    uc.OrgID,
		ParentID: args.ParentID,
	})
	if err != nil {
		return "", err
	}

	return render.Locations(locs), nil
}

// TaskStatusArgs are the arguments of get_task_status.
type TaskStatusArgs struct {
	// TaskID is accepted for compatibility with existing hosts but not applied.
	TaskID string `json:"taskId,omitempty" jsonschema:"description=Task identifier (currently not used for filtering)"`
	Status string `json:"status,omitempty" jsonschema:"description=Only tasks with this status,enum=pending,enum=in_progress,enum=completed"`
}

// TaskStatusTool reports the status of today's tasks.
type TaskStatusTool struct {
	op *operation
}

func (t *TaskStatusTool) Name() string { return "get_task_status" }

func (t *TaskStatusTool) Description() string {
	return "Show the status of today's tasks, optionally only those with a given status."
}

func (t *TaskStatusTool) InputSchema() (json.RawMessage, error) {
	return GenerateSchema(&TaskStatusArgs{})
}

func (t *TaskStatusTool) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args TaskStatusArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}

	ctx, uc, err := t.op.authorize(ctx, auth.PermViewAssignedTasks, auth.PermViewAllTasks)
	if err != nil {
		return "", err
	}

	date := t.op.today()
	tasks, err := t.op.deps.Field.Tasks(ctx, fieldops.TaskQuery{
		UserID: uc.UserID,
		OrgID:  uc.OrgID,
		Date:   date,
	})
	if err != nil {
		return "", err
	}

	if args.TaskID != "" {
		t.op.deps.Logger.Debug("taskId argument ignored", "task_id", args.TaskID)
	}

	return render.TaskStatus(date, args.Status, FilterByStatus(tasks, fieldops.TaskStatus(args.Status))), nil
}

// FilterByStatus keeps tasks whose status equals status. An empty status keeps all.
func FilterByStatus(tasks []fieldops.Task, status fieldops.TaskStatus) []fieldops.Task {
	if status == "" {
		return tasks
	}
	out := make([]fieldops.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}
