// ABOUTME: Field-service records returned by the backend: tasks and locations
// ABOUTME: Missing required fields in backend records become ValidationErrors

package fieldops

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Statuses lists the known statuses in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

// Known reports whether s is one of the three defined statuses.
func (s TaskStatus) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidationError reports an absent or malformed value, either in tool
// arguments or in a record returned by the backend.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Task is a unit of field work.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       TaskStatus `json:"status"`
	Instructions string     `json:"instructions,omitempty"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	LocationPath []string   `json:"locationPath"`
}

// Location is a node in the organization's site hierarchy.
type Location struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Level string   `json:"level"`
	Path  []string `json:"path"`
}

// PathString joins a location path for display.
func PathString(path []string) string {
	return strings.Join(path, " > ")
}

// assignee accepts either a plain string or an object carrying a display name.
type assignee string

func (a *assignee) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = assignee(s)
		return nil
	}
	var obj struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("assignee must be a string or object")
	}
	switch {
	case obj.DisplayName != "":
		*a = assignee(obj.DisplayName)
	case obj.Name != "":
		*a = assignee(obj.Name)
	default:
		*a = assignee(obj.Email)
	}
	return nil
}

type wireTask struct {
	ID           *string   `json:"id"`
	Title        *string   `json:"title"`
	Status       *string   `json:"status"`
	Instructions *string   `json:"instructions"`
	AssignedTo   *assignee `json:"assignedTo"`
	LocationPath []string  `json:"locationPath"`
}

func (w wireTask) toTask(i int) (Task, error) {
	field := func(name string) string { return fmt.Sprintf("tasks[%d].%s", i, name) }

	if w.ID == nil || *w.ID == "" {
		return Task{}, &ValidationError{Field: field("id"), Reason: "missing"}
	}
	if w.Title == nil {
		return Task{}, &ValidationError{Field: field("title"), Reason: "missing"}
	}
	if w.Status == nil || *w.Status == "" {
		return Task{}, &ValidationError{Field: field("status"), Reason: "missing"}
	}

	t := Task{
		ID:           *w.ID,
		Title:        *w.Title,
		Status:       TaskStatus(*w.Status),
		LocationPath: w.LocationPath,
	}
	if w.Instructions != nil {
		t.Instructions = *w.Instructions
	}
	if w.AssignedTo != nil {
		t.AssignedTo = string(*w.AssignedTo)
	}
	if t.LocationPath == nil {
		t.LocationPath = []string{}
	}
	return t, nil
}

type wireLocation struct {
	ID    *string  `json:"id"`
	Name  *string  `json:"name"`
	Level *string  `json:"level"`
	Path  []string `json:"path"`
}

func (w wireLocation) toLocation(i int) (Location, error) {
	field := func(name string) string { return fmt.Sprintf("locations[%d].%s", i, name) }

	if w.ID == nil || *w.ID == "" {
		return Location{}, &ValidationError{Field: field("id"), Reason: "missing"}
	}
	if w.Name == nil {
		return Location{}, &ValidationError{Field: field("name"), Reason: "missing"}
	}

	if w.Level == nil || *w.Level == "" {
		return Location{}, &ValidationError{Field: field("level"), Reason: "missing"}
	}

	loc := Location{ID: *w.ID, Name: *w.Name, Level: *w.Level, Path: w.Path}
	if len(loc.Path) == 0 {
		loc.Path = []string{loc.Name}
	}
	return loc, nil
}
