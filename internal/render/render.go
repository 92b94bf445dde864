// ABOUTME: Markdown rendering of tasks and locations for the conversational host
// ABOUTME: Pure functions from typed records to display text; no I/O

package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389/fieldtask-mcp/internal/fieldops"
)

// StatusGlyph returns the marker shown next to a task of the given status.
// Unrecognized statuses get a neutral marker; the raw value is still printed.
func StatusGlyph(s fieldops.TaskStatus) string {
	switch s {
	case fieldops.StatusCompleted:
		return "✅"
	case fieldops.StatusInProgress:
		return "🔄"
	case fieldops.StatusPending:
		return "⏳"
	default:
		return "❔"
	}
}

func titleWithLocation(t fieldops.Task) string {
	if len(t.LocationPath) == 0 {
		return t.Title
	}
	return t.Title + " — " + fieldops.PathString(t.LocationPath)
}

// TasksToday renders the get_tasks_today result. Tasks that are not completed
// are listed in full first, then completed tasks compactly.
func TasksToday(date string, locationFiltered bool, tasks []fieldops.Task) string {
	if len(tasks) == 0 {
		msg := "No tasks found for " + date
		if locationFiltered {
			msg += " at the selected location"
		}
		return msg + "."
	}

	var pending, completed []fieldops.Task
	for _, t := range tasks {
		if t.Status == fieldops.StatusCompleted {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tasks for %s\n\n", date)
	fmt.Fprintf(&b, "%d pending, %d completed.\n", len(pending), len(completed))

	if len(pending) > 0 {
		fmt.Fprintf(&b, "\n## Pending (%d)\n\n", len(pending))
		for i, t := range pending {
			fmt.Fprintf(&b, "%d. %s\n", i+1, titleWithLocation(t))
			fmt.Fprintf(&b, "   - ID: %s\n", t.ID)
			if t.Status != fieldops.StatusPending {
				fmt.Fprintf(&b, "   - Status: %s\n", t.Status)
			}
			if t.AssignedTo != "" {
				fmt.Fprintf(&b, "   - Assigned to: %s\n", t.AssignedTo)
			}
			if t.Instructions != "" {
				fmt.Fprintf(&b, "   - Instructions: %s\n", t.Instructions)
			}
		}
	}

	if len(completed) > 0 {
		fmt.Fprintf(&b, "\n## Completed (%d)\n\n", len(completed))
		for _, t := range completed {
			fmt.Fprintf(&b, "- %s\n", titleWithLocation(t))
		}
	}

	return b.String()
}

// Locations renders the get_locations result grouped by level. Groups are
// ordered by level name; locations keep the order the backend returned.
func Locations(locs []fieldops.Location) string {
	if len(locs) == 0 {
		return "No locations found."
	}

	groups := make(map[string][]fieldops.Location)
	var levels []string
	for _, l := range locs {
		if _, seen := groups[l.Level]; !seen {
			levels = append(levels, l.Level)
		}
		groups[l.Level] = append(groups[l.Level], l)
	}
	sort.Strings(levels)

	var b strings.Builder
	fmt.Fprintf(&b, "# Locations (%d)\n", len(locs))

	for _, level := range levels {
		fmt.Fprintf(&b, "\n## %s\n\n", strings.ToUpper(level))
		for _, l := range groups[level] {
			fmt.Fprintf(&b, "- %s (ID: %s)\n", l.Name, l.ID)
			if path := fieldops.PathString(l.Path); path != l.Name {
				fmt.Fprintf(&b, "  Path: %s\n", path)
			}
		}
	}

	return b.String()
}

// TaskStatus renders the get_task_status result, one line per task.
func TaskStatus(date, statusFilter string, tasks []fieldops.Task) string {
	if len(tasks) == 0 {
		msg := "No tasks found"
		if statusFilter != "" {
			msg += " with status " + statusFilter
		}
		return msg + "."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Task status for %s\n\n", date)
	if statusFilter != "" {
		fmt.Fprintf(&b, "%d tasks with status %s.\n\n", len(tasks), statusFilter)
	} else {
		fmt.Fprintf(&b, "%d tasks.\n\n", len(tasks))
	}

	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s %s · ID: %s · Status: %s", StatusGlyph(t.Status), titleWithLocation(t), t.ID, t.Status)
		if t.AssignedTo != "" {
			fmt.Fprintf(&b, " · Assigned to: %s", t.AssignedTo)
		}
		b.WriteString("\n")
	}

	return b.String()
}
