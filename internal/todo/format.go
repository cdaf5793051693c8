package todo

import (
	"fmt"
	"strings"
)

// FormatCreated renders the create_task response.
func FormatCreated(t Task) string {
	var sb strings.Builder
	sb.WriteString("# ✅ Task Created\n\n")
	writeTaskDetails(&sb, t)
	return sb.String()
}

// FormatUpdated renders the update_task response.
func FormatUpdated(res UpdateResult) string {
	var sb strings.Builder
	sb.WriteString("# ✅ Task updated successfully\n\n")
	writeTaskDetails(&sb, res.Task)
	fmt.Fprintf(&sb, "- **Reason**: %s\n", res.Reason)
	if len(res.Changes) > 0 {
		sb.WriteString("\n## Changes\n\n")
		for _, c := range res.Changes {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	return sb.String()
}

// FormatNoteAdded renders the add_note response.
func FormatNoteAdded(t Task) string {
	var sb strings.Builder
	sb.WriteString("# 📝 Note Added\n\n")
	writeTaskDetails(&sb, t)
	fmt.Fprintf(&sb, "- **Notes**: %d\n", len(t.Notes))
	return sb.String()
}

// FormatBulk renders the bulk_update response.
func FormatBulk(res BulkResult) string {
	var sb strings.Builder
	sb.WriteString("# ✅ Bulk Update Completed\n\n")
	fmt.Fprintf(&sb, "- **Updates Applied**: %d\n", res.Applied)
	fmt.Fprintf(&sb, "- **Tasks Modified**: %d\n", len(res.Tasks))
	fmt.Fprintf(&sb, "- **Reason**: %s\n\n", res.Reason)
	for _, t := range res.Tasks {
		fmt.Fprintf(&sb, "- %s **%s** [%s] Progress: %d%%\n", statusIcon(t.Status), t.Title, t.Status, t.ProgressPercentage)
	}
	return sb.String()
}

// FormatTaskList renders the get_tasks response.
func FormatTaskList(tasks []Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 📋 Tasks (%d tasks)\n\n", len(tasks))
	if len(tasks) == 0 {
		sb.WriteString("_No tasks match the given filters._\n")
		return sb.String()
	}
	for _, t := range tasks {
		fmt.Fprintf(&sb, "## %s %s\n\n", statusIcon(t.Status), t.Title)
		fmt.Fprintf(&sb, "- ID: `%s`\n", t.ID)
		fmt.Fprintf(&sb, "- Status: %s | Priority: %s | Progress: %d%%\n", t.Status, t.Priority, t.ProgressPercentage)
		if t.Category != "" {
			fmt.Fprintf(&sb, "- Category: %s\n", t.Category)
		}
		if len(t.Tags) > 0 {
			fmt.Fprintf(&sb, "- Tags: %s\n", strings.Join(t.Tags, ", "))
		}
		if t.Description != "" {
			fmt.Fprintf(&sb, "- Description: %s\n", t.Description)
		}
		if n := len(t.Notes); n > 0 {
			fmt.Fprintf(&sb, "- Latest note: %s\n", t.Notes[n-1].Text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatAnalytics renders the get_analytics response.
func FormatAnalytics(a Analytics) string {
	var sb strings.Builder
	sb.WriteString("# 📊 Task Analytics\n\n")
	fmt.Fprintf(&sb, "- **Total Tasks**: %d\n", a.Total)
	fmt.Fprintf(&sb, "- **Completed**: %d\n", a.Completed)
	fmt.Fprintf(&sb, "- **Completion**: %.1f%%\n", a.CompletionPercentage)
	fmt.Fprintf(&sb, "- **Average Progress**: %.1f%%\n", a.AverageProgress)

	sb.WriteString("\n## By Status\n\n")
	for _, s := range AllStatuses {
		fmt.Fprintf(&sb, "- %s %s: %d\n", statusIcon(s), s, a.ByStatus[s])
	}
	sb.WriteString("\n## By Priority\n\n")
	for _, p := range AllPriorities {
		fmt.Fprintf(&sb, "- %s: %d\n", p, a.ByPriority[p])
	}

	if v := a.Velocity; v != nil {
		sb.WriteString("\n## Velocity\n\n")
		fmt.Fprintf(&sb, "- **Completed (last %d days)**: %d\n", v.WindowDays, v.Completed)
		fmt.Fprintf(&sb, "- **Per Day**: %.2f\n", v.PerDay)
	}
	if h := a.Health; h != nil {
		sb.WriteString("\n## Health\n\n")
		fmt.Fprintf(&sb, "- **Open**: %d (blocked %d, stale %d)\n", h.Open, h.Blocked, h.Stale)
		fmt.Fprintf(&sb, "- **Health Score**: %.1f%%\n", h.Score)
	}
	return sb.String()
}

func writeTaskDetails(sb *strings.Builder, t Task) {
	fmt.Fprintf(sb, "- **ID**: `%s`\n", t.ID)
	fmt.Fprintf(sb, "- **Title**: %s\n", t.Title)
	fmt.Fprintf(sb, "- **Status**: %s %s\n", statusIcon(t.Status), t.Status)
	fmt.Fprintf(sb, "- **Priority**: %s\n", t.Priority)
	fmt.Fprintf(sb, "- **Progress**: %d%%\n", t.ProgressPercentage)
	if t.Category != "" {
		fmt.Fprintf(sb, "- **Category**: %s\n", t.Category)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(sb, "- **Tags**: %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(sb, "- **Version**: %d\n", t.Version)
}

func statusIcon(s Status) string {
	switch s {
	case StatusInProgress:
		return "🔄"
	case StatusCompleted:
		return "✅"
	case StatusBlocked:
		return "⛔"
	case StatusCancelled:
		return "🚫"
	default:
		return "⏳"
	}
}
