package todo

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
)

// SortKey names a task ordering.
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortUpdatedAt SortKey = "updatedAt"
	SortPriority  SortKey = "priority"
	SortProgress  SortKey = "progress"
	SortTitle     SortKey = "title"
	SortStatus    SortKey = "status"
)

var validSortKeys = map[SortKey]bool{
	SortCreatedAt: true,
	SortUpdatedAt: true,
	SortPriority:  true,
	SortProgress:  true,
	SortTitle:     true,
	SortStatus:    true,
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter restricts the tasks returned by GetTasks. Zero values match all.
type Filter struct {
	Status   []Status
	Priority []Priority
	Category string
	Tag      string
	Search   string
	Limit    int
}

// Query is the validated payload of get_tasks.
type Query struct {
	Filter    Filter
	SortBy    SortKey
	SortOrder SortOrder
}

// ValidateQuery parses a get_tasks payload. status and priority may be a
// single string or an array of strings.
func ValidateQuery(raw map[string]any) (Query, error) {
	var vs violations
	q := Query{SortBy: SortCreatedAt, SortOrder: SortAsc}

	for _, s := range oneOrMany(raw, "status", &vs) {
		st := Status(s)
		if !st.Valid() {
			vs.add("status", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidStatus, s, statusChoices))
			continue
		}
		q.Filter.Status = append(q.Filter.Status, st)
	}
	for _, s := range oneOrMany(raw, "priority", &vs) {
		p := Priority(s)
		if !p.Valid() {
			vs.add("priority", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidPriority, s, priorityChoices))
			continue
		}
		q.Filter.Priority = append(q.Filter.Priority, p)
	}
	q.Filter.Category = strings.TrimSpace(optString(raw, "category", "category", &vs))
	q.Filter.Tag = strings.TrimSpace(optString(raw, "tag", "tag", &vs))
	q.Filter.Search = strings.TrimSpace(optString(raw, "search", "search", &vs))

	if v, ok := raw["limit"]; ok && v != nil {
		f, isNum := asNumber(v)
		switch {
		case !isNum:
			vs.add("limit", "type", fmt.Sprintf("%s: expected number, received %s", MsgInvalidInput, typeName(v)))
		case f < 0:
			vs.add("limit", "min", MsgProgressTooLow)
		case f > math.MaxInt32:
			// Larger than any store; clamp before converting.
			q.Filter.Limit = math.MaxInt32
		default:
			q.Filter.Limit = int(f)
		}
	}
	if s := optString(raw, "sortBy", "sortBy", &vs); s != "" {
		if !validSortKeys[SortKey(s)] {
			vs.add("sortBy", "enum", fmt.Sprintf("%s: unknown sort key %q", MsgInvalidInput, s))
		} else {
			q.SortBy = SortKey(s)
		}
	}
	if s := optString(raw, "sortOrder", "sortOrder", &vs); s != "" {
		if o := SortOrder(s); o != SortAsc && o != SortDesc {
			vs.add("sortOrder", "enum", fmt.Sprintf("%s: sortOrder must be asc or desc", MsgInvalidInput))
		} else {
			q.SortOrder = o
		}
	}

	if len(vs) > 0 {
		return Query{}, vs.err()
	}
	return q, nil
}

// GetTasks returns a lazy, restartable view of the tasks matching q. Each
// range over the sequence filters and sorts a fresh snapshot of the store.
func (m *Manager) GetTasks(q Query) (iter.Seq[Task], error) {
	if q.SortBy == "" {
		q.SortBy = SortCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = SortAsc
	}
	if !validSortKeys[q.SortBy] {
		return nil, violations{{Field: "sortBy", Rule: "enum", Message: fmt.Sprintf("%s: unknown sort key %q", MsgInvalidInput, q.SortBy)}}.err()
	}
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return nil, violations{{Field: "sortOrder", Rule: "enum", Message: MsgInvalidInput + ": sortOrder must be asc or desc"}}.err()
	}

	return func(yield func(Task) bool) {
		tasks := m.snapshot(q.Filter)
		sortTasks(tasks, q.SortBy, q.SortOrder)
		for i, t := range tasks {
			if q.Filter.Limit > 0 && i >= q.Filter.Limit {
				return
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// ListTasks collects GetTasks into a slice.
func (m *Manager) ListTasks(q Query) ([]Task, error) {
	seq, err := m.GetTasks(q)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// snapshot copies the tasks matching f.
func (m *Manager) snapshot(f Filter) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Task, 0, len(m.data.Tasks))
	for _, t := range m.data.Tasks {
		if f.matches(t) {
			out = append(out, t.clone())
		}
	}
	return out
}

func (f Filter) matches(t Task) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, t.Status) {
		return false
	}
	if len(f.Priority) > 0 && !slices.Contains(f.Priority, t.Priority) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, t.Category) {
		return false
	}
	if f.Tag != "" && !slices.Contains(t.Tags, f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// statusRank orders statuses by AllStatuses.
func statusRank(s Status) int {
	return slices.Index(AllStatuses, s)
}

// sortTasks orders tasks by key. The creation sequence always breaks ties
// ascending, whatever the requested order.
func sortTasks(tasks []Task, key SortKey, order SortOrder) {
	slices.SortFunc(tasks, func(a, b Task) int {
		var c int
		switch key {
		case SortUpdatedAt:
			c = parseTime(a.UpdatedAt).Compare(parseTime(b.UpdatedAt))
		case SortPriority:
			c = cmp.Compare(priorityRank[a.Priority], priorityRank[b.Priority])
		case SortProgress:
			c = cmp.Compare(a.ProgressPercentage, b.ProgressPercentage)
		case SortTitle:
			c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortStatus:
			c = cmp.Compare(statusRank(a.Status), statusRank(b.Status))
		default:
			c = parseTime(a.CreatedAt).Compare(parseTime(b.CreatedAt))
		}
		if order == SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}

func oneOrMany(raw map[string]any, key string, vs *violations) []string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return []string{s}
	}
	items, ok := v.([]any)
	if !ok {
		vs.add(key, "type", fmt.Sprintf("%s: expected string or array, received %s", MsgInvalidInput, typeName(v)))
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			vs.add(fmt.Sprintf("%s[%d]", key, i), "type", MsgInvalidInput+": expected string")
			continue
		}
		out = append(out, s)
	}
	return out
}
