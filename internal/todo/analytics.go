package todo

import (
	"maps"
	"strconv"
	"time"
)

const (
	velocityWindow = 7 * 24 * time.Hour
	staleAfter     = 14 * 24 * time.Hour
	// analyticsCost is the approximate footprint charged per cached entry.
	analyticsCost = 512
)

// AnalyticsOptions selects the optional analytics sections.
type AnalyticsOptions struct {
	IncludeVelocity bool
	IncludeHealth   bool
}

// Velocity counts recent completions.
type Velocity struct {
	WindowDays int     `json:"windowDays"`
	Completed  int     `json:"completed"`
	PerDay     float64 `json:"perDay"`
}

// Health summarizes the open work.
type Health struct {
	Open    int     `json:"open"`
	Blocked int     `json:"blocked"`
	Stale   int     `json:"stale"`
	Healthy int     `json:"healthy"`
	Score   float64 `json:"score"`
}

// Analytics is derived from current task state and never persisted.
type Analytics struct {
	Total                int              `json:"total"`
	ByStatus             map[Status]int   `json:"byStatus"`
	ByPriority           map[Priority]int `json:"byPriority"`
	Completed            int              `json:"completed"`
	CompletionPercentage float64          `json:"completionPercentage"`
	AverageProgress      float64          `json:"averageProgress"`
	Velocity             *Velocity        `json:"velocity,omitempty"`
	Health               *Health          `json:"health,omitempty"`
	GeneratedAt          string           `json:"generatedAt"`
}

func (a Analytics) clone() Analytics {
	a.ByStatus = maps.Clone(a.ByStatus)
	a.ByPriority = maps.Clone(a.ByPriority)
	if a.Velocity != nil {
		v := *a.Velocity
		a.Velocity = &v
	}
	if a.Health != nil {
		h := *a.Health
		a.Health = &h
	}
	return a
}

// GetAnalytics recomputes analytics from current state. It is read-only.
// The counts are cached per store revision; generatedAt and the
// time-dependent velocity and health sections are computed on every call.
func (m *Manager) GetAnalytics(opts AnalyticsOptions) (Analytics, error) {
	at := timeNow().UTC()
	needTasks := opts.IncludeVelocity || opts.IncludeHealth

	m.mu.Lock()
	key := strconv.FormatUint(m.revision, 10)
	counts, hit := m.cache.Get(key)
	var tasks []Task
	if !hit || needTasks {
		tasks = make([]Task, 0, len(m.data.Tasks))
		for _, t := range m.data.Tasks {
			tasks = append(tasks, t)
		}
	}
	m.mu.Unlock()

	if hit {
		counts = counts.clone()
	} else {
		counts = computeCounts(tasks)
		m.cache.Set(key, counts.clone(), analyticsCost)
		m.cache.Wait()
	}
	addTimeSections(&counts, tasks, opts, at)
	return counts, nil
}

// computeAnalytics is the pure analytics function over a task list.
func computeAnalytics(tasks []Task, opts AnalyticsOptions, at time.Time) Analytics {
	a := computeCounts(tasks)
	addTimeSections(&a, tasks, opts, at)
	return a
}

// computeCounts derives the sections that depend only on task state.
func computeCounts(tasks []Task) Analytics {
	a := Analytics{
		Total:      len(tasks),
		ByStatus:   make(map[Status]int, len(AllStatuses)),
		ByPriority: make(map[Priority]int, len(AllPriorities)),
	}
	for _, s := range AllStatuses {
		a.ByStatus[s] = 0
	}
	for _, p := range AllPriorities {
		a.ByPriority[p] = 0
	}

	var progressSum int
	for _, t := range tasks {
		a.ByStatus[t.Status]++
		a.ByPriority[t.Priority]++
		progressSum += t.ProgressPercentage
	}
	a.Completed = a.ByStatus[StatusCompleted]

	// Cancelled tasks are out of the denominator.
	if countable := a.Total - a.ByStatus[StatusCancelled]; countable > 0 {
		a.CompletionPercentage = float64(a.Completed) * 100 / float64(countable)
	}
	if a.Total > 0 {
		a.AverageProgress = float64(progressSum) / float64(a.Total)
	}
	return a
}

// addTimeSections stamps generatedAt and fills the sections that depend on
// the current time.
func addTimeSections(a *Analytics, tasks []Task, opts AnalyticsOptions, at time.Time) {
	a.GeneratedAt = at.Format(time.RFC3339Nano)

	if opts.IncludeVelocity {
		v := &Velocity{WindowDays: int(velocityWindow / (24 * time.Hour))}
		for _, t := range tasks {
			if t.Status != StatusCompleted || t.CompletedAt == "" {
				continue
			}
			if done := parseTime(t.CompletedAt); !done.IsZero() && at.Sub(done) <= velocityWindow {
				v.Completed++
			}
		}
		v.PerDay = float64(v.Completed) / float64(v.WindowDays)
		a.Velocity = v
	}

	if opts.IncludeHealth {
		h := &Health{}
		for _, t := range tasks {
			switch t.Status {
			case StatusCompleted, StatusCancelled:
				continue
			case StatusBlocked:
				h.Open++
				h.Blocked++
				continue
			}
			h.Open++
			if updated := parseTime(t.UpdatedAt); !updated.IsZero() && at.Sub(updated) > staleAfter {
				h.Stale++
				continue
			}
			h.Healthy++
		}
		h.Score = 100
		if h.Open > 0 {
			h.Score = float64(h.Healthy) * 100 / float64(h.Open)
		}
		a.Health = h
	}
}
