package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// InvariantViolation describes a single failed check, tagged with its invariant id (I1-I9).
type InvariantViolation struct {
	Code    string
	Message string
}

// InvariantChecker validates a solved schedule against the hard correctness
// invariants (I1-I9). Any violation is fatal: the caller must not persist
// the solution.
type InvariantChecker struct{}

// NewInvariantChecker creates an InvariantChecker.
func NewInvariantChecker() *InvariantChecker { return &InvariantChecker{} }

// Check runs all invariants and returns every violation found (empty slice means valid).
func (c *InvariantChecker) Check(
	blocks []domain.PlanBlock,
	tasks []domain.PlanTask,
	unscheduled map[string]bool,
	events []domain.BusyEvent,
	prefs domain.Preferences,
	granularity time.Duration,
	prereqEdges map[string][]string, // taskID -> prerequisite taskIDs
) []InvariantViolation {
	var violations []InvariantViolation

	sorted := make([]domain.PlanBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	// I1 non-overlap
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].End.After(sorted[i].Start) {
			violations = append(violations, InvariantViolation{"I1", fmt.Sprintf("blocks for %s and %s overlap", sorted[i-1].TaskID, sorted[i].TaskID)})
		}
	}

	taskByID := make(map[string]domain.PlanTask, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	durationByTask := make(map[string]int)
	lastEndByTask := make(map[string]time.Time)
	dailyMinutes := make(map[string]int) // "taskless" per-day total, key = YYYY-MM-DD in prefs TZ

	for _, b := range sorted {
		// I2 grid alignment
		if !alignedToGrid(b.Start, granularity) || !alignedToGrid(b.End, granularity) {
			violations = append(violations, InvariantViolation{"I2", fmt.Sprintf("block for %s not grid-aligned", b.TaskID)})
		}

		task, known := taskByID[b.TaskID]
		dur := int(b.End.Sub(b.Start).Minutes())

		// I3 duration within [min,max]
		if known && (dur < task.MinBlockMinutes || dur > task.MaxBlockMinutes) {
			violations = append(violations, InvariantViolation{"I3", fmt.Sprintf("block for %s duration %dm outside [%d,%d]", b.TaskID, dur, task.MinBlockMinutes, task.MaxBlockMinutes)})
		}

		// I5 deadline
		if known && task.Deadline != nil && b.End.After(*task.Deadline) {
			violations = append(violations, InvariantViolation{"I5", fmt.Sprintf("block for %s ends after deadline", b.TaskID)})
		}

		// I6 hard busy overlap
		for _, e := range events {
			if e.Hard && b.Start.Before(e.End) && e.Start.Before(b.End) {
				violations = append(violations, InvariantViolation{"I6", fmt.Sprintf("block for %s overlaps hard event %s", b.TaskID, e.ID)})
			}
		}

		// I7 no-study windows (hard unless soft policy)
		if !prefs.SoftNoStudyWindows && prefs.InNoStudyWindow(b.Start) {
			violations = append(violations, InvariantViolation{"I7", fmt.Sprintf("block for %s starts in a no-study window", b.TaskID)})
		}

		durationByTask[b.TaskID] += dur
		lastEndByTask[b.TaskID] = b.End

		dayKey := b.Start.In(prefs.Location()).Format("2006-01-02")
		dailyMinutes[dayKey] += dur
	}

	// I4 task completeness
	for _, t := range tasks {
		if unscheduled[t.ID] {
			continue
		}
		placed := durationByTask[t.ID]
		expected := roundUp(t.EstimatedMinutes, int(granularity/time.Minute))
		if placed != expected {
			violations = append(violations, InvariantViolation{"I4", fmt.Sprintf("task %s placed %dm, expected %dm", t.ID, placed, expected)})
		}
	}

	// I8 daily cap
	for day, minutes := range dailyMinutes {
		if prefs.MaxDailyEffortMinutes > 0 && minutes > prefs.MaxDailyEffortMinutes {
			violations = append(violations, InvariantViolation{"I8", fmt.Sprintf("day %s has %dm scheduled, cap is %dm", day, minutes, prefs.MaxDailyEffortMinutes)})
		}
	}

	// I9 prerequisite ordering
	firstStartByTask := make(map[string]time.Time)
	for _, b := range sorted {
		if existing, ok := firstStartByTask[b.TaskID]; !ok || b.Start.Before(existing) {
			firstStartByTask[b.TaskID] = b.Start
		}
	}
	for taskID, prereqs := range prereqEdges {
		depStart, depKnown := firstStartByTask[taskID]
		if !depKnown {
			continue
		}
		for _, p := range prereqs {
			pEnd, ok := lastEndByTask[p]
			if !ok {
				continue
			}
			if pEnd.After(depStart) {
				violations = append(violations, InvariantViolation{"I9", fmt.Sprintf("task %s starts before prerequisite %s finishes", taskID, p)})
			}
		}
	}

	return violations
}

func alignedToGrid(t time.Time, granularity time.Duration) bool {
	return t.Truncate(granularity).Equal(t)
}

func roundUp(minutes, granularity int) int {
	if granularity <= 0 {
		return minutes
	}
	if minutes%granularity == 0 {
		return minutes
	}
	return (minutes/granularity + 1) * granularity
}
