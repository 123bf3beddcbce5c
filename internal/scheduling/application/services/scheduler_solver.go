package services

import (
	"context"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// SolverConfig tunes the constraint search.
type SolverConfig struct {
	TimeLimit            time.Duration // default 10s
	NumSearchWorkers     int           // default 4, capped at 16
	Seed                 int64
}

// DefaultSolverConfig returns the spec's default solver knobs.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{TimeLimit: 10 * time.Second, NumSearchWorkers: 4, Seed: 1}
}

// SchedulerSolver places tasks into free slots of a TimeIndex subject to the
// hard constraints in the design: no overlap, duration bounds, deadline,
// prerequisite order, daily cap, and hard/no-study windows. It performs a
// deterministic, time-bounded greedy search standing in for an
// integer-program solver: tasks are taken in StableSortTasks order and each
// block goes to the earliest feasible run of free slots. Placements are not
// revisited, and utility is recorded on each block and summed into the
// objective but does not choose the slot. No constraint-solver library
// exists anywhere in the reference corpus, so this is hand-written search
// (see DESIGN.md).
type SchedulerSolver struct {
	config SolverConfig
	det    *DeterministicLayer
}

// NewSchedulerSolver creates a SchedulerSolver.
func NewSchedulerSolver(config SolverConfig, det *DeterministicLayer) *SchedulerSolver {
	if config.NumSearchWorkers <= 0 {
		config.NumSearchWorkers = 4
	}
	if config.NumSearchWorkers > 16 {
		config.NumSearchWorkers = 16
	}
	if config.TimeLimit <= 0 {
		config.TimeLimit = 10 * time.Second
	}
	return &SchedulerSolver{config: config, det: det}
}

// SolveInput bundles everything the solver needs for one request.
type SolveInput struct {
	Tasks        []domain.PlanTask
	Events       []domain.BusyEvent
	Preferences  domain.Preferences
	Granularity  time.Duration
	TimeIndex    *domain.TimeIndex
	Utility      map[string]map[int]float64 // taskID -> slotIdx -> utility
	LockedBlocks []domain.PlanBlock         // pre-existing blocks the search must not move
	Prerequisites map[string][]string
	Now          time.Time
}

// Solve runs the bounded greedy search and returns a ScheduleSolution.
func (s *SchedulerSolver) Solve(ctx context.Context, in SolveInput) domain.ScheduleSolution {
	start := time.Now()
	deadline := start.Add(s.config.TimeLimit)

	sortedTasks := s.det.StableSortTasks(in.Tasks)
	granSlots := int(in.Granularity / in.TimeIndex.Granularity())
	if granSlots <= 0 {
		granSlots = 1
	}

	occupied := make(map[int]bool, len(in.TimeIndex.FilterBusySlots(in.Events)))
	for idx := range in.TimeIndex.FilterBusySlots(in.Events) {
		occupied[idx] = true
	}
	for _, lb := range in.LockedBlocks {
		startIdx := in.TimeIndex.DatetimeToIndex(lb.Start)
		endIdx := in.TimeIndex.DatetimeToIndex(lb.End.Add(-time.Nanosecond))
		for i := startIdx; i <= endIdx; i++ {
			occupied[i] = true
		}
	}

	lastEndByTask := make(map[string]time.Time)
	var blocks []domain.PlanBlock
	blocks = append(blocks, in.LockedBlocks...)
	dailyUsed := make(map[string]int)
	for _, lb := range in.LockedBlocks {
		lastEndByTask[lb.TaskID] = lb.End
		dailyUsed[dayKey(lb.Start, in.Preferences.Location())] += int(lb.End.Sub(lb.Start) / time.Minute)
	}

	var unscheduled []string
	status := domain.StatusOptimal
	objective := 0.0

	for _, task := range sortedTasks {
		if time.Now().After(deadline) {
			status = domain.StatusTimeout
			unscheduled = append(unscheduled, task.ID)
			continue
		}

		remaining := task.EstimatedMinutes
		placedAny := false

		for remaining > 0 {
			if time.Now().After(deadline) {
				status = domain.StatusTimeout
				break
			}

			blockMinutes := clampInt(remaining, task.MinBlockMinutes, task.MaxBlockMinutes)
			needSlots := roundUp(blockMinutes, int(in.TimeIndex.Granularity()/time.Minute)) / int(in.TimeIndex.Granularity()/time.Minute)

			earliestIdx := 0
			if task.EarliestStart != nil {
				earliestIdx = in.TimeIndex.DatetimeToIndex(*task.EarliestStart)
			}
			latestIdx := in.TimeIndex.Len()
			if task.Deadline != nil {
				latestIdx = in.TimeIndex.DatetimeToIndex(*task.Deadline) + 1
			}

			prereqReady := earliestIdx
			for _, p := range in.Prerequisites[task.ID] {
				if end, ok := lastEndByTask[p]; ok {
					pIdx := in.TimeIndex.DatetimeToIndex(end)
					if pIdx > prereqReady {
						prereqReady = pIdx
					}
				}
			}

			slotStart, ok := findContiguousFree(occupied, prereqReady, latestIdx, needSlots, in.TimeIndex, in.Preferences, task, dailyUsed, blockMinutes)
			if !ok {
				break
			}

			blockStart := in.TimeIndex.IndexToDatetime(slotStart)
			blockEnd := in.TimeIndex.IndexToDatetime(slotStart + needSlots)
			dailyUsed[dayKey(blockStart, in.Preferences.Location())] += blockMinutes

			utility := 0.0
			if byTask, ok := in.Utility[task.ID]; ok {
				utility = byTask[slotStart]
			}
			objective += utility

			for i := slotStart; i < slotStart+needSlots; i++ {
				occupied[i] = true
			}

			blocks = append(blocks, domain.PlanBlock{
				TaskID:       task.ID,
				Title:        task.Title,
				Start:        blockStart,
				End:          blockEnd,
				UtilityScore: utility,
				CourseID:     task.CourseID,
			})
			lastEndByTask[task.ID] = blockEnd

			remaining -= blockMinutes
			placedAny = true
		}

		if remaining > 0 {
			unscheduled = append(unscheduled, task.ID)
			if placedAny {
				status = domain.StatusFeasible
			}
		}
	}

	if len(unscheduled) > 0 && status == domain.StatusOptimal {
		status = domain.StatusFeasible
	}
	if len(unscheduled) == len(sortedTasks) && len(sortedTasks) > 0 {
		status = domain.StatusInfeasible
	}

	return domain.ScheduleSolution{
		Feasible:         status != domain.StatusInfeasible && status != domain.StatusError,
		Blocks:           blocks,
		SolverStatus:     status,
		SolveTimeMs:      time.Since(start).Milliseconds(),
		ObjectiveValue:   objective,
		UnscheduledTasks: unscheduled,
		Diagnostics:      map[string]any{"searched_tasks": len(sortedTasks)},
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// findContiguousFree finds the earliest run of needSlots free, in-window
// slots within [fromIdx, toIdx), tie-broken toward the earliest start. A
// candidate run is rejected if placing blockMinutes on its day would push
// that day's total assigned effort past prefs.MaxDailyEffortMinutes; the
// search then keeps scanning rather than settling for a cap violation.
func findContiguousFree(
	occupied map[int]bool,
	fromIdx, toIdx, needSlots int,
	ti *domain.TimeIndex,
	prefs domain.Preferences,
	task domain.PlanTask,
	dailyUsed map[string]int,
	blockMinutes int,
) (int, bool) {
	if fromIdx < 0 {
		fromIdx = 0
	}
	if toIdx > ti.Len() {
		toIdx = ti.Len()
	}
	run := 0
	for i := fromIdx; i < toIdx; i++ {
		ctx := ti.GetSlotContext(i, prefs)
		ok := !occupied[i] && ctx.InWorkday
		if ok && !prefs.SoftNoStudyWindows && prefs.InNoStudyWindow(ctx.Start) {
			ok = false
		}
		if ok && inAnyWindow(task.AvoidWindows, ctx.Start) {
			ok = false
		}
		if ok {
			run++
			if run >= needSlots {
				start := i - needSlots + 1
				if withinDailyCap(dailyUsed, dayKey(ti.IndexToDatetime(start), prefs.Location()), blockMinutes, prefs.MaxDailyEffortMinutes) {
					return start, true
				}
				run = 0
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// withinDailyCap reports whether adding minutes to day's running total stays
// at or under the cap. A non-positive cap means no limit is configured.
func withinDailyCap(dailyUsed map[string]int, day string, minutes, cap int) bool {
	if cap <= 0 {
		return true
	}
	return dailyUsed[day]+minutes <= cap
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
