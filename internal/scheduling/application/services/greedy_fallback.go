package services

import (
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// GreedyFallback is a deterministic greedy filler used when the solver is
// unavailable or returns infeasible with no usable incumbent. Grounded on
// the single-day SchedulerEngine's sortTasks/chooseBestSlot/findClosestSlot,
// generalized here to operate over a multi-day TimeIndex and multi-block
// tasks instead of one slot per task on a single day.
type GreedyFallback struct {
	det *DeterministicLayer
}

// NewGreedyFallback creates a GreedyFallback.
func NewGreedyFallback(det *DeterministicLayer) *GreedyFallback {
	return &GreedyFallback{det: det}
}

// Run places tasks into the free ranges of the TimeIndex, earliest-fit,
// honoring locked blocks as pre-occupied. The status is StatusFallbackError
// when tasks were given but no block results, otherwise StatusFallback.
func (g *GreedyFallback) Run(in SolveInput) domain.ScheduleSolution {
	start := time.Now()
	sortedTasks := g.det.StableSortTasks(in.Tasks)

	freeRanges := in.TimeIndex.GetFreeSlots(in.Events, in.Preferences)
	occupied := make(map[int]bool)
	for _, lb := range in.LockedBlocks {
		s := in.TimeIndex.DatetimeToIndex(lb.Start)
		e := in.TimeIndex.DatetimeToIndex(lb.End.Add(-time.Nanosecond))
		for i := s; i <= e; i++ {
			occupied[i] = true
		}
	}

	var blocks []domain.PlanBlock
	blocks = append(blocks, in.LockedBlocks...)
	var unscheduled []string

	dailyUsed := make(map[string]int)
	for _, lb := range in.LockedBlocks {
		dailyUsed[dayKey(lb.Start, in.Preferences.Location())] += int(lb.End.Sub(lb.Start) / time.Minute)
	}

	for _, task := range sortedTasks {
		remaining := task.EstimatedMinutes
		for remaining > 0 {
			blockMinutes := clampInt(remaining, task.MinBlockMinutes, task.MaxBlockMinutes)
			needSlots := roundUp(blockMinutes, int(in.TimeIndex.Granularity()/time.Minute)) / int(in.TimeIndex.Granularity()/time.Minute)

			placed := false
			for _, r := range freeRanges {
				slotIdx, ok := findFreeRun(r, occupied, needSlots)
				for ok {
					if task.Deadline != nil && in.TimeIndex.IndexToDatetime(slotIdx+needSlots).After(*task.Deadline) {
						slotIdx, ok = findFreeRun(domain.FreeRange{StartIdx: slotIdx + 1, EndIdx: r.EndIdx}, occupied, needSlots)
						continue
					}
					if task.EarliestStart != nil && in.TimeIndex.IndexToDatetime(slotIdx).Before(*task.EarliestStart) {
						slotIdx, ok = findFreeRun(domain.FreeRange{StartIdx: slotIdx + 1, EndIdx: r.EndIdx}, occupied, needSlots)
						continue
					}
					blockStart := in.TimeIndex.IndexToDatetime(slotIdx)
					if !withinDailyCap(dailyUsed, dayKey(blockStart, in.Preferences.Location()), blockMinutes, in.Preferences.MaxDailyEffortMinutes) {
						slotIdx, ok = findFreeRun(domain.FreeRange{StartIdx: slotIdx + 1, EndIdx: r.EndIdx}, occupied, needSlots)
						continue
					}
					for i := slotIdx; i < slotIdx+needSlots; i++ {
						occupied[i] = true
					}
					blockEnd := in.TimeIndex.IndexToDatetime(slotIdx + needSlots)
					blocks = append(blocks, domain.PlanBlock{
						TaskID: task.ID, Title: task.Title, Start: blockStart, End: blockEnd, CourseID: task.CourseID,
					})
					dailyUsed[dayKey(blockStart, in.Preferences.Location())] += blockMinutes
					remaining -= blockMinutes
					placed = true
					break
				}
				if placed {
					break
				}
			}
			if !placed {
				break
			}
		}
		if remaining > 0 {
			unscheduled = append(unscheduled, task.ID)
		}
	}

	status := domain.StatusFallback
	if len(blocks) == 0 && len(sortedTasks) > 0 {
		status = domain.StatusFallbackError
	}

	return domain.ScheduleSolution{
		Feasible:         status == domain.StatusFallback,
		Blocks:           blocks,
		SolverStatus:     status,
		SolveTimeMs:      time.Since(start).Milliseconds(),
		UnscheduledTasks: unscheduled,
		Diagnostics:      map[string]any{"fallback": true},
	}
}

func findFreeRun(r domain.FreeRange, occupied map[int]bool, needSlots int) (int, bool) {
	run := 0
	for i := r.StartIdx; i < r.EndIdx; i++ {
		if occupied[i] {
			run = 0
			continue
		}
		run++
		if run >= needSlots {
			return i - needSlots + 1, true
		}
	}
	return 0, false
}
