package services

import (
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// FeatureNames lists the columns produced by FeatureExtractor.Extract, in order.
var FeatureNames = []string{
	"hour_norm", "dow_norm", "is_weekend", "is_morning", "is_afternoon", "is_evening",
	"dist_from_workday_start", "dist_from_workday_end", "in_workday",
	"duration_norm", "weight_norm", "min_block_norm", "max_block_norm",
	"kind_study", "kind_assignment", "kind_exam", "kind_reading", "kind_project", "kind_hobby", "kind_admin",
	"has_deadline", "urgency", "has_prereqs", "is_exam",
	"is_blocked", "in_preferred_window", "in_avoid_window", "in_deep_work", "in_no_study",
	"hour_completion_rate", "dow_completion_rate", "kind_completion_rate", "recent_performance",
}

// HistoryStats carries the rolling completion-rate statistics used as
// history features. Unknown (zero-count) buckets default to 0.5.
type HistoryStats struct {
	ByHour      map[int]float64
	ByWeekday   map[time.Weekday]float64
	ByKind      map[domain.PlanTaskKind]float64
	Recent7Day  float64
}

func lookup(m map[int]float64, k int) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return 0.5
}

func lookupWeekday(m map[time.Weekday]float64, k time.Weekday) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return 0.5
}

func lookupKind(m map[domain.PlanTaskKind]float64, k domain.PlanTaskKind) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return 0.5
}

// FeatureExtractor builds per-(task,slot) feature vectors for the completion model.
type FeatureExtractor struct{}

// NewFeatureExtractor creates a FeatureExtractor.
func NewFeatureExtractor() *FeatureExtractor { return &FeatureExtractor{} }

// Extract returns one feature row per (task, slot) combination, in
// task-major, slot-minor order, matching FeatureNames' column layout.
func (f *FeatureExtractor) Extract(
	ti *domain.TimeIndex,
	tasks []domain.PlanTask,
	slotIdxs []int,
	events []domain.BusyEvent,
	prefs domain.Preferences,
	hist HistoryStats,
	now time.Time,
) [][]float64 {
	blocked := ti.FilterBusySlots(events)
	rows := make([][]float64, 0, len(tasks)*len(slotIdxs))

	for _, task := range tasks {
		kindVec := kindOneHot(task.Kind)
		hasDeadline := 0.0
		if task.Deadline != nil {
			hasDeadline = 1.0
		}
		urgency := task.UrgencyScore(now)
		hasPrereqs := 0.0
		if len(task.Prerequisites) > 0 {
			hasPrereqs = 1.0
		}
		isExam := 0.0
		if task.Kind == domain.KindExam {
			isExam = 1.0
		}

		for _, idx := range slotIdxs {
			ctx := ti.GetSlotContext(idx, prefs)

			distStart := minutesSinceWorkdayStart(ctx.Start, prefs)
			distEnd := minutesUntilWorkdayEnd(ctx.Start, prefs)

			row := make([]float64, 0, len(FeatureNames))
			row = append(row,
				float64(ctx.Hour)/23.0,
				float64(ctx.Weekday)/6.0,
				boolF(ctx.IsWeekend),
				boolF(ctx.PartOfDay == "morning"),
				boolF(ctx.PartOfDay == "afternoon"),
				boolF(ctx.PartOfDay == "evening"),
				distStart,
				distEnd,
				boolF(ctx.InWorkday),
				clamp01(float64(task.EstimatedMinutes)/480.0),
				clamp01(task.Weight/5.0),
				clamp01(float64(task.MinBlockMinutes)/240.0),
				clamp01(float64(task.MaxBlockMinutes)/240.0),
			)
			row = append(row, kindVec...)
			row = append(row,
				hasDeadline, urgency, hasPrereqs, isExam,
				boolF(blocked[idx]),
				boolF(inAnyWindow(task.PreferredWindows, ctx.Start)),
				boolF(inAnyWindow(task.AvoidWindows, ctx.Start)),
				boolF(prefs.InDeepWorkWindow(ctx.Start)),
				boolF(prefs.InNoStudyWindow(ctx.Start)),
				lookup(hist.ByHour, ctx.Hour),
				lookupWeekday(hist.ByWeekday, ctx.Weekday),
				lookupKind(hist.ByKind, task.Kind),
				hist.Recent7Day,
			)
			rows = append(rows, row)
		}
	}
	return rows
}

func kindOneHot(k domain.PlanTaskKind) []float64 {
	kinds := []domain.PlanTaskKind{
		domain.KindStudy, domain.KindAssignment, domain.KindExam,
		domain.KindReading, domain.KindProject, domain.KindHobby, domain.KindAdmin,
	}
	vec := make([]float64, len(kinds))
	for i, kk := range kinds {
		if kk == k {
			vec[i] = 1.0
		}
	}
	return vec
}

func inAnyWindow(windows []domain.WeeklyWindow, t time.Time) bool {
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

func boolF(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minutesSinceWorkdayStart(t time.Time, prefs domain.Preferences) float64 {
	local := t.In(prefs.Location())
	minuteOfDay := local.Hour()*60 + local.Minute()
	return clamp01(float64(minuteOfDay) / (24.0 * 60.0))
}

func minutesUntilWorkdayEnd(t time.Time, prefs domain.Preferences) float64 {
	local := t.In(prefs.Location())
	minuteOfDay := local.Hour()*60 + local.Minute()
	return clamp01(float64(24*60-minuteOfDay) / (24.0 * 60.0))
}
