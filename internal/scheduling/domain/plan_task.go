package domain

import "time"

// PlanTaskKind classifies the kind of work a PlanTask represents, driving
// feature extraction and default windows.
type PlanTaskKind string

const (
	KindStudy      PlanTaskKind = "study"
	KindAssignment PlanTaskKind = "assignment"
	KindExam       PlanTaskKind = "exam"
	KindReading    PlanTaskKind = "reading"
	KindProject    PlanTaskKind = "project"
	KindHobby      PlanTaskKind = "hobby"
	KindAdmin      PlanTaskKind = "admin"
)

// PlanTask is the planning-time view of a unit of work: everything the
// scheduler needs to place it, independent of how it is stored or edited.
// It is built from a productivity task (and its scheduling metadata) before
// a solve and is not itself persisted.
type PlanTask struct {
	ID                string
	UserID            string
	Title             string
	Kind              PlanTaskKind
	EstimatedMinutes  int
	MinBlockMinutes   int
	MaxBlockMinutes   int
	Deadline          *time.Time
	EarliestStart     *time.Time
	Weight            float64
	Prerequisites     []string
	PreferredWindows  []WeeklyWindow
	AvoidWindows      []WeeklyWindow
	CourseID          string
	Tags              []string
}

// Normalize clamps block sizes into a sane relationship:
// min <= max <= estimated, with both positive.
func (t *PlanTask) Normalize(defaultGranularity int) {
	if t.EstimatedMinutes <= 0 {
		t.EstimatedMinutes = defaultGranularity
	}
	if t.MinBlockMinutes <= 0 {
		t.MinBlockMinutes = defaultGranularity
	}
	if t.MaxBlockMinutes <= 0 || t.MaxBlockMinutes > t.EstimatedMinutes {
		t.MaxBlockMinutes = t.EstimatedMinutes
	}
	if t.MinBlockMinutes > t.MaxBlockMinutes {
		t.MinBlockMinutes = t.MaxBlockMinutes
	}
	if t.Weight <= 0 {
		t.Weight = 1.0
	}
}

// UrgencyScore returns clip((14 - days-until-deadline)/14, 0, 1); 0 with no deadline.
func (t *PlanTask) UrgencyScore(now time.Time) float64 {
	if t.Deadline == nil {
		return 0
	}
	days := t.Deadline.Sub(now).Hours() / 24
	score := (14 - days) / 14
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
