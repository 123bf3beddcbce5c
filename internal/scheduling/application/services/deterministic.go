package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// DeterministicLayerConfig tunes the stability guarantees applied to every solve.
type DeterministicLayerConfig struct {
	Seed                   int64
	MaxMoveRatioThreshold  float64       // default 0.2
	FrozenWindow           time.Duration // default 12h
	MoveThreshold          time.Duration // minimum shift counted as "moved"; default 15m
	InertiaPenaltyWeight   float64       // per-slot-minute of displacement; default 5.0
}

// DefaultDeterministicLayerConfig returns the spec's default stability knobs.
func DefaultDeterministicLayerConfig(seed int64) DeterministicLayerConfig {
	return DeterministicLayerConfig{
		Seed:                  seed,
		MaxMoveRatioThreshold: 0.2,
		FrozenWindow:          12 * time.Hour,
		MoveThreshold:         15 * time.Minute,
		InertiaPenaltyWeight:  5.0,
	}
}

// DeterministicLayer provides seeded randomness, stable ordering, canonical
// request hashing, and the no-thrash stability check shared by the solver
// and the rescheduler.
type DeterministicLayer struct {
	config DeterministicLayerConfig
}

// NewDeterministicLayer creates a DeterministicLayer.
func NewDeterministicLayer(config DeterministicLayerConfig) *DeterministicLayer {
	return &DeterministicLayer{config: config}
}

// NewRNG returns a PRNG seeded solely from the configured seed: no wall-clock
// or other non-reproducible input may influence it.
func (d *DeterministicLayer) NewRNG() *rand.Rand {
	return rand.New(rand.NewSource(d.config.Seed))
}

// StableSortTasks orders by (deadline asc, nulls last, -weight, courseId, id),
// using a stable sort so ties preserve input order.
func (d *DeterministicLayer) StableSortTasks(tasks []domain.PlanTask) []domain.PlanTask {
	sorted := make([]domain.PlanTask, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Deadline == nil) != (b.Deadline == nil) {
			return a.Deadline != nil
		}
		if a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline) {
			return a.Deadline.Before(*b.Deadline)
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		return a.ID < b.ID
	})
	return sorted
}

// CreateRequestHash returns a canonical, order-independent hash of a
// scheduling request, used for idempotency deduplication.
func (d *DeterministicLayer) CreateRequestHash(tasks []domain.PlanTask, events []domain.BusyEvent, horizonDays int, userID string) string {
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	sort.Strings(taskIDs)

	eventIDs := make([]string, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}
	sort.Strings(eventIDs)

	h := sha256.New()
	fmt.Fprintf(h, "user=%s;horizon=%d;tasks=%v;events=%v", userID, horizonDays, taskIDs, eventIDs)
	return hex.EncodeToString(h.Sum(nil))
}

// NoThrashResult reports the outcome of comparing a candidate solution
// against the previously accepted one for the same user.
type NoThrashResult struct {
	MovedRatio      float64
	Accepted        bool
	FrozenViolation bool
	MovedTaskIDs    []string
}

// CheckNoThrash compares candidate against previous and enforces: the
// movedRatio over the whole schedule stays within threshold, and no block
// that both (a) existed in previous and (b) starts within the frozen window
// of now moves by more than the move threshold. A locked/manual block (as
// marked in previous) that moves past the threshold counts as moved and
// also sets FrozenViolation, wherever it starts.
func (d *DeterministicLayer) CheckNoThrash(previous, candidate []domain.PlanBlock, now time.Time) NoThrashResult {
	if len(previous) == 0 {
		return NoThrashResult{Accepted: true}
	}

	prevByTask := make(map[string]domain.PlanBlock, len(previous))
	for _, b := range previous {
		prevByTask[b.TaskID] = b
	}

	moved := 0
	frozenViolation := false
	var movedIDs []string
	frozenEnd := now.Add(d.config.FrozenWindow)

	for _, cb := range candidate {
		pb, ok := prevByTask[cb.TaskID]
		if !ok {
			continue
		}
		shift := cb.Start.Sub(pb.Start)
		if shift < 0 {
			shift = -shift
		}
		if shift <= d.config.MoveThreshold {
			continue
		}
		moved++
		movedIDs = append(movedIDs, cb.TaskID)

		if (pb.Locked || pb.Manual) && shift > 0 {
			frozenViolation = true
		} else if pb.Start.Before(frozenEnd) {
			frozenViolation = true
		}
	}

	ratio := float64(moved) / float64(maxInt(1, len(previous)))
	accepted := ratio <= d.config.MaxMoveRatioThreshold && !frozenViolation

	return NoThrashResult{
		MovedRatio:      ratio,
		Accepted:        accepted,
		FrozenViolation: frozenViolation,
		MovedTaskIDs:    movedIDs,
	}
}

// InertiaPenalty returns the configured per-minute displacement penalty used
// to bias a rerun away from moving a previously-placed block.
func (d *DeterministicLayer) InertiaPenalty(displacementMinutes float64) float64 {
	return d.config.InertiaPenaltyWeight * displacementMinutes
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
