package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
	"github.com/felixgeelhaar/pulse/pkg/observability"
)

// ScheduleRequest is the input to SchedulerService.Schedule.
type ScheduleRequest struct {
	UserID       string
	HorizonDays  int // 1..30, default 7
	DryRun       bool
	LockExisting bool
	JobID        string
	Options      map[string]any

	// tasksOverride lets the Rescheduler inject weight-boosted tasks without
	// re-reading the repository; empty for normal requests.
	tasksOverride []domain.PlanTask
}

// IdempotencyTTL is how long a non-dry-run response is cached for dedup.
const IdempotencyTTL = 60 * time.Minute

// RewardWeights weights the terms of the bandit reward signal (§4.11).
type RewardWeights struct {
	Completion   float64
	Satisfaction float64
	Reschedule   float64
	Missed       float64
}

// DefaultRewardWeights returns the spec's suggested reward weighting.
func DefaultRewardWeights() RewardWeights {
	return RewardWeights{Completion: 0.5, Satisfaction: 0.3, Reschedule: 0.1, Missed: 0.1}
}

// Reward computes the scalar bandit reward from observed outcome rates.
// All four signals are taken as given; no default is substituted for a
// signal the caller does not have.
func Reward(w RewardWeights, completionRate, satisfactionScore, rescheduleRate, missedRate float64) float64 {
	return w.Completion*completionRate + w.Satisfaction*satisfactionScore - w.Reschedule*rescheduleRate - w.Missed*missedRate
}

// SchedulerServiceConfig bundles the tunables SchedulerService depends on.
type SchedulerServiceConfig struct {
	DefaultHorizonDays int
	MaxHorizonDays     int
	Granularity        time.Duration
	EnableFallback     bool
}

// DefaultSchedulerServiceConfig returns the spec defaults.
func DefaultSchedulerServiceConfig() SchedulerServiceConfig {
	return SchedulerServiceConfig{DefaultHorizonDays: 7, MaxHorizonDays: 30, Granularity: 30 * time.Minute, EnableFallback: true}
}

// SchedulerService orchestrates TimeIndex construction, feature extraction,
// the completion model, the weight tuner, the constraint solver (with greedy
// fallback), the deterministic no-thrash check, and invariant validation,
// then persists and returns the result (§4.10).
type SchedulerService struct {
	repo        domain.PlanRepository
	solver      *SchedulerSolver
	fallback    *GreedyFallback
	det         *DeterministicLayer
	invariants  *InvariantChecker
	extractor   *FeatureExtractor
	completion  *CompletionModel
	tuner       *WeightTuner
	idempotency cache.Cache
	metrics     observability.Metrics
	logger      *slog.Logger
	config      SchedulerServiceConfig
}

// NewSchedulerService wires the full solve pipeline.
func NewSchedulerService(
	repo domain.PlanRepository,
	solver *SchedulerSolver,
	fallback *GreedyFallback,
	det *DeterministicLayer,
	invariants *InvariantChecker,
	extractor *FeatureExtractor,
	completion *CompletionModel,
	tuner *WeightTuner,
	idempotency cache.Cache,
	metrics observability.Metrics,
	logger *slog.Logger,
	config SchedulerServiceConfig,
) *SchedulerService {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerService{
		repo: repo, solver: solver, fallback: fallback, det: det, invariants: invariants,
		extractor: extractor, completion: completion, tuner: tuner,
		idempotency: idempotency, metrics: metrics, logger: logger, config: config,
	}
}

// Schedule implements the public entry point, including idempotency.
func (s *SchedulerService) Schedule(ctx context.Context, req ScheduleRequest) (domain.ScheduleSolution, error) {
	return s.scheduleInternal(ctx, req)
}

// SchedulePreview forces dryRun and never persists or caches.
func (s *SchedulerService) SchedulePreview(ctx context.Context, req ScheduleRequest) (domain.ScheduleSolution, error) {
	req.DryRun = true
	return s.scheduleInternal(ctx, req)
}

func (s *SchedulerService) scheduleInternal(ctx context.Context, req ScheduleRequest) (domain.ScheduleSolution, error) {
	if req.HorizonDays <= 0 {
		req.HorizonDays = s.config.DefaultHorizonDays
	}
	if req.HorizonDays > s.config.MaxHorizonDays {
		req.HorizonDays = s.config.MaxHorizonDays
	}

	tasks := req.tasksOverride
	var err error
	if tasks == nil {
		tasks, err = s.repo.LoadTasks(ctx, req.UserID)
		if err != nil {
			return domain.ScheduleSolution{}, err
		}
	}
	prefs, err := s.repo.LoadPreferences(ctx, req.UserID)
	if err != nil {
		return domain.ScheduleSolution{}, err
	}

	now := time.Now()
	horizonEnd := now.AddDate(0, 0, req.HorizonDays)

	hash := s.det.CreateRequestHash(tasks, nil, req.HorizonDays, req.UserID)
	if !req.DryRun && s.idempotency != nil {
		if cached, hit := s.checkIdempotency(ctx, hash); hit {
			s.metrics.Counter(observability.MetricIdempotencyHit, 1)
			return cached, nil
		}
	}

	events, err := s.repo.LoadBusyEvents(ctx, req.UserID, now, horizonEnd)
	if err != nil {
		return domain.ScheduleSolution{}, err
	}

	var locked []domain.PlanBlock
	if req.LockExisting {
		locked, err = s.repo.LoadPreviousBlocks(ctx, req.UserID)
		if err != nil {
			return domain.ScheduleSolution{}, err
		}
		for i := range locked {
			locked[i].Locked = true
		}
	}

	granularityMinutes := int(s.config.Granularity / time.Minute)
	ti, err := domain.NewTimeIndex(prefs.Location(), now, horizonEnd, granularityMinutes)
	if err != nil {
		return domain.ScheduleSolution{}, err
	}

	weights := s.tuner.SuggestWeights(nil)
	utility := s.buildUtility(ti, tasks, events, prefs, now, weights)

	prereqs := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		prereqs[t.ID] = t.Prerequisites
	}

	solveInput := SolveInput{
		Tasks: tasks, Events: events, Preferences: prefs, Granularity: s.config.Granularity,
		TimeIndex: ti, Utility: utility, LockedBlocks: locked, Prerequisites: prereqs, Now: now,
	}

	solution := s.solver.Solve(ctx, solveInput)
	s.metrics.Timing(observability.MetricSolveTimeMs, time.Duration(solution.SolveTimeMs)*time.Millisecond)

	if s.config.EnableFallback && (solution.SolverStatus == domain.StatusInfeasible || solution.SolverStatus == domain.StatusError) {
		solution = s.fallback.Run(solveInput)
		s.metrics.Counter(observability.MetricFallbackTotal, 1)
	}

	unscheduledSet := make(map[string]bool, len(solution.UnscheduledTasks))
	for _, id := range solution.UnscheduledTasks {
		unscheduledSet[id] = true
	}

	violations := s.invariants.Check(solution.Blocks, tasks, unscheduledSet, events, prefs, s.config.Granularity, prereqs)
	if len(violations) > 0 {
		s.metrics.Counter(observability.MetricInvariantViolations, int64(len(violations)))
		s.logger.Error("schedule invariant violation", "user_id", req.UserID, "violations", violations)
		solution.Feasible = false
		solution.SolverStatus = domain.StatusError
		if solution.Diagnostics == nil {
			solution.Diagnostics = map[string]any{}
		}
		solution.Diagnostics["violations"] = violations
		return solution, nil
	}

	previous, _ := s.repo.LoadPreviousBlocks(ctx, req.UserID)
	noThrash := s.det.CheckNoThrash(previous, solution.Blocks, now)
	if solution.Diagnostics == nil {
		solution.Diagnostics = map[string]any{}
	}
	solution.Diagnostics["moved_ratio"] = noThrash.MovedRatio

	if !req.DryRun {
		if err := s.repo.SaveSolution(ctx, req.UserID, solution); err != nil {
			return solution, err
		}
		if s.idempotency != nil {
			s.cacheResult(ctx, hash, solution)
		}
	}

	return solution, nil
}

func (s *SchedulerService) buildUtility(
	ti *domain.TimeIndex,
	tasks []domain.PlanTask,
	events []domain.BusyEvent,
	prefs domain.Preferences,
	now time.Time,
	weights map[string]float64,
) map[string]map[int]float64 {
	utility := make(map[string]map[int]float64, len(tasks))
	hist := HistoryStats{Recent7Day: 0.5}

	for _, task := range tasks {
		slotIdxs := make([]int, 0, ti.Len())
		for i := 0; i < ti.Len(); i++ {
			slotIdxs = append(slotIdxs, i)
		}
		rows := s.extractor.Extract(ti, []domain.PlanTask{task}, slotIdxs, events, prefs, hist, now)
		probs := s.completion.Predict(rows)

		perSlot := make(map[int]float64, len(slotIdxs))
		for i, idx := range slotIdxs {
			ctx := ti.GetSlotContext(idx, prefs)
			penalty := 0.0
			if ctx.PartOfDay == "night" {
				penalty += weights["lateNight"]
			}
			if ctx.PartOfDay == "morning" {
				penalty -= weights["morning"]
			}
			if inAnyWindow(task.AvoidWindows, ctx.Start) {
				penalty += weights["avoidWindow"]
			}
			perSlot[idx] = probs[i] - penalty
		}
		utility[task.ID] = perSlot
	}
	return utility
}

type cachedSolution struct {
	Solution domain.ScheduleSolution `json:"solution"`
}

func (s *SchedulerService) checkIdempotency(ctx context.Context, hash string) (domain.ScheduleSolution, bool) {
	raw, err := s.idempotency.Get(ctx, "idempotency:"+hash)
	if err != nil {
		return domain.ScheduleSolution{}, false
	}
	var cs cachedSolution
	if err := json.Unmarshal(raw, &cs); err != nil {
		return domain.ScheduleSolution{}, false
	}
	return cs.Solution, true
}

func (s *SchedulerService) cacheResult(ctx context.Context, hash string, solution domain.ScheduleSolution) {
	raw, err := json.Marshal(cachedSolution{Solution: solution})
	if err != nil {
		return
	}
	_ = s.idempotency.SetEX(ctx, "idempotency:"+hash, raw, IdempotencyTTL)
}

// UpdateLearning turns an observed outcome into a reward and feeds it back
// into the weight tuner (called asynchronously by the caller); the
// completion model is not updated here.
func (s *SchedulerService) UpdateLearning(ctx context.Context, userID string, weights map[string]float64, outcome RewardWeights, completionRate, satisfactionScore, rescheduleRate, missedRate float64) {
	reward := Reward(outcome, completionRate, satisfactionScore, rescheduleRate, missedRate)
	s.tuner.Update(weights, reward)
}
