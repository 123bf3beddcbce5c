package services

import (
	"log/slog"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
	"github.com/felixgeelhaar/pulse/pkg/observability"
)

// NewDefaultSchedulerService assembles the full solve pipeline (solver,
// greedy fallback, deterministic layer, invariant checker, feature
// extractor, completion model, weight tuner) behind the single entry point
// callers actually need. This is the seam the app container and the
// scheduling command handlers wire against instead of constructing each
// of the seven pipeline stages by hand.
func NewDefaultSchedulerService(
	repo domain.PlanRepository,
	idempotency cache.Cache,
	metrics observability.Metrics,
	logger *slog.Logger,
	seed int64,
) *SchedulerService {
	det := NewDeterministicLayer(DefaultDeterministicLayerConfig(seed))
	solver := NewSchedulerSolver(DefaultSolverConfig(), det)
	fallback := NewGreedyFallback(det)
	invariants := NewInvariantChecker()
	extractor := NewFeatureExtractor()
	completion := NewCompletionModel(len(FeatureNames))
	tuner := NewWeightTuner(seed)

	return NewSchedulerService(
		repo, solver, fallback, det, invariants, extractor, completion, tuner,
		idempotency, metrics, logger, DefaultSchedulerServiceConfig(),
	)
}
