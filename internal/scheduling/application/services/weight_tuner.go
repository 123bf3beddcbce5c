package services

import (
	"math"
	"math/rand"
	"sync"
)

// WeightNames is the fixed set of named penalty weights the tuner selects over.
var WeightNames = []string{
	"contextSwitch", "avoidWindow", "lateNight", "morning", "fragmentation", "spacingViolation", "fairness",
}

// DefaultWeights returns the configured fallback weights used when no bandit
// model has accumulated enough evidence yet.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"contextSwitch":    0.2,
		"avoidWindow":      0.5,
		"lateNight":        0.5,
		"morning":          -0.1,
		"fragmentation":    0.3,
		"spacingViolation": 0.25,
		"fairness":         0.15,
	}
}

// WeightArm is a named, scaled candidate weight vector the bandit chooses between.
type WeightArm struct {
	Name    string
	Scale   float64 // multiplier applied to DefaultWeights
	alpha   float64 // Beta distribution success pseudo-count
	beta    float64 // Beta distribution failure pseudo-count
	pulls   int
}

// WeightTuner is a Thompson-sampling contextual bandit over a small set of
// weight-vector scales, used to bias the solver's penalty terms based on
// observed scheduling outcomes (see Reward in scheduler_service.go).
type WeightTuner struct {
	mu   sync.Mutex
	arms []*WeightArm
	rng  *rand.Rand
}

// NewWeightTuner creates a tuner with a fixed fan of scale arms around 1.0.
func NewWeightTuner(seed int64) *WeightTuner {
	scales := []float64{0.5, 0.75, 1.0, 1.25, 1.5}
	arms := make([]*WeightArm, len(scales))
	for i, s := range scales {
		arms[i] = &WeightArm{Name: armName(s), Scale: s, alpha: 1, beta: 1}
	}
	return &WeightTuner{arms: arms, rng: rand.New(rand.NewSource(seed))}
}

func armName(scale float64) string {
	switch {
	case scale < 0.75:
		return "conservative"
	case scale < 1.0:
		return "light"
	case scale == 1.0:
		return "default"
	case scale < 1.5:
		return "firm"
	default:
		return "strict"
	}
}

// SuggestWeights samples an arm via Thompson sampling and returns the
// resulting named weight map. Context is currently unused by this
// implementation (arms are context-free) but kept in the signature so a
// richer contextual model can be substituted without an interface change.
func (t *WeightTuner) SuggestWeights(context map[string]float64) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := t.arms[0]
	bestSample := -1.0
	for _, arm := range t.arms {
		sample := sampleBeta(t.rng, arm.alpha, arm.beta)
		if sample > bestSample {
			bestSample = sample
			best = arm
		}
	}
	best.pulls++

	out := make(map[string]float64, len(WeightNames))
	for name, w := range DefaultWeights() {
		out[name] = w * best.Scale
	}
	out["__arm"] = best.Scale
	return out
}

// Update feeds back the observed reward in [0,1] for the arm implied by the
// weights previously returned from SuggestWeights.
func (t *WeightTuner) Update(weights map[string]float64, reward float64) {
	scale, ok := weights["__arm"]
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, arm := range t.arms {
		if arm.Scale == scale {
			if reward > 0.5 {
				arm.alpha += reward
			} else {
				arm.beta += 1 - reward
			}
			return
		}
	}
}

// sampleBeta draws from Beta(alpha, beta) via two Gamma draws.
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := sampleGamma(rng, alpha)
	y := sampleGamma(rng, beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws from Gamma(shape, 1) via Marsaglia-Tsang for shape >= 1,
// with a boost transform for shape < 1.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
