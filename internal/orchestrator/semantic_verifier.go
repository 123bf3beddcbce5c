package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/pulse/pkg/observability"
)

// VerifySeverity ranks a SemanticVerifier finding.
type VerifySeverity string

const (
	SeverityInfo     VerifySeverity = "INFO"
	SeverityWarning  VerifySeverity = "WARNING"
	SeverityError    VerifySeverity = "ERROR"
	SeverityCritical VerifySeverity = "CRITICAL"
)

// VerifyFinding is one structural or UX issue found in a ScheduleResponse.
type VerifyFinding struct {
	Severity VerifySeverity
	Code     string
	Message  string
}

// VerifyMode controls whether ERROR findings fail verification.
type VerifyMode string

const (
	VerifyModeStrict   VerifyMode = "strict"
	VerifyModePermissive VerifyMode = "permissive"
)

// SemanticVerifier runs structural and UX checks on a ScheduleResponse before
// it reaches the caller, optionally auto-correcting safe defaults.
type SemanticVerifier struct {
	mode          VerifyMode
	autoCorrect   bool
	metrics       observability.Metrics
	logger        *slog.Logger
}

// NewSemanticVerifier creates a SemanticVerifier.
func NewSemanticVerifier(mode VerifyMode, autoCorrect bool, metrics observability.Metrics, logger *slog.Logger) *SemanticVerifier {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticVerifier{mode: mode, autoCorrect: autoCorrect, metrics: metrics, logger: logger}
}

// Verify checks resp, optionally mutating it in place when auto-correction is
// enabled (filling safe defaults; never inventing blocks or times). Returns
// the findings and whether the response passed (CRITICAL always fails;
// ERROR fails only in strict mode).
func (v *SemanticVerifier) Verify(resp *ScheduleResponse) ([]VerifyFinding, bool) {
	var findings []VerifyFinding

	if resp.Metrics == nil {
		findings = append(findings, VerifyFinding{SeverityCritical, "missing_metrics", "metrics field missing"})
		if v.autoCorrect {
			resp.Metrics = map[string]any{}
		}
	}
	if resp.Explanations == nil {
		findings = append(findings, VerifyFinding{SeverityWarning, "missing_explanations", "explanations field missing"})
		if v.autoCorrect {
			resp.Explanations = map[string]any{}
		}
	}
	if resp.Blocks == nil {
		findings = append(findings, VerifyFinding{SeverityCritical, "missing_blocks", "blocks field missing"})
	}

	for i, b := range resp.Blocks {
		findings = append(findings, v.verifyBlock(i, b)...)
		for j := i + 1; j < len(resp.Blocks); j++ {
			o := resp.Blocks[j]
			if b.Start.Before(o.End) && o.Start.Before(b.End) {
				findings = append(findings, VerifyFinding{SeverityCritical, "overlapping_blocks",
					fmt.Sprintf("blocks for %s and %s overlap", b.TaskID, o.TaskID)})
			}
		}
	}

	findings = append(findings, v.verifyMetrics(resp.Metrics)...)
	findings = append(findings, v.verifyExplanations(resp.Explanations)...)

	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			v.logger.Info("semantic verification finding", "code", f.Code, "message", f.Message)
		case SeverityWarning:
			v.logger.Warn("semantic verification finding", "code", f.Code, "message", f.Message)
			v.metrics.Counter("orchestrator.semantic_verify.warning", 1, observability.T("code", f.Code))
		case SeverityError, SeverityCritical:
			v.logger.Error("semantic verification finding", "code", f.Code, "message", f.Message, "severity", string(f.Severity))
			v.metrics.Counter("orchestrator.semantic_verify.failure", 1, observability.T("code", f.Code))
		}
	}

	passed := true
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			passed = false
		}
		if f.Severity == SeverityError && v.mode == VerifyModeStrict {
			passed = false
		}
	}
	return findings, passed
}

func (v *SemanticVerifier) verifyBlock(i int, b ScheduleBlockView) []VerifyFinding {
	var findings []VerifyFinding
	prefix := fmt.Sprintf("block[%d]", i)
	if b.TaskID == "" {
		findings = append(findings, VerifyFinding{SeverityCritical, "block_missing_task_id", prefix + ": taskId missing"})
	}
	if b.Start.IsZero() || b.End.IsZero() {
		findings = append(findings, VerifyFinding{SeverityCritical, "block_missing_time", prefix + ": start/end missing"})
		return findings
	}
	durationMinutes := int(b.End.Sub(b.Start).Minutes())
	if durationMinutes < 5 || durationMinutes > 480 {
		findings = append(findings, VerifyFinding{SeverityError, "block_duration_out_of_range",
			fmt.Sprintf("%s: durationMinutes=%d out of [5,480]", prefix, durationMinutes)})
	}
	if len(b.Title) > 100 {
		findings = append(findings, VerifyFinding{SeverityWarning, "block_title_too_long", prefix + ": title exceeds 100 chars"})
	}
	return findings
}

func (v *SemanticVerifier) verifyMetrics(metrics map[string]any) []VerifyFinding {
	var findings []VerifyFinding
	required := []string{"totalBlocks", "totalScheduledMinutes", "feasible", "solveTimeMs"}
	for _, key := range required {
		val, ok := metrics[key]
		if !ok {
			findings = append(findings, VerifyFinding{SeverityError, "metric_missing", "metrics." + key + " missing"})
			continue
		}
		if key == "feasible" {
			if _, ok := val.(bool); !ok {
				if v.autoCorrect {
					metrics[key] = coerceBool(val)
				} else {
					findings = append(findings, VerifyFinding{SeverityWarning, "metric_wrong_type", "metrics.feasible not boolean"})
				}
			}
			continue
		}
		if n, ok := asNumber(val); !ok || n < 0 {
			findings = append(findings, VerifyFinding{SeverityWarning, "metric_negative_or_nonnumeric", "metrics." + key + " must be a non-negative number"})
		}
	}
	return findings
}

func (v *SemanticVerifier) verifyExplanations(explanations map[string]any) []VerifyFinding {
	var findings []VerifyFinding
	text, _ := explanations["summary"].(string)
	if text == "" {
		if v.autoCorrect {
			explanations["summary"] = ""
		}
		findings = append(findings, VerifyFinding{SeverityInfo, "explanation_missing", "explanations.summary absent"})
		return findings
	}
	if len(text) < 10 || len(text) > 500 {
		findings = append(findings, VerifyFinding{SeverityWarning, "explanation_length", "explanations.summary length out of [10,500]"})
	}
	if jargonDensity(text) > 2 {
		findings = append(findings, VerifyFinding{SeverityWarning, "explanation_jargon", "explanations.summary has high jargon density"})
	}
	return findings
}

var jargonTerms = []string{"solver", "heuristic", "bandit", "backtracking", "objective function", "constraint", "invariant", "idempotency"}

func jargonDensity(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, term := range jargonTerms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
