package orchestrator

import (
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// ScheduleBlockView is the wire shape of one block in a ScheduleResponse.
type ScheduleBlockView struct {
	TaskID   string         `json:"taskId"`
	Title    string         `json:"title"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Provider string         `json:"provider"`
	Metadata map[string]any `json:"metadata"`
}

// ScheduleResponse is the HTTP-boundary response shape for schedule endpoints.
// It is always well-formed: failures surface through Feasible=false and
// Metrics["error_type"]/Explanations["error"], never through an HTTP error body.
type ScheduleResponse struct {
	JobID        string            `json:"jobId,omitempty"`
	Feasible     bool              `json:"feasible"`
	Blocks       []ScheduleBlockView `json:"blocks"`
	Alternatives []ScheduleBlockView `json:"alternatives,omitempty"`
	Metrics      map[string]any    `json:"metrics"`
	Explanations map[string]any    `json:"explanations"`
}

// BuildScheduleResponse converts a domain ScheduleSolution into the wire shape.
func BuildScheduleResponse(jobID string, sol domain.ScheduleSolution) ScheduleResponse {
	blocks := make([]ScheduleBlockView, 0, len(sol.Blocks))
	for _, b := range sol.Blocks {
		blocks = append(blocks, ScheduleBlockView{
			TaskID: b.TaskID, Title: b.Title, Start: b.Start, End: b.End, Provider: "pulse",
			Metadata: map[string]any{
				"utility_score":         b.UtilityScore,
				"completion_probability": b.EstimatedCompletionProb,
				"duration_minutes":      b.DurationMinutes(),
				"course_id":             b.CourseID,
			},
		})
	}

	metrics := map[string]any{
		"totalBlocks":           len(sol.Blocks),
		"totalScheduledMinutes": totalMinutes(sol.Blocks),
		"feasible":              sol.Feasible,
		"solveTimeMs":           sol.SolveTimeMs,
		"solverStatus":          string(sol.SolverStatus),
		"objectiveValue":        sol.ObjectiveValue,
	}

	explanations := map[string]any{}
	if !sol.Feasible {
		metrics["error_type"] = string(sol.SolverStatus)
		explanations["error"] = "Some tasks could not be scheduled within the horizon; see unscheduledTasks."
	}
	if len(sol.UnscheduledTasks) > 0 {
		explanations["unscheduledTasks"] = sol.UnscheduledTasks
	}
	for k, v := range sol.Diagnostics {
		explanations[k] = v
	}

	return ScheduleResponse{JobID: jobID, Feasible: sol.Feasible, Blocks: blocks, Metrics: metrics, Explanations: explanations}
}

func totalMinutes(blocks []domain.PlanBlock) int {
	total := 0
	for _, b := range blocks {
		total += b.DurationMinutes()
	}
	return total
}
