package handler

import (
	"net/http"
	"sort"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/Measdoulas/CASHRULER-sub000/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JobHandler handles operational job requests
type JobHandler struct {
	runners map[string]*service.ScheduledRunner
}

// NewJobHandler creates a new JobHandler for the given runners, keyed by job name
func NewJobHandler(runners map[string]*service.ScheduledRunner) *JobHandler {
	return &JobHandler{runners: runners}
}

// RunResponse is the payload returned by a manual job trigger
type RunResponse struct {
	Job    string           `json:"job"`
	Result domain.JobResult `json:"result"`
	Report any              `json:"report,omitempty"`
}

// JobStatus describes one registered job
type JobStatus struct {
	Job     string `json:"job"`
	Running bool   `json:"running"`
}

// ListJobs handles GET /jobs
func (h *JobHandler) ListJobs(c echo.Context) error {
	statuses := make([]JobStatus, 0, len(h.runners))
	for name, runner := range h.runners {
		statuses = append(statuses, JobStatus{Job: name, Running: runner.IsRunning()})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Job < statuses[j].Job })

	return c.JSON(http.StatusOK, statuses)
}

// TriggerJob handles POST /jobs/:name/run
// Runs a single pass of the named job immediately, outside the periodic schedule.
func (h *JobHandler) TriggerJob(c echo.Context) error {
	name := c.Param("name")

	runner, ok := h.runners[name]
	if !ok {
		return NewNotFoundError(c, "Unknown job")
	}

	log.Info().Str("job", name).Msg("Manual job trigger")

	outcome := runner.RunOnce(c.Request().Context())

	return c.JSON(http.StatusOK, RunResponse{Job: name, Result: outcome.Result, Report: outcome.Report})
}

// Health handles GET /health
func (h *JobHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
