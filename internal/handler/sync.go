package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/opslog"
	"spielebasar/internal/repository"
	"spielebasar/internal/scheduler"
	"spielebasar/internal/service"
)

// SyncScheduler is the part of the scheduler the ops API drives.
type SyncScheduler interface {
	Status() scheduler.Status
	Launch(ctx context.Context, h teamsl.Horizon, trigger service.Trigger) error
}

type SyncHandler struct {
	Scheduler SyncScheduler
	Repo      repository.SyncBookkeeping
}

func (h *SyncHandler) Register(r *gin.Engine) {
	g := r.Group("/api/sync")
	g.GET("/status", h.status)
	g.POST("/run", h.run)
	g.GET("/runs", h.runs)
	g.GET("/state", h.state)
}

// @Summary Scheduler status per horizon
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/status [get]
func (h *SyncHandler) status(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	Ok(c, h.Scheduler.Status(), nil)
}

// @Summary Start a sync cycle
// @Tags sync
// @Param horizon query string true "w1, w3 or all"
// @Success 202 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/sync/run [post]
func (h *SyncHandler) run(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	horizon, err := teamsl.ParseHorizon(c.Query("horizon"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	err = h.Scheduler.Launch(c.Request.Context(), horizon, service.TriggerManual)
	var skip *scheduler.SkipError
	switch {
	case errors.As(err, &skip):
		Error(c, http.StatusConflict, err.Error(), map[string]any{"reason": string(skip.Reason)})
		return
	case err != nil:
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	opslog.NotifyGin(c, "spielebasar_sync_manual", "info", map[string]any{"horizon": horizon.String()})
	Accepted(c, gin.H{"horizon": horizon, "trigger": service.TriggerManual})
}

// @Summary Sync run history
// @Tags sync
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Param horizon query string false "filter by horizon"
// @Param status query string false "ok or failed"
// @Success 200 {object} apiResponse
// @Router /api/sync/runs [get]
func (h *SyncHandler) runs(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSyncRunsParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		Horizon: strQueryPtr(c, "horizon"),
		Status:  strQueryPtr(c, "status"),
	}
	items, err := h.Repo.ListSyncRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, len(items)))
}

// @Summary Latest state per horizon
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/state [get]
func (h *SyncHandler) state(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSyncStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
