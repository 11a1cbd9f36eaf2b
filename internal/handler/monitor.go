package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tokenwatch/internal/repository"
	"tokenwatch/internal/scheduler"
)

// MonitorHandler exposes the operator-facing view: recent alerts and
// rounds from the activity sink, live scheduler status, and a manual
// round trigger.
type MonitorHandler struct {
	Repo      repository.Repository
	Scheduler *scheduler.Scheduler
}

func (h *MonitorHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/alerts", h.listAlerts)
	group.GET("/rounds", h.listRounds)
	group.GET("/status", h.status)
	group.POST("/rounds/trigger", h.triggerRound)
}

func (h *MonitorHandler) listAlerts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusNotImplemented, "activity sink disabled", nil)
		return
	}
	params := repository.ListAlertsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if tier := strings.TrimSpace(c.Query("tier")); tier != "" {
		params.Tier = &tier
	}
	if since := strings.TrimSpace(c.Query("since")); since != "" {
		if parsed, err := time.Parse(time.RFC3339, since); err == nil {
			parsed = parsed.UTC()
			params.Since = &parsed
		}
	}

	items, err := h.Repo.ListAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAlerts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}

func (h *MonitorHandler) listRounds(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusNotImplemented, "activity sink disabled", nil)
		return
	}
	items, err := h.Repo.ListRounds(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *MonitorHandler) status(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	Ok(c, h.Scheduler.Status(), nil)
}

func (h *MonitorHandler) triggerRound(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	if !h.Scheduler.Trigger() {
		Error(c, http.StatusConflict, "round already in flight", nil)
		return
	}
	Ok(c, gin.H{"triggered": true}, nil)
}
