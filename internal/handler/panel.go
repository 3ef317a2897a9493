package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quotepanel/internal/models"
	"quotepanel/internal/repository"
	"quotepanel/internal/service"
	"quotepanel/internal/universe"
)

type PanelHandler struct {
	Sync     *service.PanelSyncService
	Ranking  *service.RankingService
	Store    repository.PanelRepository
	Universe *universe.Source
	Logger   *zap.Logger
}

func (h *PanelHandler) Register(r *gin.Engine) {
	group := r.Group("/api/panel")
	group.POST("/sync", h.sync)
	group.GET("/ranking", h.ranking)
	group.GET("/ingest-days", h.listIngestDays)
	group.GET("/sync-state", h.listSyncState)
	group.POST("/universe/reload", h.reloadUniverse)
}

// @Summary Sync daily quotes into the panel
// @Tags panel
// @Param from query string true "first calendar day (YYYY-MM-DD)"
// @Param to query string true "last calendar day (YYYY-MM-DD)"
// @Param codes query string false "comma separated codes; switches to per-code sync"
// @Param force query bool false "refetch days already in the ledger"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/panel/sync [post]
func (h *PanelHandler) sync(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	from, to, err := dateRangeQuery(c, true)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	opts := service.SyncOptions{
		From:  from,
		To:    to,
		Force: boolQueryDefault(c, "force", false),
	}
	if raw, ok := c.GetQuery("codes"); ok {
		opts.Codes = splitList(raw)
	}

	result, err := h.Sync.Sync(c.Request.Context(), opts)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("panel sync failed", zap.Error(err))
		}
		var meta map[string]any
		if result.RunID != "" {
			meta = map[string]any{"sync": result}
		}
		writeError(c, err, meta)
		return
	}
	Ok(c, result, nil)
}

// @Summary Rank securities by composite factor score
// @Tags panel
// @Param from query string true "first calendar day (YYYY-MM-DD)"
// @Param to query string true "last calendar day (YYYY-MM-DD)"
// @Param factorSet query string false "medium|intraday"
// @Param limit query int false "max items"
// @Param capMode query string false "over|under|none"
// @Param capThreshold query string false "market cap threshold"
// @Param weights query string false "weights as JSON object or name:value list"
// @Param skipSync query bool false "rank stored bars without syncing first"
// @Param force query bool false "refetch days already in the ledger"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/panel/ranking [get]
func (h *PanelHandler) ranking(c *gin.Context) {
	if h.Ranking == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	from, to, err := dateRangeQuery(c, true)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(c, &service.ValidationError{Field: "limit", Reason: "not an integer"}, nil)
			return
		}
	}
	weights, err := weightsQuery(c)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	result, err := h.Ranking.Rank(c.Request.Context(), service.RankingOptions{
		From:         from,
		To:           to,
		FactorSet:    c.Query("factorSet"),
		Weights:      weights,
		Limit:        limit,
		CapMode:      c.Query("capMode"),
		CapThreshold: c.Query("capThreshold"),
		SkipSync:     boolQueryDefault(c, "skipSync", false),
		Force:        boolQueryDefault(c, "force", false),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("panel ranking failed", zap.Error(err))
		}
		var meta map[string]any
		if result.Sync != nil {
			meta = map[string]any{"sync": result.Sync}
		}
		writeError(c, err, meta)
		return
	}
	Ok(c, result, map[string]any{"count": len(result.Items)})
}

type ingestDayView struct {
	Date         string    `json:"date"`
	IngestedAt   time.Time `json:"ingestedAt"`
	RowsUpserted int64     `json:"rowsUpserted"`
}

// @Summary List ingested trading days
// @Tags panel
// @Param from query string false "first day (YYYY-MM-DD)"
// @Param to query string false "last day (YYYY-MM-DD)"
// @Success 200 {object} apiResponse
// @Router /api/panel/ingest-days [get]
func (h *PanelHandler) listIngestDays(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	from, to, err := dateRangeQuery(c, false)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	days, err := h.Store.ListIngestedDays(c.Request.Context(), from, to)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list ingest days failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	out := make([]ingestDayView, 0, len(days))
	for _, d := range days {
		out = append(out, ingestDayView{
			Date:         models.FormatDate(d.Date),
			IngestedAt:   d.IngestedAt,
			RowsUpserted: d.RowsUpserted,
		})
	}
	meta := map[string]any{"total": len(out)}
	if bars, err := h.Store.CountBars(c.Request.Context()); err == nil {
		meta["bars"] = bars
	}
	Ok(c, out, meta)
}

type syncStateView struct {
	Scope         string          `json:"scope"`
	Watermark     string          `json:"watermark,omitempty"`
	LastSuccessAt *time.Time      `json:"lastSuccessAt,omitempty"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
	LastError     *string         `json:"lastError,omitempty"`
	LastRunID     *string         `json:"lastRunId,omitempty"`
	Stats         json.RawMessage `json:"stats,omitempty"`
}

// @Summary List sync states
// @Tags panel
// @Success 200 {object} apiResponse
// @Router /api/panel/sync-state [get]
func (h *PanelHandler) listSyncState(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync state failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	out := make([]syncStateView, 0, len(states))
	for _, s := range states {
		view := syncStateView{
			Scope:         s.Scope,
			LastSuccessAt: s.LastSuccessAt,
			LastAttemptAt: s.LastAttemptAt,
			LastError:     s.LastError,
			LastRunID:     s.LastRunID,
		}
		if s.WatermarkDate != nil {
			view.Watermark = models.FormatDate(*s.WatermarkDate)
		}
		if len(s.StatsJSON) > 0 {
			view.Stats = json.RawMessage(s.StatsJSON)
		}
		out = append(out, view)
	}
	Ok(c, out, nil)
}

// @Summary Reload the company directory
// @Tags panel
// @Success 200 {object} apiResponse
// @Failure 500 {object} apiResponse
// @Router /api/panel/universe/reload [post]
func (h *PanelHandler) reloadUniverse(c *gin.Context) {
	if h.Universe == nil {
		Error(c, http.StatusInternalServerError, "company directory is not configured", nil)
		return
	}
	dir, err := h.Universe.Reload(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("company directory reload failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"companies": dir.Len(),
		"loadedAt":  h.Universe.LoadedAt().Format(time.RFC3339),
	}, nil)
}

func dateRangeQuery(c *gin.Context, required bool) (time.Time, time.Time, error) {
	from, err := dateQuery(c, "from", required)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := dateQuery(c, "to", required)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func dateQuery(c *gin.Context, key string, required bool) (time.Time, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		if required {
			return time.Time{}, &service.ValidationError{Field: key, Reason: "is required"}
		}
		return time.Time{}, nil
	}
	t, err := models.ParseDate(val)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: key, Reason: "want YYYY-MM-DD"}
	}
	return t, nil
}

// weightsQuery reads "weights" as a JSON object or a "name:value" list, then
// applies any "w.<factor>" parameters on top.
func weightsQuery(c *gin.Context) (map[string]float64, error) {
	out := map[string]float64{}
	if raw := strings.TrimSpace(c.Query("weights")); raw != "" {
		if strings.HasPrefix(raw, "{") {
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				return nil, &service.ValidationError{Field: "weights", Reason: "invalid JSON object"}
			}
		} else {
			for _, pair := range splitList(raw) {
				name, value, ok := strings.Cut(pair, ":")
				if !ok {
					return nil, &service.ValidationError{Field: "weights", Reason: "want name:value pairs"}
				}
				w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
				if err != nil {
					return nil, &service.ValidationError{Field: "weights", Reason: "invalid value for " + strings.TrimSpace(name)}
				}
				out[strings.TrimSpace(name)] = w
			}
		}
	}
	for key, vals := range c.Request.URL.Query() {
		name, ok := strings.CutPrefix(key, "w.")
		if !ok || len(vals) == 0 {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(vals[len(vals)-1]), 64)
		if err != nil {
			return nil, &service.ValidationError{Field: "weights", Reason: "invalid value for " + name}
		}
		out[name] = w
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
