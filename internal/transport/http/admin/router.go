package adminhttp

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"tokenscout/internal/filter"
	"tokenscout/internal/logger"
	"tokenscout/internal/store"
	"tokenscout/internal/store/model"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	maxPatchBytes     = 64 << 10
)

// Router 暴露 /api 下的查询与修改接口。
type Router struct {
	criteria CriteriaStore
	alerts   store.AlertRepository
	cycles   store.CycleRepository
	scanner  ScanStatus
	obs      Observer
	schema   *jsonschema.Schema
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/criteria", r.handleGetCriteria)
	group.PATCH("/criteria", r.handlePatchCriteria)
	group.GET("/criteria/keys", r.handleCriteriaKeys)
	group.GET("/alerts", r.handleAlerts)
	group.GET("/cycles/last", r.handleLastCycle)
	group.GET("/scanner", r.handleScanner)
}

func (r *Router) handleGetCriteria(c *gin.Context) {
	c.JSON(http.StatusOK, r.criteria.Snapshot())
}

func (r *Router) handleCriteriaKeys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keys": filter.PatchKeys()})
}

func (r *Router) handlePatchCriteria(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch, err := decodePatch(r.schema, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, err := r.criteria.ApplyPatch(patch)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if r.obs != nil {
		r.obs.ObserveCriteriaUpdate("admin")
	}
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	logger.Infof("[admin] 阈值已更新 keys=%v ip=%s", keys, c.ClientIP())
	c.JSON(http.StatusOK, next)
}

type alertView struct {
	AlertID    string    `json:"alert_id"`
	CycleID    string    `json:"cycle_id"`
	Chain      string    `json:"chain"`
	Address    string    `json:"address"`
	Symbol     string    `json:"symbol"`
	Message    string    `json:"message"`
	Recipients int       `json:"recipients"`
	Delivered  int       `json:"delivered"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAlertView(m model.AlertModel) alertView {
	return alertView{
		AlertID:    m.AlertID,
		CycleID:    m.CycleID,
		Chain:      m.Chain,
		Address:    m.Address,
		Symbol:     m.Symbol,
		Message:    m.Message,
		Recipients: m.Recipients,
		Delivered:  m.Delivered,
		CreatedAt:  time.UnixMilli(m.CreatedAtUnix).UTC(),
	}
}

func (r *Router) handleAlerts(c *gin.Context) {
	if r.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert log disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAlertLimit)))
	if err != nil || limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	rows, err := r.alerts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]alertView, 0, len(rows))
	for _, row := range rows {
		out = append(out, newAlertView(row))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out, "limit": limit})
}

func (r *Router) handleLastCycle(c *gin.Context) {
	if r.cycles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cycle log disabled"})
		return
	}
	cycle, err := r.cycles.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cycle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cycle recorded yet"})
		return
	}
	resp := gin.H{
		"cycle_id":      cycle.CycleID,
		"started_at":    time.UnixMilli(cycle.StartedAtUnix).UTC(),
		"finished_at":   time.UnixMilli(cycle.FinishedAtUnix).UTC(),
		"candidates":    cycle.Candidates,
		"matches":       cycle.Matches,
		"failed_chains": cycle.FailedChains,
	}
	if len(cycle.Report) > 0 {
		resp["report"] = cycle.Report
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleScanner(c *gin.Context) {
	if r.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scanner not attached"})
		return
	}
	breakers := make(map[string]string)
	for chain, st := range r.scanner.BreakerStates() {
		breakers[chain] = st.String()
	}
	resp := gin.H{"breakers": breakers}
	if rep, ok := r.scanner.LastReport(); ok {
		resp["last_cycle"] = gin.H{
			"cycle_id":      rep.CycleID,
			"started_at":    rep.StartedAt,
			"duration":      rep.Duration().String(),
			"totals":        rep.Totals(),
			"failed_chains": rep.FailedChains(),
			"matches":       len(rep.Matches),
		}
	}
	c.JSON(http.StatusOK, resp)
}
