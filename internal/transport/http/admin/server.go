// Package adminhttp 提供运维 HTTP 接口：健康检查、指标、阈值查看与修改、告警与周期查询。
package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tokenscout/internal/filter"
	"tokenscout/internal/logger"
	"tokenscout/internal/pkg/circuit"
	"tokenscout/internal/scanner"
	"tokenscout/internal/store"
)

// CriteriaStore is the part of filter.Store the API reads and patches.
type CriteriaStore interface {
	Snapshot() filter.Criteria
	ApplyPatch(patch map[string]any) (filter.Criteria, error)
}

// ScanStatus exposes the scanner's latest cycle and breaker states.
type ScanStatus interface {
	LastReport() (scanner.Report, bool)
	BreakerStates() map[string]circuit.State
}

// Observer counts accepted criteria changes.
type Observer interface {
	ObserveCriteriaUpdate(source string)
}

// ServerConfig 描述 admin HTTP 服务依赖。
type ServerConfig struct {
	Addr string
	// Token, when set, is required as "Authorization: Bearer <token>" on /api routes.
	Token    string
	Criteria CriteriaStore
	Alerts   store.AlertRepository
	Cycles   store.CycleRepository
	Scanner  ScanStatus
	Metrics  http.Handler
	Observer Observer
}

// Server 是 admin HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
}

// NewServer 构建 admin HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Criteria == nil {
		return nil, errors.New("admin http server requires a criteria store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	schema, err := compileSchema(criteriaPatchSchema)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	api := router.Group("/api")
	if token := strings.TrimSpace(cfg.Token); token != "" {
		api.Use(bearerAuth(token))
	}
	r := &Router{
		criteria: cfg.Criteria,
		alerts:   cfg.Alerts,
		cycles:   cfg.Cycles,
		scanner:  cfg.Scanner,
		obs:      cfg.Observer,
		schema:   schema,
	}
	r.Register(api)
	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪阈值修改。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

func bearerAuth(token string) gin.HandlerFunc {
	want := "Bearer " + token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("[admin] HTTP 服务监听 %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
