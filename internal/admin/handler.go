// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelamos/orderhub/internal/core"
)

// Handler exposes operator-facing process stats. These endpoints sit
// behind the admin-tier gate like every tenant operation, but report on
// the process, not on tenant data.
type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	dbPing     func(ctx context.Context) error
	redisPing  func(ctx context.Context) error
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		dbPing:     cfg.DBPing,
		redisPing:  cfg.RedisPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/system", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.SystemStats)
		r.Get("/stats/db", h.DatabaseStats)
		r.Get("/stats/redis", h.RedisStats)
		r.Get("/stats/runtime", h.RuntimeStats)
	})
}

func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	core.OK(w, systemStatsResponse{
		Database: dependencyStatus[*poolStats]{
			Healthy: ping(ctx, h.dbPing),
			Stats:   h.poolSnapshot(),
		},
		Redis: dependencyStatus[*cacheStats]{
			Healthy: ping(ctx, h.redisPing),
			Stats:   h.cacheSnapshot(),
		},
		Runtime: processSnapshot(),
	})
}

func (h *Handler) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.poolSnapshot())
}

func (h *Handler) RedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.cacheSnapshot())
}

func (h *Handler) RuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, processSnapshot())
}

func ping(ctx context.Context, fn func(context.Context) error) bool {
	if fn == nil {
		return true
	}
	return fn(ctx) == nil
}

func (h *Handler) poolSnapshot() *poolStats {
	if h.dbStats == nil {
		return nil
	}

	s := h.dbStats()
	return &poolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func (h *Handler) cacheSnapshot() *cacheStats {
	if h.redisStats == nil {
		return nil
	}

	s := h.redisStats()
	return &cacheStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
		StaleConns: s.StaleConns,
	}
}

func processSnapshot() processStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return processStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}

type systemStatsResponse struct {
	Database dependencyStatus[*poolStats]  `json:"database"`
	Redis    dependencyStatus[*cacheStats] `json:"redis"`
	Runtime  processStats                  `json:"runtime"`
}

type dependencyStatus[T any] struct {
	Healthy bool `json:"healthy"`
	Stats   T    `json:"stats,omitempty"`
}

type poolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type cacheStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type processStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
