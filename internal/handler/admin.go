package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/response"
)

// ProfileStats reports profile-store statistics.
type ProfileStats interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	profiles       ProfileStats
	dbType         string
	sessionBackend string
	startTime      time.Time
	log            *zap.SugaredLogger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(profiles ProfileStats, dbType, sessionBackend string, l *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{
		profiles:       profiles,
		dbType:         dbType,
		sessionBackend: sessionBackend,
		startTime:      time.Now(),
		log:            logger.OrNop(l).Named("admin"),
	}
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["session_backend"] = h.sessionBackend

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.profiles != nil {
		profileStats, err := h.profiles.Stats(r.Context())
		if err != nil {
			h.log.Warnw("profile stats unavailable", "err", err)
			stats["profiles"] = map[string]interface{}{"error": err.Error()}
		} else {
			stats["profiles"] = profileStats
		}
	}

	response.OK(w, stats)
}
