package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/theseus-bot/theseus/scheduler"
	"github.com/theseus-bot/theseus/store"
)

// StoreProbeTask is the scheduler task that pings the store.
const StoreProbeTask = "store_probe"

const healthPingTimeout = 2 * time.Second

// HealthHandler answers liveness checks.
type HealthHandler struct {
	store store.Store
	sched *scheduler.Scheduler
}

func NewHealthHandler(st store.Store, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{store: st, sched: sched}
}

// Health pings the store and reports the last background probe.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	body := gin.H{"status": "ok", "store": "ok"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.sched != nil {
		if probe, ok := h.sched.Status(StoreProbeTask); ok {
			body["probe"] = probe
		}
	}
	c.JSON(status, body)
}

// Routes mounts the health check and the admin API on r.
func Routes(r *gin.Engine, adminKey string, health *HealthHandler, admin *AdminHandler) {
	r.GET("/health", health.Health)

	adminG := r.Group("/api/admin")
	adminG.Use(AdminAuth(adminKey))
	{
		adminG.GET("/guilds/:id/tags", admin.ListTags)
		adminG.GET("/guilds/:id/tags/:name/members", admin.TagMembers)
		adminG.GET("/guilds/:id/users/:uid/tags", admin.UserTags)
		adminG.GET("/guilds/:id/admins", admin.GuildAdmins)
		adminG.GET("/guilds/:id/audit", admin.GuildAudit)
		adminG.GET("/scheduler", admin.ListSchedulerTasks)
	}
}
