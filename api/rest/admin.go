package rest

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/scheduler"
	"github.com/theseus-bot/theseus/store"
	"go.uber.org/zap"
)

const AdminKeyHeader = "X-Admin-Key"

// AuditReader lists recorded command invocations.
type AuditReader interface {
	Recent(ctx context.Context, guildID int64, limit int) ([]model.AuditLog, error)
}

// AdminHandler serves the read-only admin endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	store  store.Store
	sched  *scheduler.Scheduler
	audit  AuditReader
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler. audit may be nil when auditing is
// disabled.
func NewAdminHandler(st store.Store, sched *scheduler.Scheduler, audit AuditReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: st, sched: sched, audit: audit, logger: logger}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) storeError(c *gin.Context, err error) {
	h.logger.Error("admin api store error",
		zap.String("path", c.FullPath()),
		zap.String("trace_id", c.GetString("trace_id")),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
}

// ListTags returns the member count of every tag in a guild.
// GET /api/admin/guilds/:id/tags
func (h *AdminHandler) ListTags(c *gin.Context) {
	guildID, ok := paramID(c, "id")
	if !ok {
		return
	}
	tags, err := h.store.ListTags(c.Request.Context(), guildID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "tags": tags, "count": len(tags)})
}

// TagMembers returns the members of one tag.
// GET /api/admin/guilds/:id/tags/:name/members
func (h *AdminHandler) TagMembers(c *gin.Context) {
	guildID, ok := paramID(c, "id")
	if !ok {
		return
	}
	name := store.NormalizeName(c.Param("name"))
	members, err := h.store.MembersOfTag(c.Request.Context(), guildID, name)
	if errors.Is(err, store.ErrTagNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "tag": name, "members": members})
}

// UserTags returns the tags a user belongs to.
// GET /api/admin/guilds/:id/users/:uid/tags
func (h *AdminHandler) UserTags(c *gin.Context) {
	guildID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "uid")
	if !ok {
		return
	}
	names, err := h.store.TagsForUser(c.Request.Context(), guildID, userID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "user_id": userID, "tags": names})
}

// GuildAdmins returns the admin list of a guild.
// GET /api/admin/guilds/:id/admins
func (h *AdminHandler) GuildAdmins(c *gin.Context) {
	guildID, ok := paramID(c, "id")
	if !ok {
		return
	}
	admins, err := h.store.Admins(c.Request.Context(), guildID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "admins": admins})
}

// GuildAudit returns the latest recorded commands of a guild.
// GET /api/admin/guilds/:id/audit?limit=N
func (h *AdminHandler) GuildAudit(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit disabled"})
		return
	}
	guildID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.audit.Recent(c.Request.Context(), guildID, limit)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "entries": logs, "count": len(logs)})
}

// ListSchedulerTasks returns every background task with its last result.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Snapshot()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints are disabled (503) so the
// bot cannot be accidentally deployed without protection.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set http.admin_key in config"})
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
