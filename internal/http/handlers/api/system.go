package api

import (
	"context"
	"time"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/repository"

	"github.com/gin-gonic/gin"
)

const serviceName = "truckdock"

// Root 服务信息
func (h *Handler) Root(c *gin.Context) {
	response.Success(c, gin.H{
		"service": serviceName,
		"status":  "running",
		"docs":    "/api",
	})
}

// Health 健康检查：数据库与 Redis 连通性、记录总数
func (h *Handler) Health(c *gin.Context) {
	if models.DB == nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", nil)
		return
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	redisStatus := "disabled"
	if cache.Enabled() {
		if err := cache.Ping(ctx); err != nil {
			shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
			return
		}
		redisStatus = "connected"
	}
	total, err := h.TruckRepo.Count(repository.TruckListFilter{})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, gin.H{
		"status":           "healthy",
		"database":         "connected",
		"redis":            redisStatus,
		"total_trucks":     total,
		"realtime_clients": h.Hub.ClientCount(),
	})
}
