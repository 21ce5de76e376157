package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/response"
)

// Handler HTTP 读接口与管理接口
type Handler struct {
	points *service.PointsService
	emojis *service.EmojiStatsService
	stats  *service.UserStatsService
	admin  *service.AdminService
	ping   func(context.Context) error
}

func NewHandler(points *service.PointsService, emojis *service.EmojiStatsService, stats *service.UserStatsService, admin *service.AdminService, ping func(context.Context) error) *Handler {
	return &Handler{points: points, emojis: emojis, stats: stats, admin: admin, ping: ping}
}

// Health 存活与存储连通性检查
// @Summary 健康检查
// @Tags 系统
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			response.ServiceUnavailable(c, "storage unavailable")
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}

// writeError 把服务层错误映射为 HTTP 状态
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrConfirmationRequired):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, service.ErrInsufficientCoins), errors.Is(err, service.ErrInsufficientPoints):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		_ = c.Error(err)
		response.ServiceUnavailable(c, "storage unavailable")
	default:
		response.InternalError(c, err)
	}
}

// snowflakeParam 读取并校验路径中的 Discord ID
func snowflakeParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !service.IsSnowflake(id) {
		response.BadRequest(c, "invalid "+name)
		return "", false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
