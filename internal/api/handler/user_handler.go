package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lanternko/Discordbot/pkg/response"
)

// Profile 用户积分档案
// @Summary 用户档案
// @Tags 积分
// @Param user_id path string true "Discord 用户ID"
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id}/profile [get]
func (h *Handler) Profile(c *gin.Context) {
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	p, err := h.points.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// Leaderboard 全局排行榜
// @Summary 排行榜
// @Tags 积分
// @Param type query string false "points | level | messages" default(points)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} response.Response
// @Router /api/v1/leaderboard [get]
func (h *Handler) Leaderboard(c *gin.Context) {
	orderBy := c.DefaultQuery("type", "points")
	limit := intQuery(c, "limit", 10)
	users, err := h.points.Leaderboard(c.Request.Context(), orderBy, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"type": orderBy, "list": users})
}

// UserStats 用户在服务器内的综合统计
// @Summary 用户统计
// @Tags 统计
// @Param guild_id path string true "服务器ID"
// @Param user_id path string true "Discord 用户ID"
// @Success 200 {object} response.Response{data=service.DetailedStats}
// @Router /api/v1/guilds/{guild_id}/users/{user_id}/stats [get]
func (h *Handler) UserStats(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	d, err := h.stats.Detailed(c.Request.Context(), userID, guildID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, d)
}

// GuildOverview 服务器活跃概况
// @Summary 服务器概况
// @Tags 统计
// @Param guild_id path string true "服务器ID"
// @Param days query int false "天数" default(7)
// @Success 200 {object} response.Response{data=service.GuildOverview}
// @Router /api/v1/guilds/{guild_id}/overview [get]
func (h *Handler) GuildOverview(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	ov, err := h.stats.GuildOverview(c.Request.Context(), guildID, intQuery(c, "days", 7))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, ov)
}
