package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/response"
)

type rosterRequest struct {
	Emojis []service.GuildEmoji `json:"emojis" binding:"dive"`
}

// GuildEmojis 服务器最常用的表情
// @Summary 热门表情
// @Tags 表情
// @Param guild_id path string true "服务器ID"
// @Param days query int false "最近天数，0 表示不限" default(0)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} response.Response
// @Router /api/v1/guilds/{guild_id}/emojis [get]
func (h *Handler) GuildEmojis(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 10)
	var (
		list interface{}
		err  error
	)
	if days := intQuery(c, "days", 0); days > 0 {
		list, err = h.emojis.Popular(c.Request.Context(), guildID, days, limit)
	} else {
		list, err = h.emojis.GuildTop(c.Request.Context(), guildID, limit)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// EmojiLeaderboard 表情排行
// @Summary 表情排行
// @Tags 表情
// @Param guild_id path string true "服务器ID"
// @Param type query string false "total | unique_users | recent" default(total)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} response.Response
// @Router /api/v1/guilds/{guild_id}/emojis/leaderboard [get]
func (h *Handler) EmojiLeaderboard(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	orderBy := c.DefaultQuery("type", "total")
	list, err := h.emojis.Leaderboard(c.Request.Context(), guildID, orderBy, intQuery(c, "limit", 10))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"type": orderBy, "list": list})
}

// EmojiTrends 按天的使用趋势
// @Summary 表情趋势
// @Tags 表情
// @Param guild_id path string true "服务器ID"
// @Param days query int false "天数" default(7)
// @Success 200 {object} response.Response
// @Router /api/v1/guilds/{guild_id}/emojis/trends [get]
func (h *Handler) EmojiTrends(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	days, err := h.emojis.Trends(c.Request.Context(), guildID, intQuery(c, "days", 7))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"days": days})
}

// EmojiUsers 某表情的主要使用者
// @Summary 表情使用者
// @Tags 表情
// @Param guild_id path string true "服务器ID"
// @Param name path string true "表情名称"
// @Success 200 {object} response.Response
// @Router /api/v1/guilds/{guild_id}/emojis/{name}/users [get]
func (h *Handler) EmojiUsers(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	users, err := h.emojis.TopUsers(c.Request.Context(), guildID, c.Param("name"), intQuery(c, "limit", 10))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"emoji": c.Param("name"), "list": users})
}

// UserEmojis 用户常用表情
// @Summary 用户表情
// @Tags 表情
// @Param guild_id path string true "服务器ID"
// @Param user_id path string true "Discord 用户ID"
// @Success 200 {object} response.Response{data=service.UserEmojiStats}
// @Router /api/v1/guilds/{guild_id}/users/{user_id}/emojis [get]
func (h *Handler) UserEmojis(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	out, err := h.emojis.UserFavorites(c.Request.Context(), userID, guildID, intQuery(c, "limit", 10))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, out)
}

// UnusedEmojis 服务器表情清单中从未使用过的
// @Summary 未使用的表情
// @Tags 表情
// @Accept json
// @Param guild_id path string true "服务器ID"
// @Param request body rosterRequest true "服务器当前的自定义表情"
// @Success 200 {object} response.Response
// @Router /api/v1/guilds/{guild_id}/emojis/unused [post]
func (h *Handler) UnusedEmojis(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	unused, err := h.emojis.Unused(c.Request.Context(), guildID, req.Emojis)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"total": len(req.Emojis), "unused": unused})
}

// EmojiReport 表情使用报告
// @Summary 表情报告
// @Tags 表情
// @Accept json
// @Param guild_id path string true "服务器ID"
// @Param request body rosterRequest true "服务器当前的自定义表情"
// @Success 200 {object} response.Response{data=service.EmojiReport}
// @Router /api/v1/guilds/{guild_id}/emojis/report [post]
func (h *Handler) EmojiReport(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.emojis.Report(c.Request.Context(), guildID, req.Emojis)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, r)
}
