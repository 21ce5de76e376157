package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Lanternko/Discordbot/internal/api/middleware"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/response"
)

type resetRequest struct {
	Scope   string `json:"scope" binding:"required"`
	Confirm string `json:"confirm"`
}

type adjustRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"max=200"`
}

type spendRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// ResetGuild 清除服务器统计数据
// @Summary 重置服务器数据
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Param guild_id path string true "服务器ID"
// @Param request body resetRequest true "范围 emoji | all，confirm 须为 CONFIRM"
// @Success 200 {object} response.Response{data=service.ResetResult}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/guilds/{guild_id}/reset [post]
func (h *Handler) ResetGuild(c *gin.Context) {
	guildID, ok := snowflakeParam(c, "guild_id")
	if !ok {
		return
	}
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.admin.Reset(c.Request.Context(), service.ResetRequest{
		GuildID: guildID,
		ActorID: middleware.Actor(c),
		Scope:   req.Scope,
		Confirm: req.Confirm,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// AdjustPoints 管理员加减积分
// @Summary 调整积分
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Param user_id path string true "Discord 用户ID"
// @Param request body adjustRequest true "积分变化"
// @Success 200 {object} response.Response{data=service.AwardResult}
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/users/{user_id}/points [post]
func (h *Handler) AdjustPoints(c *gin.Context) {
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.points.AdminAdjust(c.Request.Context(), userID, req.Delta, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// SpendCoins 扣除金币
// @Summary 消费金币
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Param user_id path string true "Discord 用户ID"
// @Param request body spendRequest true "金额"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/users/{user_id}/coins/spend [post]
func (h *Handler) SpendCoins(c *gin.Context) {
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	var req spendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.points.Spend(c.Request.Context(), userID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": u.DiscordID, "coins": u.Coins})
}

// ResetUser 积分清零
// @Summary 重置用户积分
// @Tags 管理
// @Security BearerAuth
// @Param user_id path string true "Discord 用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/users/{user_id}/reset [post]
func (h *Handler) ResetUser(c *gin.Context) {
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	u, err := h.points.ResetUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, u)
}
