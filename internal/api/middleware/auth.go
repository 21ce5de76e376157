package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/pkg/logger"
	"github.com/Lanternko/Discordbot/pkg/response"
	"github.com/Lanternko/Discordbot/pkg/token"
)

// ActorKey 上下文中操作者 ID 的键
const ActorKey = "actor_id"

// AdminAuth 校验 Bearer 令牌，且令牌主体必须在管理员名单中
func AdminAuth(admin config.AdminConfig) gin.HandlerFunc {
	secret := []byte(admin.JWTSecret)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			response.Forbidden(c, "admin api disabled")
			c.Abort()
			return
		}
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := token.Parse(secret, token.TypeAdmin, parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		if !admin.IsAdmin(claims.Subject) {
			logger.Warn("admin api denied", zap.String("actor", claims.Subject), zap.String("path", c.FullPath()))
			response.Forbidden(c, "not an administrator")
			c.Abort()
			return
		}
		c.Set(ActorKey, claims.Subject)
		c.Next()
	}
}

// Actor 返回已认证的操作者 ID
func Actor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
