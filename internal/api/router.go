package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/api/handler"
	"github.com/Lanternko/Discordbot/internal/api/middleware"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.GinZap(), middleware.Sentry())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if cfg.Telemetry.Enabled {
		v1.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	v1.Use(
		middleware.Prometheus(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute).Middleware(),
	)
	{
		v1.GET("/users/:user_id/profile", h.Profile)
		v1.GET("/leaderboard", h.Leaderboard)

		guild := v1.Group("/guilds/:guild_id")
		guild.GET("/overview", h.GuildOverview)
		guild.GET("/users/:user_id/stats", h.UserStats)
		guild.GET("/users/:user_id/emojis", h.UserEmojis)
		guild.GET("/emojis", h.GuildEmojis)
		guild.GET("/emojis/leaderboard", h.EmojiLeaderboard)
		guild.GET("/emojis/trends", h.EmojiTrends)
		guild.GET("/emojis/:name/users", h.EmojiUsers)
		guild.POST("/emojis/unused", h.UnusedEmojis)
		guild.POST("/emojis/report", h.EmojiReport)

		admin := v1.Group("/admin", middleware.AdminAuth(cfg.Admin))
		admin.POST("/guilds/:guild_id/reset", h.ResetGuild)
		admin.POST("/users/:user_id/points", h.AdjustPoints)
		admin.POST("/users/:user_id/coins/spend", h.SpendCoins)
		admin.POST("/users/:user_id/reset", h.ResetUser)
	}
	return r
}
