package routes

import (
	"wordparty/controllers"
	"wordparty/middleware"
	"wordparty/services/content"
	"wordparty/services/game"
	"wordparty/services/game/variants"
	"wordparty/services/redis"
	appsync "wordparty/sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, redisClient *redis.RedisClient) {
	supply := content.NewSupply(db)
	syncManager := appsync.NewSyncManager(db)
	service := game.NewGameService(
		redisClient,
		supply,
		supply,
		variants.DefaultRegistry(),
		appsync.NewSessionLocks(),
		syncManager,
	)
	sessionController := &controllers.SessionController{Service: service}

	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	api.GET("/games", controllers.ListGames(db))
	api.GET("/games/:game_id", controllers.GetGameInfo(db))

	sessions := api.Group("/sessions")
	sessions.Use(middleware.RequireIdentity)
	{
		sessions.GET("", sessionController.ListPublicSessions)
		sessions.POST("", sessionController.CreateSession)
		sessions.POST("/join/:code", sessionController.JoinSession)
		sessions.GET("/:session_id", sessionController.GetPlayerView)
		sessions.POST("/:session_id/leave", sessionController.LeaveSession)
		sessions.POST("/:session_id/ready", sessionController.ToggleReady)
		sessions.POST("/:session_id/start", sessionController.StartSession)
		sessions.POST("/:session_id/actions", sessionController.SubmitAction)
	}
}
