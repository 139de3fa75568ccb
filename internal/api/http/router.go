package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(sessionController *SessionController, roomController *RoomController, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if sessionController != nil {
		api.GET("/ws", sessionController.ServeWS)
	}

	if roomController != nil {
		rooms := api.Group("/rooms")
		rooms.GET("", roomController.ListRooms)
		rooms.GET("/:roomKey", roomController.GetRoom)
		api.GET("/webrtc/config", roomController.WebRTCConfig)
	}

	return router
}
