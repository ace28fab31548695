// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trackmeet/api/controller"
	"github.com/trackmeet/api/middleware"
	"github.com/trackmeet/api/ws"
)

func SetupRouter(
	participantController *controller.ParticipantController,
	eventSocket *ws.Server,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if rateLimitRequests > 0 {
		router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	}

	api := router.Group("/api/v1")
	participantController.RegisterRoutes(api)

	router.GET("/ws", gin.WrapH(eventSocket.Handler()))

	return router
}
