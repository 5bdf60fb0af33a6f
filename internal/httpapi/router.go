package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
	"github.com/suPer8Hu/ai-chatbot/internal/common"
	"github.com/suPer8Hu/ai-chatbot/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-chatbot/internal/httpapi/middleware"
)

func NewRouter(svc *chat.Service) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(svc)

	r.GET("/ping", h.Ping)

	chatGroup := r.Group("/chat")
	chatGroup.GET("/sessions", h.ListChatSessions)
	chatGroup.POST("/sessions", h.CreateChatSession)
	chatGroup.DELETE("/sessions/:id", h.DeleteChatSession)
	chatGroup.PUT("/sessions/:id/active", h.SelectChatSession)
	chatGroup.GET("/messages", h.ListChatMessages)
	chatGroup.POST("/messages", h.SendChatMessage)

	r.GET("/audit/completions", h.ListCompletions)
	return r
}
