package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
	"github.com/suPer8Hu/ai-chatbot/internal/common"
)

type Handler struct {
	ChatSvc *chat.Service
}

func NewHandler(svc *chat.Service) *Handler {
	return &Handler{ChatSvc: svc}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
