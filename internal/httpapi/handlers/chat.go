package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatbot/internal/audit"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
	"github.com/suPer8Hu/ai-chatbot/internal/common"
	"github.com/suPer8Hu/ai-chatbot/internal/observability"
)

func sessionIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid session id")
		return 0, false
	}
	return id, true
}

// failStore maps store rejections onto the envelope.
func failStore(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		common.Fail(c, http.StatusBadRequest, 10002, "message is empty")
	case errors.Is(err, chat.ErrSendInFlight):
		common.Fail(c, http.StatusConflict, 40901, "a message is already being sent")
	case errors.Is(err, chat.ErrNoActiveSession):
		common.Fail(c, http.StatusNotFound, 40402, "no active session")
	case errors.Is(err, chat.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 40401, "session not found")
	default:
		observability.LoggerFromContext(c.Request.Context()).Error("unexpected store error", "error", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func sessionsPayload(svc *chat.Service) gin.H {
	store := svc.Store()
	var activeID *uint64
	if active, ok := store.Active(); ok {
		activeID = &active.ID
	}
	return gin.H{
		"sessions":  store.Sessions(),
		"active_id": activeID,
	}
}

func (h *Handler) ListChatSessions(c *gin.Context) {
	common.OK(c, sessionsPayload(h.ChatSvc))
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	sess := h.ChatSvc.CreateSession(c.Request.Context())
	msgs, _ := h.ChatSvc.Store().SessionMessages(sess.ID)
	common.OK(c, gin.H{
		"session":  sess,
		"messages": msgs,
	})
}

// DeleteChatSession succeeds for unknown ids too.
func (h *Handler) DeleteChatSession(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	h.ChatSvc.DeleteSession(c.Request.Context(), id)
	common.OK(c, sessionsPayload(h.ChatSvc))
}

func (h *Handler) SelectChatSession(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if err := h.ChatSvc.SelectSession(c.Request.Context(), id); err != nil {
		failStore(c, err)
		return
	}
	msgs, _ := h.ChatSvc.Store().SessionMessages(id)
	common.OK(c, gin.H{
		"active_id": id,
		"messages":  msgs,
	})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	store := h.ChatSvc.Store()
	msgs, err := store.Messages()
	if err != nil {
		failStore(c, err)
		return
	}
	active, _ := store.Active()
	common.OK(c, gin.H{
		"session_id": active.ID,
		"messages":   msgs,
		"sending":    store.Sending(),
	})
}

type sendMessageReq struct {
	Message string `json:"message"`
}

// SendChatMessage answers 200 even when the completion failed: the reply is
// then the fallback text and "failed" is true.
func (h *Handler) SendChatMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.ChatSvc.Send(c.Request.Context(), req.Message)
	if err != nil {
		failStore(c, err)
		return
	}

	data := gin.H{
		"session_id":    res.SessionID,
		"user_message":  res.User,
		"reply_message": nil,
		"failed":        res.Failed,
	}
	if !res.Dropped {
		data["reply_message"] = res.Reply
	}
	common.OK(c, data)
}

func (h *Handler) ListCompletions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	recs, err := h.ChatSvc.RecentCompletions(c.Request.Context(), limit)
	if errors.Is(err, audit.ErrRecentUnsupported) {
		common.Fail(c, http.StatusNotImplemented, 50101, "audit driver cannot list completions")
		return
	}
	if err != nil {
		observability.LoggerFromContext(c.Request.Context()).Error("list completions failed", "error", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list completions")
		return
	}
	common.OK(c, gin.H{"completions": recs})
}
