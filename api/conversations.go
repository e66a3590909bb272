package api

import (
	"log/slog"
	"net/http"

	"github.com/ParkPal-co/parking-app-sub000/internal/service/conversation"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	conversations conversation.ConversationUseCase
	log           *slog.Logger
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

func NewConversationHandler(conversations conversation.ConversationUseCase, log *slog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, log: log}
}

func (h *ConversationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/stream", h.streamConversations)
	router.GET("/:id", h.get)
	router.GET("/:id/messages", h.listMessages)
	router.POST("/:id/messages", h.sendMessage)
	router.POST("/:id/read", h.markRead)
	router.GET("/:id/stream", h.streamMessages)
}

func (h *ConversationHandler) list(c *gin.Context) {
	convs, err := h.conversations.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *ConversationHandler) get(c *gin.Context) {
	conv, err := h.conversations.GetConversation(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) listMessages(c *gin.Context) {
	msgs, err := h.conversations.ListMessages(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ConversationHandler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	msg, err := h.conversations.SendMessage(c.Request.Context(), conversation.SendMessageInput{
		ConversationID: c.Param("id"),
		SenderID:       currentUser(c),
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) markRead(c *gin.Context) {
	if err := h.conversations.MarkConversationAsRead(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
