package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dokupintar/dokubot-be/service"
	"github.com/dokupintar/dokubot-be/types"
)

type ChatHandler struct {
	aiService service.AIService
}

func NewChatHandler(aiService service.AIService) *ChatHandler {
	return &ChatHandler{
		aiService: aiService,
	}
}

func (h *ChatHandler) HandleChat(c *gin.Context) {
	var chatRequest types.ChatRequest
	if err := c.ShouldBindJSON(&chatRequest); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	response, err := h.aiService.Chat(c.Request.Context(), chatRequest.Messages)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.ChatResponse{
			ChatId:  chatRequest.ChatId,
			Message: response,
		},
	})
}
