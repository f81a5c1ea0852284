package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dokupintar/dokubot-be/service"
	"github.com/dokupintar/dokubot-be/types"
)

// QueryHandler serves document question answering: the heuristic local
// engine directly, or retrieval context routed through the chat model.
type QueryHandler struct {
	retriever *service.Retriever
	answers   *service.AnswerService
	ai        service.AIService
}

func NewQueryHandler(retriever *service.Retriever, answers *service.AnswerService, ai service.AIService) *QueryHandler {
	return &QueryHandler{
		retriever: retriever,
		answers:   answers,
		ai:        ai,
	}
}

// HandleQuery answers from the index alone, without calling a chat model.
func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Query must not be empty",
		})
		return
	}

	ranked, err := h.retriever.Retrieve(c.Request.Context(), tenantFrom(c), req.Query, req.TopK, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	answer := h.answers.Synthesize(req.Query, ranked)
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   answer,
	})
}

// HandleAskAI retrieves evidence for the question and lets the chat model
// phrase the final answer from it.
func (h *QueryHandler) HandleAskAI(c *gin.Context) {
	var req types.AskAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Question must not be empty",
		})
		return
	}

	ranked, err := h.retriever.Retrieve(c.Request.Context(), tenantFrom(c), req.Question, req.TopK, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	prompt := buildRAGPrompt(req.Question, ranked)
	response, err := h.ai.Chat(c.Request.Context(), []types.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.Answer{
			Answer:  response.Content,
			Sources: service.SourcesForAnswer(ranked),
		},
	})
}

func buildRAGPrompt(question string, ranked []types.Retrieved) string {
	var b strings.Builder
	b.WriteString("Jawab pertanyaan berikut berdasarkan kutipan dokumen di bawah. Jika kutipan tidak memuat jawabannya, katakan bahwa informasinya tidak ditemukan.\n\n")
	b.WriteString("Pertanyaan: ")
	b.WriteString(question)
	b.WriteString("\n\nKutipan dokumen:\n")
	for i, r := range ranked {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, r.Chunk.DocumentID, strings.TrimSpace(r.Chunk.Text))
	}
	return b.String()
}
