package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"litqa/internal/app"
	"litqa/internal/transport/http/response"
)

type QAHandler struct {
	qaService *app.QAService
}

type AskRequest struct {
	Question string `json:"question" binding:"required,max=4000"`
}

func NewQAHandler(qaService *app.QAService) *QAHandler {
	return &QAHandler{qaService: qaService}
}

func (h *QAHandler) Ask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "please enter a question")
		return
	}

	result, err := h.qaService.Ask(c.Request.Context(), userID, req.Question)
	if err != nil {
		writeServiceError(c, err, "question answering failed")
		return
	}
	response.OK(c, result)
}

func (h *QAHandler) AskAboutDocument(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "please enter a question")
		return
	}

	result, err := h.qaService.AskAboutDocument(c.Request.Context(), userID, c.Param("name"), req.Question)
	if err != nil {
		writeServiceError(c, err, "question answering failed")
		return
	}
	response.OK(c, result)
}

func (h *QAHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	records, err := h.qaService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "fetch qa history failed")
		return
	}
	response.OK(c, records)
}
