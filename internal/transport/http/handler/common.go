package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"litqa/internal/app"
	"litqa/internal/transport/http/middleware"
	"litqa/internal/transport/http/response"
)

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return userID, ok
}

// writeServiceError maps service sentinels onto the response envelope.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrUnsupportedUpload):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedUpload, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
