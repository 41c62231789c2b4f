package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/logger"
	"github.com/Aashay2112/chat-app/pkg/model"
)

// response is the envelope of every JSON reply.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, response{Success: true, Message: message, Data: data})
}

func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// fail renders err with the status of its kind. Dependency failures are
// logged with their cause and reported to the client without it.
func fail(c *gin.Context, err error) {
	kind := model.KindOf(err)
	status := statusFor(kind)
	if kind == model.KindDependency {
		logger.FromContext(c.Request.Context(), nil).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, response{Success: false, Message: model.PublicMessage(err)})
}
