package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

// Response is the standard API response structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, code int, message string) {
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 error response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, -1, message)
}

// NotFound sends a 404 error response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, -1003, message)
}

// InternalError sends a 500 error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, -1, message)
}

// DomainError maps a domain error to its status and sends it
func DomainError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidTrade):
		BadRequest(c, msg)
	case errors.Is(err, domain.ErrInvalidOperation):
		Error(c, http.StatusConflict, -1004, msg)
	case errors.Is(err, domain.ErrPayloadTooLarge):
		Error(c, http.StatusRequestEntityTooLarge, -1005, msg)
	case errors.Is(err, domain.ErrNotFound):
		NotFound(c, msg)
	case errors.Is(err, domain.ErrWriteFailed):
		Error(c, http.StatusBadGateway, -1006, msg)
	case errors.Is(err, domain.ErrConnectionUnavailable):
		Error(c, http.StatusServiceUnavailable, -1007, msg)
	default:
		InternalError(c, msg)
	}
}
