package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/types"
)

// Success sends a success response
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, types.SuccessResponse[interface{}]{
		StatusCode: statusCode,
		IsSuccess:  true,
		Data:       data,
	})
}

// OK sends a 200 OK response
func OK(c *gin.Context, data interface{}) {
	Success(c, http.StatusOK, data)
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, err error) {
	detail := types.ErrorDetail{
		Timestamp:    time.Now().Format(time.RFC3339),
		Path:         c.Request.URL.Path,
		ErrorMessage: err.Error(),
	}
	if appErr, ok := errors.As(err); ok {
		detail.Code = appErr.Code
		detail.Reason = appErr.Reason
		detail.ErrorMessage = appErr.Message
	}
	c.JSON(statusCode, types.ErrorResponse{
		StatusCode: statusCode,
		IsSuccess:  false,
		Error:      detail,
	})
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, err error) {
	Error(c, http.StatusBadRequest, errors.Wrap(err, errors.ErrInvalidRequest, "invalid request body"))
}

// HandleAppError maps err to its HTTP status and sends it
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := errors.As(err); ok {
		Error(c, errors.HTTPStatusFromCode(appErr.Code), appErr)
		return
	}
	Error(c, http.StatusInternalServerError, err)
}
