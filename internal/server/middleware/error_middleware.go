package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns the last error attached with c.Error into the JSON
// envelope. Anything that is not an AppError is logged and reported as a
// generic 500 so internal detail never reaches the client.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Err != nil {
				log.Warn("request failed", "error", appErr.Err, "request_id", response.RequestID(c))
			}
			response.Error(c, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		log.Error("internal server error", "error", err, "request_id", response.RequestID(c))
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}

// Recovery logs a panic and answers 500 in the same envelope.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", "panic", recovered, "request_id", response.RequestID(c))
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
		c.Abort()
	})
}
