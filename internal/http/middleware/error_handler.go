package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/logger"
	"github.com/writervault/backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, сложенные хэндлерами в c.Error,
// централизованно. Внутренние ошибки маскируются, наружу уходят только
// коды и сообщения apperror.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if !apperror.IsValidation(err) && !apperror.IsNotFound(err) {
			logger.WithComponent("http").WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("ошибка обработки запроса")
		}

		response.Error(c, err)
	}
}
