package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/interfaces/http/dto"
	"serial-novel-engine/pkg/errors"
	"serial-novel-engine/pkg/logger"
)

// Recovery 捕获处理器 panic，返回统一错误体
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"series_id", c.Param("sid"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.Fail(c, http.StatusInternalServerError, "internal server error",
				&dto.ErrorDetail{ErrorCode: string(errors.CodeInternalError)})
		}()

		c.Next()
	}
}
