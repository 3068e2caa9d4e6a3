package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/executive/internal/api/http/types"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// ErrorHandler 错误处理中间件
//
// 处理器通过 c.Error 登记错误，本中间件统一写出 ErrorResponse。
// 非 *APIError 的错误一律按 500 处理。
func ErrorHandler(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *apitypes.APIError
		if !errors.As(err, &apiErr) {
			if logger != nil {
				logger.Errorf("处理器返回未分类错误: path=%s err=%v", c.Request.URL.Path, err)
			}
			apiErr = apitypes.NewAPIError(http.StatusInternalServerError, apitypes.ErrInternal, err)
		}
		if apiErr.Status >= http.StatusInternalServerError && logger != nil {
			logger.Errorf("HTTP 错误: code=%s path=%s err=%v", apiErr.Code, c.Request.URL.Path, apiErr)
		}

		resp := apitypes.NewErrorResponse(apiErr.Code, apiErr.Message, apiErr.Details).
			WithRequestID(GetRequestID(c))
		c.AbortWithStatusJSON(apiErr.Status, resp)
	}
}

// WriteError 登记错误并中止后续处理器
func WriteError(c *gin.Context, err *apitypes.APIError) {
	_ = c.Error(err)
	c.Abort()
}
