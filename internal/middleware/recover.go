package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"lumio/config"
	"lumio/pkg/errors"
	"lumio/pkg/logger"
	"lumio/pkg/response"
)

// RecoverMiddleware 捕获 handler panic，记录堆栈并返回统一错误响应
func RecoverMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				logger.Logger.Error("[PANIC RECOVERED]",
					zap.String("panic", fmt.Sprintf("%v", err)),
					zap.String("path", string(c.Path())),
					zap.String("method", string(c.Method())),
					zap.String("client_ip", c.ClientIP()),
					zap.ByteString("stack", debug.Stack()),
				)

				def := errors.Definition{
					Code:    "INTERNAL_SERVER_ERROR",
					Message: "服务器内部错误，请稍后重试",
				}
				if !config.Cfg.IsProduction() {
					def.Message = fmt.Sprintf("Internal error: %v", err)
				}
				response.Error(ctx, c, def)
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}
