package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"lumio/internal/handler"
	"lumio/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.AccessLogMiddleware())

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// 入站消息 webhook
	webhook := v1.Group("/webhook")
	{
		webhook.POST("/messages", handler.HandleMessage)
	}

	// 提醒管理接口
	reminders := v1.Group("/reminders")
	{
		reminders.GET("", handler.ListReminders)
		reminders.POST("/:id/cancel", handler.CancelReminder)
	}
}
