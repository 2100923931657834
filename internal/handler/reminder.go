package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"lumio/internal/service"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/response"
)

// ListReminders 列出待投递提醒。带 chat_id 查单个会话，
// 带 due_before（RFC3339）查全局已到期/将到期集合，供排障用。
// GET /v1/reminders?chat_id=xxx 或 ?due_before=2025-03-10T09:00:00Z
func ListReminders(ctx context.Context, c *app.RequestContext) {
	chatID := c.Query("chat_id")
	dueBefore := c.Query("due_before")

	switch {
	case dueBefore != "":
		before, err := time.Parse(time.RFC3339, dueBefore)
		if err != nil {
			response.Error(ctx, c, pkgerrors.InvalidRequest)
			return
		}
		reminders, err := service.Reminder().ListDueBefore(ctx, before)
		if err != nil {
			response.Error(ctx, c, err)
			return
		}
		response.Success(ctx, c, reminders)

	case chatID != "":
		reminders, err := service.Reminder().ListPending(ctx, chatID)
		if err != nil {
			response.Error(ctx, c, err)
			return
		}
		response.Success(ctx, c, reminders)

	default:
		response.Error(ctx, c, pkgerrors.InvalidRequest)
	}
}

// CancelReminder 取消一条提醒
// POST /v1/reminders/:id/cancel
func CancelReminder(ctx context.Context, c *app.RequestContext) {
	publicID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.InvalidRequest)
		return
	}

	reminder, err := service.Reminder().Cancel(ctx, publicID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, reminder)
}
