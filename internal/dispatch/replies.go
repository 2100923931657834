package dispatch

// 回复文案集中在这里，方便对照调整语气

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lumio/config"
	"lumio/internal/collab"
	"lumio/internal/model"
)

const (
	replyDefaultClarify       = "我不太確定你的意思，可以再說清楚一點嗎？"
	replyInternalError        = "我這邊出了點狀況，請稍後再試一次。"
	replyCollabTransient      = "外部服務暫時沒有回應，請稍後再試。"
	replyCollabFatal          = "外部服務拒絕了這個請求，請檢查內容後再試。"
	replyCollabUnavailable    = "這個功能還沒設定好，請先完成相關服務的設定。"
	replyConverseFallback     = "我在呢，想聊點什麼？"
	replyWeatherNeedsLocation = "想查哪裡的天氣呢？"
	replyReminderLimit        = "待提醒的事項太多了，先取消幾個再新增吧。"
	replyReminderNotFound     = "找不到這個提醒。"
	replyReminderNotPending   = "這個提醒已經結束了，不能取消。"
	replyEventNotFound        = "找不到符合的行程。"
	replyTodoNotFound         = "找不到這個待辦事項。"

	replyHelp = `我可以幫你：
/remind <時間> <內容> — 建立提醒
/reminders — 列出待提醒事項
/cancel <ID> — 取消提醒
/spend <金額> <說明> — 記一筆支出
/report — 本月支出報表
/weather <地點> — 查天氣
/stock <代號> — 查股價
/note <內容> — 記筆記
/todo <內容> — 加待辦
/done <編號> — 完成待辦
/add <時間> <標題> — 新增行程
/today — 今天的行程
/week — 本週行程
也可以直接跟我說話，例如「10分鐘後提醒我關火」。`
)

// displayTime 按提醒建立时使用的时区展示，时区失效时退回服务时区
func displayTime(t time.Time, timezone string) string {
	loc := config.Cfg.Location()
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func formatReminderCreated(r *model.Reminder) string {
	return fmt.Sprintf("好的，%s 提醒你：%s（ID: %d）", displayTime(r.DueAt, r.Timezone), r.Message, r.PublicID)
}

func formatReminderList(reminders []*model.Reminder) string {
	if len(reminders) == 0 {
		return "目前沒有待提醒的事項。"
	}

	var sb strings.Builder
	sb.WriteString("待提醒事項：\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "• [%d] %s — %s\n", r.PublicID, displayTime(r.DueAt, r.Timezone), r.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReminderCancelled(r *model.Reminder) string {
	return fmt.Sprintf("已取消提醒：%s", r.Message)
}

func formatExpenseLogged(exp collab.Expense) string {
	if exp.Note != "" {
		return fmt.Sprintf("已記一筆：%s %.0f 元（%s）", exp.Note, exp.Amount, exp.Category)
	}
	return fmt.Sprintf("已記一筆：%.0f 元（%s）", exp.Amount, exp.Category)
}

func formatExpenseReport(report collab.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 支出總計 %.0f 元", report.Month, report.Total)

	cates := make([]string, 0, len(report.ByCate))
	for cate := range report.ByCate {
		cates = append(cates, cate)
	}
	sort.Strings(cates)
	for _, cate := range cates {
		fmt.Fprintf(&sb, "\n• %s：%.0f 元", cate, report.ByCate[cate])
	}
	return sb.String()
}

func formatQuote(q collab.Quote) string {
	return fmt.Sprintf("%s 現價 %.2f（%+.2f，%+.2f%%）", q.Ticker, q.Price, q.Change, q.ChangePercent)
}

func formatSearchHits(hits []collab.SearchHit) string {
	if len(hits) == 0 {
		return "找不到相關結果。"
	}

	var sb strings.Builder
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "• %s\n  %s", h.Title, h.Link)
	}
	return sb.String()
}

func formatEventCreated(ev collab.Event, timezone string) string {
	return fmt.Sprintf("已建立行程：%s（%s）", ev.Summary, displayTime(ev.Start, timezone))
}

func formatEventDeleted(ev collab.Event, timezone string) string {
	return fmt.Sprintf("已刪除行程：%s（%s）", ev.Summary, displayTime(ev.Start, timezone))
}

func formatEventList(events []collab.Event) string {
	if len(events) == 0 {
		return "接下來沒有行程。"
	}

	var sb strings.Builder
	sb.WriteString("近期行程：\n")
	for _, ev := range events {
		fmt.Fprintf(&sb, "• %s — %s\n", displayTime(ev.Start, ""), ev.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatNoteCreated(content string) string {
	return fmt.Sprintf("已記下：%s", content)
}

func formatTodoCreated(content string) string {
	return fmt.Sprintf("已加入待辦：%s", content)
}

func formatTodoCompleted(todo *model.Todo) string {
	return fmt.Sprintf("已完成待辦：%s", todo.Content)
}
