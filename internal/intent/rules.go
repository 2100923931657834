package intent

// 自由文本的意图规则表。规则按表内顺序评估、逐条累分，
// 保证同一输入的分类结果是确定性的，方便加规则与写测试。

import (
	"regexp"

	"lumio/internal/model"
)

// rule 单条关键词规则
type rule struct {
	intent  model.IntentType
	pattern *regexp.Regexp
	weight  int
}

var freeformRules = []rule{
	// 提醒
	{model.IntentReminderCreate, regexp.MustCompile(`提醒我?`), 3},
	{model.IntentReminderCreate, regexp.MustCompile(`叫我`), 2},
	{model.IntentReminderCreate, regexp.MustCompile(`記得|记得`), 1},
	{model.IntentReminderList, regexp.MustCompile(`(有哪些|列出|查看).{0,4}提醒`), 4},

	// 行事历
	{model.IntentCalendarCreate, regexp.MustCompile(`新增行程|加行程|排行程`), 4},
	{model.IntentCalendarCreate, regexp.MustCompile(`安排`), 2},
	{model.IntentCalendarCreate, regexp.MustCompile(`開會|开会`), 2},
	{model.IntentCalendarDelete, regexp.MustCompile(`(取消|刪除|删除).{0,6}(行程|會議|会议|開會|开会)`), 4},
	{model.IntentCalendarQuery, regexp.MustCompile(`(今天|明天|本週|本周|一週|一周|這週|这周).{0,4}(行程|有什麼事|有什么事)`), 4},
	{model.IntentCalendarQuery, regexp.MustCompile(`行程`), 2},

	// 记帐
	{model.IntentExpenseLog, regexp.MustCompile(`記帳|记账`), 3},
	{model.IntentExpenseLog, regexp.MustCompile(`花了|花費|花费`), 2},
	{model.IntentExpenseReport, regexp.MustCompile(`(支出|消費|消费|本月).{0,4}(報表|报表|統計|统计)`), 4},
	{model.IntentExpenseReport, regexp.MustCompile(`報表|报表`), 3},

	// 天气 / 股票
	{model.IntentWeatherQuery, regexp.MustCompile(`天氣|天气`), 3},
	{model.IntentWeatherQuery, regexp.MustCompile(`氣溫|气温|下雨`), 2},
	{model.IntentStockQuery, regexp.MustCompile(`股價|股价`), 3},
	{model.IntentStockQuery, regexp.MustCompile(`股票`), 2},

	// 搜索
	{model.IntentSearchQuery, regexp.MustCompile(`搜尋|搜索`), 3},
	{model.IntentSearchQuery, regexp.MustCompile(`查一下`), 2},

	// 笔记 / 待办
	{model.IntentNoteCreate, regexp.MustCompile(`筆記|笔记`), 3},
	{model.IntentNoteCreate, regexp.MustCompile(`記下|记下`), 2},
	{model.IntentTodoComplete, regexp.MustCompile(`(完成|做完).{0,4}(待辦|待办)`), 5},
	{model.IntentTodoCreate, regexp.MustCompile(`待辦|待办`), 3},
	{model.IntentTodoCreate, regexp.MustCompile(`要做`), 1},
}

var (
	reAmount = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:元|塊|块)?`)
	reTicker = regexp.MustCompile(`\b([A-Za-z]{1,5}(?:\.[A-Za-z]{1,2})?)\b|(\d{4,6})`)

	// 「台北天氣」「東京的天氣」取天气关键词前面的地名片段
	reWeatherLoc = regexp.MustCompile(`([\p{Han}A-Za-z]{2,8}?)的?(?:天氣|天气)`)

	reDigits = regexp.MustCompile(`\d+`)
)
