package intent

import (
	"strconv"
	"strings"
	"time"

	"lumio/internal/model"
	"lumio/internal/timeparse"
)

// Classifier 把一条消息映射成结构化意图。纯函数：除输入文本、
// 会话上下文和基准时钟外不依赖任何状态，也没有副作用。
type Classifier struct {
	Location        *time.Location // 时间短语解析时区
	MinScore        int            // 自由文本最低置信分数，低于则回退闲聊
	DefaultLocation string         // 天气缺省地点（会话未设置时）
}

func NewClassifier(loc *time.Location, minScore int, defaultLocation string) *Classifier {
	if minScore <= 0 {
		minScore = 2
	}
	return &Classifier{Location: loc, MinScore: minScore, DefaultLocation: defaultLocation}
}

// Classify 解析一条消息。显式指令按前缀表确定性映射，
// 自由文本按规则表打分，分数不足回退 converse。
func (c *Classifier) Classify(utt model.Utterance, sess *model.Session) model.Intent {
	text := strings.TrimSpace(utt.Text)
	ref := utt.ReceivedAt
	if ref.IsZero() {
		ref = time.Now()
	}

	if cmd, args, ok := splitCommand(text, utt.Command); ok {
		return c.classifyCommand(cmd, args, ref, sess)
	}

	return c.classifyFreeform(text, ref, sess)
}

// splitCommand 拆出斜杠指令名与其后的参数文本
func splitCommand(text, explicit string) (cmd, args string, ok bool) {
	if explicit != "" {
		rest := text
		if strings.HasPrefix(rest, "/") {
			parts := strings.SplitN(rest, " ", 2)
			if len(parts) == 2 {
				rest = parts[1]
			} else {
				rest = ""
			}
		}
		return strings.ToLower(explicit), strings.TrimSpace(rest), true
	}

	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(text, "/"), " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return cmd, args, cmd != ""
}

func (c *Classifier) classifyCommand(cmd, args string, ref time.Time, sess *model.Session) model.Intent {
	switch cmd {
	case "start", "help":
		return model.Intent{Type: model.IntentHelp, RawText: args}

	case "add":
		return c.timeBearing(model.IntentCalendarCreate, args, ref, "請告訴我行程的時間，例如：/add 明天早上10點 開會")

	case "update":
		in := c.timeBearing(model.IntentCalendarUpdate, args, ref, "要改成什麼時間呢？例如：/update 開會 明天下午3點")
		if in.NeedsClarification {
			return in
		}
		if in.Message == "" {
			return clarify(model.IntentCalendarUpdate, "要修改哪個行程呢？")
		}
		// 时间之外的文本既是匹配旧行程的关键词，也是新行程的标题
		in.Query = in.Message
		return in

	case "delete":
		if args == "" {
			return clarify(model.IntentCalendarDelete, "要刪除哪個行程呢？")
		}
		return model.Intent{Type: model.IntentCalendarDelete, Query: args, RawText: args}

	case "today":
		return model.Intent{Type: model.IntentCalendarQuery, RangeDays: 1}

	case "week":
		return model.Intent{Type: model.IntentCalendarQuery, RangeDays: 7}

	case "spend":
		return c.parseExpense(args)

	case "report":
		return model.Intent{Type: model.IntentExpenseReport}

	case "stock":
		if args == "" {
			return clarify(model.IntentStockQuery, "請輸入股票代號，例如：/stock AAPL")
		}
		return model.Intent{Type: model.IntentStockQuery, Ticker: strings.ToUpper(args)}

	case "weather":
		loc := args
		if loc == "" {
			loc = c.weatherLocation(sess)
		}
		if loc == "" {
			return clarify(model.IntentWeatherQuery, "想查哪裡的天氣呢？")
		}
		return model.Intent{Type: model.IntentWeatherQuery, Location: loc}

	case "s", "search":
		if args == "" {
			return clarify(model.IntentSearchQuery, "想搜尋什麼呢？")
		}
		return model.Intent{Type: model.IntentSearchQuery, Query: args}

	case "remind":
		return c.timeBearing(model.IntentReminderCreate, args, ref, "什麼時候提醒你呢？例如：/remind 10分鐘後 關火")

	case "reminders":
		return model.Intent{Type: model.IntentReminderList}

	case "cancel":
		id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
		if err != nil {
			return clarify(model.IntentReminderCancel, "請給我要取消的提醒編號，例如：/cancel 123")
		}
		return model.Intent{Type: model.IntentReminderCancel, ReminderID: id}

	case "note":
		if args == "" {
			return clarify(model.IntentNoteCreate, "要記下什麼呢？")
		}
		return model.Intent{Type: model.IntentNoteCreate, Message: args}

	case "todo":
		if args == "" {
			return clarify(model.IntentTodoCreate, "要加入什麼待辦呢？")
		}
		return model.Intent{Type: model.IntentTodoCreate, Message: args}

	case "done":
		id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
		if err != nil {
			return clarify(model.IntentTodoComplete, "請給我完成的待辦編號，例如：/done 3")
		}
		return model.Intent{Type: model.IntentTodoComplete, TodoID: id}
	}

	// 未知指令走闲聊兜底
	return model.Intent{Type: model.IntentConverse, RawText: "/" + cmd + " " + args}
}

// timeBearing 构造需要时间参数的意图；时间解析失败时降级为澄清，
// 绝不偷偷补一个默认时间。
func (c *Classifier) timeBearing(typ model.IntentType, args string, ref time.Time, prompt string) model.Intent {
	if args == "" {
		return clarify(typ, prompt)
	}

	res, err := timeparse.Parse(args, ref, c.Location)
	if err != nil {
		return clarify(typ, prompt)
	}

	message := strings.TrimSpace(strings.Replace(args, res.Matched, "", 1))
	if message == "" && typ == model.IntentReminderCreate {
		return clarify(typ, "要提醒你什麼事呢？")
	}

	at := res.At
	return model.Intent{
		Type:     typ,
		DueAt:    &at,
		Timezone: res.Location.String(),
		Message:  message,
		RawText:  args,
	}
}

// parseExpense 解析 /spend <金額> <備註...>，類別未指定時記為未分類
func (c *Classifier) parseExpense(args string) model.Intent {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return clarify(model.IntentExpenseLog, "格式：/spend 150 午餐")
	}

	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || amount <= 0 {
		return clarify(model.IntentExpenseLog, "金額要放最前面喔，例如：/spend 150 午餐")
	}

	// 備註可省略，類別一律記未分類，不拿別的字眼充數
	note := strings.Join(fields[1:], " ")

	return model.Intent{
		Type:     model.IntentExpenseLog,
		Amount:   amount,
		Category: "未分類",
		Note:     note,
	}
}

func (c *Classifier) classifyFreeform(text string, ref time.Time, sess *model.Session) model.Intent {
	scores := make(map[model.IntentType]int)
	for _, r := range freeformRules {
		if r.pattern.MatchString(text) {
			scores[r.intent] += r.weight
		}
	}

	// 金额在场给记帐加分；可解析时间给提醒加分
	hasAmount := reAmount.MatchString(text) && reDigits.MatchString(text)
	if scores[model.IntentExpenseLog] > 0 && hasAmount {
		scores[model.IntentExpenseLog] += 2
	}
	timeRes, timeErr := timeparse.Parse(text, ref, c.Location)
	if scores[model.IntentReminderCreate] > 0 && timeErr == nil {
		scores[model.IntentReminderCreate] += 2
	}

	best := model.IntentConverse
	bestScore := 0
	tie := false
	for _, r := range freeformRules {
		s := scores[r.intent]
		if s > bestScore {
			best, bestScore, tie = r.intent, s, false
		} else if s == bestScore && s > 0 && r.intent != best {
			tie = true
		}
	}

	if bestScore < c.MinScore || tie {
		return model.Intent{Type: model.IntentConverse, RawText: text}
	}

	switch best {
	case model.IntentReminderCreate:
		if timeErr != nil {
			return clarify(model.IntentReminderCreate, "什麼時候提醒你呢？可以說「10分鐘後」或「明天早上10點」")
		}
		message := strings.TrimSpace(cleanReminderText(strings.Replace(text, timeRes.Matched, "", 1)))
		if message == "" {
			return clarify(model.IntentReminderCreate, "要提醒你什麼事呢？")
		}
		at := timeRes.At
		return model.Intent{Type: model.IntentReminderCreate, DueAt: &at, Timezone: timeRes.Location.String(), Message: message, RawText: text}

	case model.IntentCalendarCreate:
		if timeErr != nil {
			return clarify(model.IntentCalendarCreate, "行程的時間是什麼時候呢？")
		}
		summary := strings.TrimSpace(strings.Replace(text, timeRes.Matched, "", 1))
		at := timeRes.At
		return model.Intent{Type: model.IntentCalendarCreate, DueAt: &at, Timezone: timeRes.Location.String(), Message: summary, RawText: text}

	case model.IntentCalendarDelete:
		return model.Intent{Type: model.IntentCalendarDelete, Query: stripWords(text, "取消", "刪除", "删除"), RawText: text}

	case model.IntentCalendarQuery:
		days := 1
		if strings.ContainsAny(text, "週周") || strings.Contains(text, "7") || strings.Contains(text, "七") {
			days = 7
		}
		return model.Intent{Type: model.IntentCalendarQuery, RangeDays: days}

	case model.IntentExpenseLog:
		m := reAmount.FindStringSubmatch(text)
		if m == nil {
			return clarify(model.IntentExpenseLog, "花了多少錢呢？例如：記帳 150 午餐")
		}
		amount, _ := strconv.ParseFloat(m[1], 64)
		note := strings.TrimSpace(stripWords(strings.Replace(text, m[0], "", 1), "記帳", "记账", "花了", "花費", "花费", "元", "塊", "块"))
		return model.Intent{Type: model.IntentExpenseLog, Amount: amount, Category: "未分類", Note: note, RawText: text}

	case model.IntentExpenseReport:
		return model.Intent{Type: model.IntentExpenseReport}

	case model.IntentWeatherQuery:
		loc := extractWeatherLocation(text)
		if loc == "" {
			loc = c.weatherLocation(sess)
		}
		if loc == "" {
			return clarify(model.IntentWeatherQuery, "想查哪裡的天氣呢？")
		}
		return model.Intent{Type: model.IntentWeatherQuery, Location: loc}

	case model.IntentStockQuery:
		ticker := extractTicker(text)
		if ticker == "" {
			return clarify(model.IntentStockQuery, "想查哪支股票呢？給我代號就好，例如 AAPL 或 2330")
		}
		return model.Intent{Type: model.IntentStockQuery, Ticker: ticker}

	case model.IntentSearchQuery:
		terms := strings.TrimSpace(stripWords(text, "搜尋", "搜索", "查一下", "幫我", "帮我"))
		if terms == "" {
			return clarify(model.IntentSearchQuery, "想搜尋什麼呢？")
		}
		return model.Intent{Type: model.IntentSearchQuery, Query: terms}

	case model.IntentNoteCreate:
		content := strings.TrimSpace(stripWords(text, "筆記", "笔记", "記下", "记下", "幫我", "帮我"))
		if content == "" {
			return clarify(model.IntentNoteCreate, "要記下什麼呢？")
		}
		return model.Intent{Type: model.IntentNoteCreate, Message: content}

	case model.IntentTodoCreate:
		content := strings.TrimSpace(stripWords(text, "待辦", "待办", "加入", "新增"))
		if content == "" {
			return clarify(model.IntentTodoCreate, "要加入什麼待辦呢？")
		}
		return model.Intent{Type: model.IntentTodoCreate, Message: content}

	case model.IntentTodoComplete:
		m := reDigits.FindString(text)
		if m == "" {
			return clarify(model.IntentTodoComplete, "完成的是哪一項待辦呢？給我編號就好")
		}
		id, _ := strconv.ParseInt(m, 10, 64)
		return model.Intent{Type: model.IntentTodoComplete, TodoID: id}

	case model.IntentReminderList:
		return model.Intent{Type: model.IntentReminderList}
	}

	return model.Intent{Type: model.IntentConverse, RawText: text}
}

func (c *Classifier) weatherLocation(sess *model.Session) string {
	if sess != nil && sess.DefaultLocation != "" {
		return sess.DefaultLocation
	}
	return c.DefaultLocation
}

func clarify(typ model.IntentType, prompt string) model.Intent {
	return model.Intent{Type: typ, NeedsClarification: true, ClarifyPrompt: prompt}
}

func stripWords(text string, words ...string) string {
	for _, w := range words {
		text = strings.ReplaceAll(text, w, "")
	}
	return strings.TrimSpace(text)
}

func cleanReminderText(text string) string {
	return stripWords(text, "提醒我", "提醒", "叫我", "記得", "记得")
}

// extractWeatherLocation 取天气关键词前紧邻的地名，时间词不算地名
var weatherStopwords = map[string]bool{
	"今天": true, "明天": true, "後天": true, "后天": true,
	"現在": true, "现在": true, "目前": true, "等等": true,
}

func extractWeatherLocation(text string) string {
	m := reWeatherLoc.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	if weatherStopwords[loc] {
		return ""
	}
	return loc
}

func extractTicker(text string) string {
	for _, m := range reTicker.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			return strings.ToUpper(m[1])
		}
		if m[2] != "" {
			return m[2]
		}
	}
	return ""
}
