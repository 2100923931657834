package timeparse

// 时间短语解析：从自由文本里找出第一个可解释的时间表达，
// 解析结果一律换算成 UTC，原始时区保留在 Result 里供展示。

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"lumio/pkg/errors"
)

// Result 为解析出的时间点
type Result struct {
	At       time.Time      // UTC
	Location *time.Location // 解析时使用的时区
	Matched  string         // 命中的原始短语
	Relative bool           // 是否为相对时长表达
}

var (
	// 相对时长："10分鐘後"、"3小時後"、"半小時後"、"2天後"
	reRelative = regexp.MustCompile(`(\d+|半)\s*(分鐘|分钟|小時|小时|個小時|个小时|秒|分|天|日)(?:之)?[後后]`)

	// ISO 风格绝对时间："2024-01-02 15:04"
	reISO = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ T](\d{1,2}):(\d{2})`)

	// 日词 + 可选时段 + HH:MM："明天 10:30"、"後天下午 3:15"
	reDayClock = regexp.MustCompile(`(今天|明天|後天|后天)\s*(早上|上午|中午|下午|晚上)?\s*(\d{1,2}):(\d{2})`)

	// 可选日词 + 可选时段 + N點[半|M分]："明天早上10點"、"下午3點半"、"7點"
	reHourWord = regexp.MustCompile(`(今天|明天|後天|后天)?\s*(早上|上午|中午|下午|晚上)?\s*(\d{1,2})[點点时時](半|\d{1,2}分?)?`)

	// 裸 HH:MM："18:30"
	reClock = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

	// 日词 + 可选时段，无具体钟点："明天"、"後天下午"
	reDayPeriod = regexp.MustCompile(`(今天|明天|後天|后天)\s*(早上|上午|中午|下午|晚上)?`)
)

type candidate struct {
	start    int
	end      int
	at       time.Time
	relative bool
	order    int
}

// Parse 在 text 中寻找时间短语并以 ref/loc 为基准解析。
// 多个短语并存时取最靠左的一个；同起点时取更长的匹配。
// 找不到任何可解释短语时返回 PARSE_NO_TEMPORAL_PHRASE。
func Parse(text string, ref time.Time, loc *time.Location) (Result, error) {
	if loc == nil {
		loc = time.UTC
	}
	refLocal := ref.In(loc)

	var cands []candidate

	appendCand := func(idx []int, at time.Time, relative bool, order int, ok bool) {
		if !ok || idx == nil {
			return
		}
		cands = append(cands, candidate{start: idx[0], end: idx[1], at: at, relative: relative, order: order})
	}

	if idx := reRelative.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveRelative(text, idx, refLocal)
		appendCand(idx, at, true, 0, ok)
	}

	if idx := reISO.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveISO(text, idx, loc)
		appendCand(idx, at, false, 1, ok)
	}

	if idx := reDayClock.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveDayClock(text, idx, refLocal)
		appendCand(idx, at, false, 2, ok)
	}

	if idx := reHourWord.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveHourWord(text, idx, refLocal)
		appendCand(idx, at, false, 3, ok)
	}

	if idx := reClock.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveClock(text, idx, refLocal)
		appendCand(idx, at, false, 4, ok)
	}

	if idx := reDayPeriod.FindStringSubmatchIndex(text); idx != nil {
		at, ok := resolveDayPeriod(text, idx, refLocal)
		appendCand(idx, at, false, 5, ok)
	}

	if len(cands) == 0 {
		return Result{}, errors.ParseNoTemporalPhrase
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.start < best.start {
			best = c
			continue
		}
		if c.start == best.start {
			if c.end > best.end || (c.end == best.end && c.order < best.order) {
				best = c
			}
		}
	}

	return Result{
		At:       best.at.UTC(),
		Location: loc,
		Matched:  text[best.start:best.end],
		Relative: best.relative,
	}, nil
}

func group(text string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return text[idx[2*n]:idx[2*n+1]]
}

func resolveRelative(text string, idx []int, ref time.Time) (time.Time, bool) {
	numStr := group(text, idx, 1)
	unit := group(text, idx, 2)

	var n float64
	if numStr == "半" {
		n = 0.5
	} else {
		v, err := strconv.Atoi(numStr)
		if err != nil {
			return time.Time{}, false
		}
		n = float64(v)
	}

	var base time.Duration
	switch unit {
	case "秒":
		base = time.Second
	case "分", "分鐘", "分钟":
		base = time.Minute
	case "小時", "小时", "個小時", "个小时":
		base = time.Hour
	case "天", "日":
		base = 24 * time.Hour
	default:
		return time.Time{}, false
	}

	return ref.Add(time.Duration(n * float64(base))), true
}

func resolveISO(text string, idx []int, loc *time.Location) (time.Time, bool) {
	year, _ := strconv.Atoi(group(text, idx, 1))
	month, _ := strconv.Atoi(group(text, idx, 2))
	day, _ := strconv.Atoi(group(text, idx, 3))
	hour, _ := strconv.Atoi(group(text, idx, 4))
	minute, _ := strconv.Atoi(group(text, idx, 5))

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}

func resolveDayClock(text string, idx []int, ref time.Time) (time.Time, bool) {
	dayWord := group(text, idx, 1)
	period := group(text, idx, 2)
	hour, _ := strconv.Atoi(group(text, idx, 3))
	minute, _ := strconv.Atoi(group(text, idx, 4))

	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	hour = applyPeriod(hour, period)

	t := dayAt(ref, dayOffset(dayWord), hour, minute)
	// 明确指定「今天」但钟点已过时，顺延到下一次出现
	if !t.After(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func resolveHourWord(text string, idx []int, ref time.Time) (time.Time, bool) {
	dayWord := group(text, idx, 1)
	period := group(text, idx, 2)
	hour, _ := strconv.Atoi(group(text, idx, 3))
	minuteStr := group(text, idx, 4)

	if hour > 23 {
		return time.Time{}, false
	}

	minute := 0
	if minuteStr == "半" {
		minute = 30
	} else if minuteStr != "" {
		m, err := strconv.Atoi(strings.TrimSuffix(minuteStr, "分"))
		if err != nil || m > 59 {
			return time.Time{}, false
		}
		minute = m
	}

	hour = applyPeriod(hour, period)

	if dayWord == "" {
		// 裸钟点：取下一次出现。无时段修饰且钟点小于 8 时同样按字面
		// 小时处理（今天未过则今天，否则明天），不自动换算成下午。
		t := dayAt(ref, 0, hour, minute)
		if !t.After(ref) {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}

	t := dayAt(ref, dayOffset(dayWord), hour, minute)
	if !t.After(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func resolveClock(text string, idx []int, ref time.Time) (time.Time, bool) {
	hour, _ := strconv.Atoi(group(text, idx, 1))
	minute, _ := strconv.Atoi(group(text, idx, 2))
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := dayAt(ref, 0, hour, minute)
	if !t.After(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func resolveDayPeriod(text string, idx []int, ref time.Time) (time.Time, bool) {
	dayWord := group(text, idx, 1)
	period := group(text, idx, 2)

	// 无钟点时按时段给缺省时间
	hour := 9
	switch period {
	case "早上":
		hour = 9
	case "上午":
		hour = 10
	case "中午":
		hour = 12
	case "下午":
		hour = 15
	case "晚上":
		hour = 20
	}

	t := dayAt(ref, dayOffset(dayWord), hour, 0)
	if !t.After(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

// applyPeriod 将 12 小时制钟点按时段词换算成 24 小时制
func applyPeriod(hour int, period string) int {
	switch period {
	case "下午", "晚上":
		if hour < 12 {
			return hour + 12
		}
	case "中午":
		if hour == 12 || hour < 6 {
			return hour%12 + 12
		}
	case "早上", "上午":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// dayOffset 返回日词相对今天的天数。日界按 ref 所在时区的自然日计算。
func dayOffset(dayWord string) int {
	switch dayWord {
	case "明天":
		return 1
	case "後天", "后天":
		return 2
	default:
		return 0
	}
}

func dayAt(ref time.Time, offset, hour, minute int) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day()+offset, hour, minute, 0, 0, ref.Location())
}
