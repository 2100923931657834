package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lumio/config"
	"lumio/internal/cache"
	"lumio/internal/collab"
	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
)

// ReminderStore 分发器需要的提醒操作子集
type ReminderStore interface {
	Create(ctx context.Context, chatID, message string, dueAt time.Time, timezone string) (*model.Reminder, error)
	ListPending(ctx context.Context, chatID string) ([]*model.Reminder, error)
	Cancel(ctx context.Context, publicID int64) (*model.Reminder, error)
}

// NoteStore 分发器需要的笔记/待办操作子集
type NoteStore interface {
	CreateNote(ctx context.Context, chatID, content string) (*model.Note, error)
	CreateTodo(ctx context.Context, chatID, content string) (*model.Todo, error)
	CompleteTodo(ctx context.Context, chatID string, ordinal int) (*model.Todo, error)
}

// Dispatcher 把结构化意图路由到唯一的一个协作方或存储操作。
// 所有错误都在这里吸收成可回复文案，绝不向上抛 panic 或裸错误。
type Dispatcher struct {
	Transport collab.Transport

	Calendar collab.Calendar
	Ledger   collab.Ledger
	Weather  collab.Weather
	Stock    collab.Stock
	Search   collab.Search
	Persona  collab.Persona

	Reminders ReminderStore
	Notes     NoteStore

	// 新提醒落库后的调度器通知，失败不影响结果
	Nudge func(ctx context.Context, publicID int64) error

	RetryAttempts int
	RetryBackoff  time.Duration
}

// New 按配置组装全量分发器
func New(reminders ReminderStore, notes NoteStore) *Dispatcher {
	cfg := config.Cfg
	return &Dispatcher{
		Transport:     collab.NewHTTPTransport(),
		Calendar:      collab.NewHTTPCalendar(),
		Ledger:        collab.NewHTTPLedger(),
		Weather:       collab.NewHTTPWeather(),
		Stock:         collab.NewHTTPStock(),
		Search:        collab.NewHTTPSearch(),
		Persona:       collab.NewHTTPPersona(),
		Reminders:     reminders,
		Notes:         notes,
		Nudge:         cache.NudgeScheduler,
		RetryAttempts: cfg.CollabRetryAttempts,
		RetryBackoff:  cfg.CollabRetryBackoff,
	}
}

// Dispatch 执行一个意图并返回可直接回给用户的结果。
// 澄清意图不触发任何副作用。
func (d *Dispatcher) Dispatch(ctx context.Context, utt model.Utterance, intent model.Intent, sess *model.Session) (result model.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error("Dispatch panicked",
				zap.String("chat_id", utt.ChatID),
				zap.String("intent", string(intent.Type)),
				zap.Any("panic", r),
			)
			result = failure(pkgerrors.InvalidRequest, replyInternalError)
		}
	}()

	if intent.NeedsClarification {
		prompt := intent.ClarifyPrompt
		if prompt == "" {
			prompt = replyDefaultClarify
		}
		return model.ActionResult{Text: prompt, Code: pkgerrors.NeedsClarification.Code}
	}

	sess.LastIntent = string(intent.Type)

	switch intent.Type {
	case model.IntentReminderCreate:
		return d.createReminder(ctx, utt, intent)
	case model.IntentReminderList:
		return d.listReminders(ctx, utt)
	case model.IntentReminderCancel:
		return d.cancelReminder(ctx, intent)
	case model.IntentExpenseLog:
		return d.logExpense(ctx, intent)
	case model.IntentExpenseReport:
		return d.expenseReport(ctx)
	case model.IntentWeatherQuery:
		return d.weather(ctx, intent, sess)
	case model.IntentStockQuery:
		return d.stock(ctx, intent)
	case model.IntentSearchQuery:
		return d.search(ctx, intent)
	case model.IntentCalendarCreate:
		return d.calendarCreate(ctx, intent)
	case model.IntentCalendarUpdate:
		return d.calendarUpdate(ctx, intent)
	case model.IntentCalendarDelete:
		return d.calendarDelete(ctx, intent)
	case model.IntentCalendarQuery:
		return d.calendarQuery(ctx, intent)
	case model.IntentNoteCreate:
		return d.createNote(ctx, utt, intent)
	case model.IntentTodoCreate:
		return d.createTodo(ctx, utt, intent)
	case model.IntentTodoComplete:
		return d.completeTodo(ctx, utt, intent)
	case model.IntentHelp:
		return model.ActionResult{Text: replyHelp}
	case model.IntentConverse:
		return d.converse(ctx, utt, sess)
	default:
		return model.ActionResult{Text: replyDefaultClarify, Code: pkgerrors.NeedsClarification.Code}
	}
}

// withRetry 只对临时故障重试，致命错误直接返回
func (d *Dispatcher) withRetry(ctx context.Context, op func() error) error {
	attempts := d.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !pkgerrors.IsTransient(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(d.RetryBackoff):
			}
		}
	}
	return err
}

func (d *Dispatcher) createReminder(ctx context.Context, utt model.Utterance, intent model.Intent) model.ActionResult {
	if intent.DueAt == nil {
		return model.ActionResult{Text: replyDefaultClarify, Code: pkgerrors.NeedsClarification.Code}
	}

	reminder, err := d.Reminders.Create(ctx, utt.ChatID, intent.Message, *intent.DueAt, intent.Timezone)
	if err != nil {
		if err == pkgerrors.ReminderLimitReached {
			return failure(pkgerrors.ReminderLimitReached, replyReminderLimit)
		}
		logger.Logger.Error("Failed to create reminder", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}

	if d.Nudge != nil {
		if err := d.Nudge(ctx, reminder.PublicID); err != nil {
			logger.Logger.Warn("Failed to nudge scheduler",
				zap.Int64("public_id", reminder.PublicID),
				zap.Error(err),
			)
		}
	}

	return model.ActionResult{Text: formatReminderCreated(reminder)}
}

func (d *Dispatcher) listReminders(ctx context.Context, utt model.Utterance) model.ActionResult {
	reminders, err := d.Reminders.ListPending(ctx, utt.ChatID)
	if err != nil {
		logger.Logger.Error("Failed to list reminders", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}
	return model.ActionResult{Text: formatReminderList(reminders)}
}

func (d *Dispatcher) cancelReminder(ctx context.Context, intent model.Intent) model.ActionResult {
	reminder, err := d.Reminders.Cancel(ctx, intent.ReminderID)
	switch err {
	case nil:
		return model.ActionResult{Text: formatReminderCancelled(reminder)}
	case pkgerrors.ReminderNotFound:
		return failure(pkgerrors.ReminderNotFound, replyReminderNotFound)
	case pkgerrors.ReminderNotPending:
		return failure(pkgerrors.ReminderNotPending, replyReminderNotPending)
	default:
		logger.Logger.Error("Failed to cancel reminder", zap.Int64("public_id", intent.ReminderID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}
}

func (d *Dispatcher) logExpense(ctx context.Context, intent model.Intent) model.ActionResult {
	exp := collab.Expense{
		Category: intent.Category,
		Amount:   intent.Amount,
		Note:     intent.Note,
	}

	err := d.withRetry(ctx, func() error {
		return d.Ledger.AppendExpense(ctx, exp)
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatExpenseLogged(exp)}
}

func (d *Dispatcher) expenseReport(ctx context.Context) model.ActionResult {
	month := time.Now().In(config.Cfg.Location()).Format("2006-01")

	var report collab.Report
	err := d.withRetry(ctx, func() error {
		var e error
		report, e = d.Ledger.MonthlyReport(ctx, month)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatExpenseReport(report)}
}

func (d *Dispatcher) weather(ctx context.Context, intent model.Intent, sess *model.Session) model.ActionResult {
	location := intent.Location
	if location == "" {
		location = sess.DefaultLocation
	}
	if location == "" {
		return model.ActionResult{Text: replyWeatherNeedsLocation, Code: pkgerrors.NeedsClarification.Code}
	}

	var line string
	err := d.withRetry(ctx, func() error {
		var e error
		line, e = d.Weather.Query(ctx, location)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}

	// 成功查询过的地点作为下次的缺省
	sess.DefaultLocation = location
	return model.ActionResult{Text: line}
}

func (d *Dispatcher) stock(ctx context.Context, intent model.Intent) model.ActionResult {
	var quote collab.Quote
	err := d.withRetry(ctx, func() error {
		var e error
		quote, e = d.Stock.Quote(ctx, intent.Ticker)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatQuote(quote)}
}

func (d *Dispatcher) search(ctx context.Context, intent model.Intent) model.ActionResult {
	var hits []collab.SearchHit
	err := d.withRetry(ctx, func() error {
		var e error
		hits, e = d.Search.Query(ctx, intent.Query)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatSearchHits(hits)}
}

func (d *Dispatcher) calendarCreate(ctx context.Context, intent model.Intent) model.ActionResult {
	if intent.DueAt == nil {
		return model.ActionResult{Text: replyDefaultClarify, Code: pkgerrors.NeedsClarification.Code}
	}

	ev := collab.Event{
		Summary: intent.Message,
		Start:   *intent.DueAt,
		End:     intent.DueAt.Add(time.Hour),
	}

	var created collab.Event
	err := d.withRetry(ctx, func() error {
		var e error
		created, e = d.Calendar.Create(ctx, ev)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatEventCreated(created, intent.Timezone)}
}

// calendarUpdate 先删旧的再建新的，行事历协作方没有原地改写接口
func (d *Dispatcher) calendarUpdate(ctx context.Context, intent model.Intent) model.ActionResult {
	err := d.withRetry(ctx, func() error {
		_, e := d.Calendar.Delete(ctx, intent.Query)
		return e
	})
	if err != nil {
		if def, ok := err.(pkgerrors.Definition); ok && def.Code == pkgerrors.CollaboratorFatal.Code {
			return failure(pkgerrors.CollaboratorFatal, replyEventNotFound)
		}
		return collabFailure(err)
	}
	return d.calendarCreate(ctx, intent)
}

func (d *Dispatcher) calendarDelete(ctx context.Context, intent model.Intent) model.ActionResult {
	var deleted collab.Event
	err := d.withRetry(ctx, func() error {
		var e error
		deleted, e = d.Calendar.Delete(ctx, intent.Query)
		return e
	})
	if err != nil {
		if def, ok := err.(pkgerrors.Definition); ok && def.Code == pkgerrors.CollaboratorFatal.Code {
			return failure(pkgerrors.CollaboratorFatal, replyEventNotFound)
		}
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatEventDeleted(deleted, intent.Timezone)}
}

func (d *Dispatcher) calendarQuery(ctx context.Context, intent model.Intent) model.ActionResult {
	days := intent.RangeDays
	if days <= 0 {
		days = 7
	}
	from := time.Now()
	to := from.AddDate(0, 0, days)

	var events []collab.Event
	err := d.withRetry(ctx, func() error {
		var e error
		events, e = d.Calendar.Query(ctx, from, to)
		return e
	})
	if err != nil {
		return collabFailure(err)
	}
	return model.ActionResult{Text: formatEventList(events)}
}

func (d *Dispatcher) createNote(ctx context.Context, utt model.Utterance, intent model.Intent) model.ActionResult {
	if _, err := d.Notes.CreateNote(ctx, utt.ChatID, intent.Message); err != nil {
		logger.Logger.Error("Failed to create note", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}
	return model.ActionResult{Text: formatNoteCreated(intent.Message)}
}

func (d *Dispatcher) createTodo(ctx context.Context, utt model.Utterance, intent model.Intent) model.ActionResult {
	if _, err := d.Notes.CreateTodo(ctx, utt.ChatID, intent.Message); err != nil {
		logger.Logger.Error("Failed to create todo", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}
	return model.ActionResult{Text: formatTodoCreated(intent.Message)}
}

func (d *Dispatcher) completeTodo(ctx context.Context, utt model.Utterance, intent model.Intent) model.ActionResult {
	todo, err := d.Notes.CompleteTodo(ctx, utt.ChatID, int(intent.TodoID))
	if err != nil {
		if err == pkgerrors.TodoNotFound {
			return failure(pkgerrors.TodoNotFound, replyTodoNotFound)
		}
		logger.Logger.Error("Failed to complete todo", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return failure(pkgerrors.InvalidRequest, replyInternalError)
	}
	return model.ActionResult{Text: formatTodoCompleted(todo)}
}

func (d *Dispatcher) converse(ctx context.Context, utt model.Utterance, sess *model.Session) model.ActionResult {
	var reply string
	err := d.withRetry(ctx, func() error {
		var e error
		reply, e = d.Persona.Converse(ctx, sess, utt.Text)
		return e
	})
	if err != nil {
		// 闲聊兜底不报错，人格服务缺席时用固定文案
		logger.Logger.Warn("Persona converse failed", zap.String("chat_id", utt.ChatID), zap.Error(err))
		return model.ActionResult{Text: replyConverseFallback}
	}
	return model.ActionResult{Text: reply}
}

func failure(def pkgerrors.Definition, text string) model.ActionResult {
	return model.ActionResult{Text: text, Code: def.Code}
}

func collabFailure(err error) model.ActionResult {
	def, ok := err.(pkgerrors.Definition)
	if !ok {
		def = pkgerrors.CollaboratorTransient
	}

	switch def.Code {
	case pkgerrors.CollaboratorUnavailable.Code:
		return failure(def, replyCollabUnavailable)
	case pkgerrors.CollaboratorFatal.Code:
		return failure(def, replyCollabFatal)
	default:
		return failure(pkgerrors.CollaboratorTransient, replyCollabTransient)
	}
}
