package dispatch

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumio/internal/collab"
	"lumio/internal/intent"
	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeReminderStore struct {
	created   []*model.Reminder
	cancelErr error
}

func (f *fakeReminderStore) Create(ctx context.Context, chatID, message string, dueAt time.Time, timezone string) (*model.Reminder, error) {
	r := &model.Reminder{
		PublicID: int64(100 + len(f.created)),
		ChatID:   chatID,
		Message:  message,
		DueAt:    dueAt,
		Timezone: timezone,
		Status:   model.ReminderStatusPending,
	}
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeReminderStore) ListPending(ctx context.Context, chatID string) ([]*model.Reminder, error) {
	return f.created, nil
}

func (f *fakeReminderStore) Cancel(ctx context.Context, publicID int64) (*model.Reminder, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	for _, r := range f.created {
		if r.PublicID == publicID {
			r.Status = model.ReminderStatusCancelled
			return r, nil
		}
	}
	return nil, pkgerrors.ReminderNotFound
}

type fakeNoteStore struct {
	notes []string
	todos []string
}

func (f *fakeNoteStore) CreateNote(ctx context.Context, chatID, content string) (*model.Note, error) {
	f.notes = append(f.notes, content)
	return &model.Note{ChatID: chatID, Content: content}, nil
}

func (f *fakeNoteStore) CreateTodo(ctx context.Context, chatID, content string) (*model.Todo, error) {
	f.todos = append(f.todos, content)
	return &model.Todo{ChatID: chatID, Content: content}, nil
}

func (f *fakeNoteStore) CompleteTodo(ctx context.Context, chatID string, ordinal int) (*model.Todo, error) {
	if ordinal < 1 || ordinal > len(f.todos) {
		return nil, pkgerrors.TodoNotFound
	}
	return &model.Todo{ChatID: chatID, Content: f.todos[ordinal-1], Done: true}, nil
}

type fakeLedger struct {
	calls     int
	failFirst int
	failWith  error
	appended  []collab.Expense
}

func (f *fakeLedger) AppendExpense(ctx context.Context, exp collab.Expense) error {
	f.calls++
	if f.calls <= f.failFirst {
		return f.failWith
	}
	f.appended = append(f.appended, exp)
	return nil
}

func (f *fakeLedger) MonthlyReport(ctx context.Context, month string) (collab.Report, error) {
	return collab.Report{Month: month, Total: 300, ByCate: map[string]float64{"未分類": 300}}, nil
}

type fakePersona struct {
	reply string
	err   error
}

func (f *fakePersona) Converse(ctx context.Context, sess *model.Session, text string) (string, error) {
	return f.reply, f.err
}

func newTestDispatcher(reminders *fakeReminderStore, notes *fakeNoteStore, ledger *fakeLedger) *Dispatcher {
	return &Dispatcher{
		Ledger:        ledger,
		Reminders:     reminders,
		Notes:         notes,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}
}

func testUtterance(text string) model.Utterance {
	return model.Utterance{MessageID: "m-1", ChatID: "chat-1", Text: text, ReceivedAt: time.Now()}
}

func TestClarificationHasNoSideEffects(t *testing.T) {
	reminders := &fakeReminderStore{}
	ledger := &fakeLedger{}
	d := newTestDispatcher(reminders, &fakeNoteStore{}, ledger)

	intent := model.Intent{
		Type:               model.IntentReminderCreate,
		NeedsClarification: true,
		ClarifyPrompt:      "什麼時候提醒你呢？",
	}
	res := d.Dispatch(context.Background(), testUtterance("提醒我吃藥"), intent, &model.Session{ChatID: "chat-1"})

	assert.Equal(t, "什麼時候提醒你呢？", res.Text)
	assert.Equal(t, pkgerrors.NeedsClarification.Code, res.Code)
	assert.Empty(t, reminders.created)
	assert.Zero(t, ledger.calls)
}

func TestCreateReminderNudgesScheduler(t *testing.T) {
	reminders := &fakeReminderStore{}
	d := newTestDispatcher(reminders, &fakeNoteStore{}, &fakeLedger{})

	var nudged []int64
	d.Nudge = func(ctx context.Context, publicID int64) error {
		nudged = append(nudged, publicID)
		return nil
	}

	due := time.Now().Add(10 * time.Minute).UTC()
	intent := model.Intent{Type: model.IntentReminderCreate, DueAt: &due, Timezone: "Asia/Taipei", Message: "關火"}
	res := d.Dispatch(context.Background(), testUtterance("10分鐘後提醒我關火"), intent, &model.Session{ChatID: "chat-1"})

	require.True(t, res.OK(), res.Text)
	require.Len(t, reminders.created, 1)
	assert.Equal(t, "關火", reminders.created[0].Message)
	assert.Equal(t, []int64{reminders.created[0].PublicID}, nudged)
	assert.Contains(t, res.Text, "關火")
}

func TestExpenseRetriesTransientFailure(t *testing.T) {
	ledger := &fakeLedger{failFirst: 2, failWith: pkgerrors.CollaboratorTransient}
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, ledger)

	intent := model.Intent{Type: model.IntentExpenseLog, Amount: 150, Category: "未分類", Note: "午餐"}
	res := d.Dispatch(context.Background(), testUtterance("/spend 150 午餐"), intent, &model.Session{ChatID: "chat-1"})

	require.True(t, res.OK(), res.Text)
	assert.Equal(t, 3, ledger.calls)
	// 重试只补失败的调用，成功落帐恰好一次
	require.Len(t, ledger.appended, 1)
	assert.Equal(t, 150.0, ledger.appended[0].Amount)
	assert.Equal(t, "未分類", ledger.appended[0].Category)
}

func TestExpenseFatalFailureDoesNotRetry(t *testing.T) {
	ledger := &fakeLedger{failFirst: 10, failWith: pkgerrors.CollaboratorFatal}
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, ledger)

	intent := model.Intent{Type: model.IntentExpenseLog, Amount: 150, Category: "未分類", Note: "午餐"}
	res := d.Dispatch(context.Background(), testUtterance("/spend 150 午餐"), intent, &model.Session{ChatID: "chat-1"})

	assert.Equal(t, pkgerrors.CollaboratorFatal.Code, res.Code)
	assert.Equal(t, 1, ledger.calls)
	assert.Empty(t, ledger.appended)
}

func TestExpenseExhaustedRetriesReportsTransient(t *testing.T) {
	ledger := &fakeLedger{failFirst: 10, failWith: pkgerrors.CollaboratorTransient}
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, ledger)

	intent := model.Intent{Type: model.IntentExpenseLog, Amount: 150, Category: "未分類", Note: "午餐"}
	res := d.Dispatch(context.Background(), testUtterance("/spend 150 午餐"), intent, &model.Session{ChatID: "chat-1"})

	assert.Equal(t, pkgerrors.CollaboratorTransient.Code, res.Code)
	assert.Equal(t, 3, ledger.calls)
}

func TestCancelReminderNotFound(t *testing.T) {
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, &fakeLedger{})

	intent := model.Intent{Type: model.IntentReminderCancel, ReminderID: 999}
	res := d.Dispatch(context.Background(), testUtterance("/cancel 999"), intent, &model.Session{ChatID: "chat-1"})

	assert.Equal(t, pkgerrors.ReminderNotFound.Code, res.Code)
}

func TestConverseFallsBackWhenPersonaFails(t *testing.T) {
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, &fakeLedger{})
	d.Persona = &fakePersona{err: pkgerrors.CollaboratorUnavailable}

	intent := model.Intent{Type: model.IntentConverse, RawText: "哈囉"}
	res := d.Dispatch(context.Background(), testUtterance("哈囉"), intent, &model.Session{ChatID: "chat-1"})

	assert.True(t, res.OK())
	assert.Equal(t, replyConverseFallback, res.Text)
}

func TestConverseUsesPersonaReply(t *testing.T) {
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, &fakeLedger{})
	d.Persona = &fakePersona{reply: "哈囉，今天過得怎麼樣？"}

	intent := model.Intent{Type: model.IntentConverse, RawText: "哈囉"}
	res := d.Dispatch(context.Background(), testUtterance("哈囉"), intent, &model.Session{ChatID: "chat-1"})

	require.True(t, res.OK())
	assert.Equal(t, "哈囉，今天過得怎麼樣？", res.Text)
}

func TestWeatherRemembersLocation(t *testing.T) {
	d := newTestDispatcher(&fakeReminderStore{}, &fakeNoteStore{}, &fakeLedger{})
	d.Weather = weatherFunc(func(ctx context.Context, location string) (string, error) {
		return location + ": ☀️ +25°C", nil
	})

	sess := &model.Session{ChatID: "chat-1"}
	intent := model.Intent{Type: model.IntentWeatherQuery, Location: "台北"}
	res := d.Dispatch(context.Background(), testUtterance("台北天氣"), intent, sess)

	require.True(t, res.OK())
	assert.Equal(t, "台北", sess.DefaultLocation)
}

type weatherFunc func(ctx context.Context, location string) (string, error)

func (f weatherFunc) Query(ctx context.Context, location string) (string, error) {
	return f(ctx, location)
}

func TestHelpReplyOnlyAdvertisesHandledCommands(t *testing.T) {
	cl := intent.NewClassifier(time.UTC, 2, "")
	sess := &model.Session{ChatID: "chat-1"}

	for _, line := range strings.Split(replyHelp, "\n") {
		if !strings.HasPrefix(line, "/") {
			continue
		}
		cmd := strings.Fields(line)[0]

		in := cl.Classify(model.Utterance{
			ChatID:     "chat-1",
			Text:       cmd + " 測試 123",
			ReceivedAt: time.Now(),
		}, sess)
		// 帮助文案里列的指令必须都有对应处理，不能落进闲聊兜底
		assert.NotEqualf(t, model.IntentConverse, in.Type, "help 文案裡的 %s 沒有對應的指令", cmd)
	}
}

func TestExpenseReportCategoriesSorted(t *testing.T) {
	report := collab.Report{
		Month: "2025-08",
		Total: 450,
		ByCate: map[string]float64{
			"雜支": 50,
			"午餐": 300,
			"交通": 100,
		},
	}

	want := "2025-08 支出總計 450 元\n• 交通：100 元\n• 午餐：300 元\n• 雜支：50 元"
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, formatExpenseReport(report))
	}
}
