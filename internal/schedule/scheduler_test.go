package schedule

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type memStore struct {
	mu    sync.Mutex
	items map[int64]*model.Reminder
}

func newMemStore() *memStore {
	return &memStore{items: make(map[int64]*model.Reminder)}
}

func (s *memStore) put(r *model.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.items[r.PublicID] = &cp
}

func (s *memStore) status(publicID int64) model.ReminderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[publicID].Status
}

func (s *memStore) attempts(publicID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[publicID].Attempts
}

func (s *memStore) setStatus(publicID int64, status model.ReminderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[publicID].Status = status
}

func (s *memStore) ListPending(ctx context.Context, chatID string) ([]*model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Reminder
	for _, r := range s.items {
		if r.Status != model.ReminderStatusPending {
			continue
		}
		if chatID != "" && r.ChatID != chatID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].PublicID < out[j].PublicID
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

func (s *memStore) Get(ctx context.Context, publicID int64) (*model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[publicID]
	if !ok {
		return nil, pkgerrors.ReminderNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) MarkFired(ctx context.Context, publicID int64, firedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[publicID]
	if !ok || r.Status != model.ReminderStatusPending {
		return false, nil
	}
	r.Status = model.ReminderStatusFired
	r.FiredAt = &firedAt
	return true, nil
}

func (s *memStore) MarkFailed(ctx context.Context, publicID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[publicID]
	if !ok || r.Status != model.ReminderStatusPending {
		return false, nil
	}
	r.Status = model.ReminderStatusFailed
	return true, nil
}

func (s *memStore) IncrementAttempt(ctx context.Context, publicID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[publicID]
	if !ok || r.Status != model.ReminderStatusPending {
		return 0, pkgerrors.ReminderNotPending
	}
	r.Attempts++
	return r.Attempts, nil
}

type sentMessage struct {
	chatID string
	text   string
	at     time.Time
}

type memSender struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
	block bool // 挂住不返回，直到投递超时把 ctx 掐掉
}

func (s *memSender) SendMessage(ctx context.Context, chatID, text string) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sends = append(s.sends, sentMessage{chatID: chatID, text: text, at: time.Now()})
	return nil
}

func (s *memSender) snapshot() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMessage, len(s.sends))
	copy(out, s.sends)
	return out
}

func newTestScheduler(store Store, sender Sender) *ReminderScheduler {
	s := NewReminderScheduler(store, sender)
	s.pollInterval = 20 * time.Millisecond
	s.deliveryTimeout = 100 * time.Millisecond
	s.maxAttempts = 2
	s.retryBackoff = 5 * time.Millisecond
	return s
}

func runScheduler(t *testing.T, s *ReminderScheduler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func pendingReminder(id int64, due time.Time) *model.Reminder {
	return &model.Reminder{
		PublicID: id,
		ChatID:   "chat-1",
		Message:  "關火",
		DueAt:    due,
		Timezone: "Asia/Taipei",
		Status:   model.ReminderStatusPending,
	}
}

func TestDeliversNoEarlierThanDue(t *testing.T) {
	store := newMemStore()
	sender := &memSender{}
	due := time.Now().Add(80 * time.Millisecond)
	store.put(pendingReminder(1, due))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return len(sender.snapshot()) == 1
	}))

	sent := sender.snapshot()[0]
	assert.False(t, sent.at.Before(due), "delivered %v before due %v", sent.at, due)
	assert.Equal(t, "chat-1", sent.chatID)
	assert.Contains(t, sent.text, "關火")
	assert.Equal(t, model.ReminderStatusFired, store.status(1))
}

func TestCancelledReminderIsNotDelivered(t *testing.T) {
	store := newMemStore()
	sender := &memSender{}
	store.put(pendingReminder(1, time.Now().Add(100*time.Millisecond)))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	// 到期前取消，堆里的旧条目在弹出时会回读权威状态后丢弃
	time.Sleep(20 * time.Millisecond)
	store.setStatus(1, model.ReminderStatusCancelled)
	s.Notify()

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, sender.snapshot())
	assert.Equal(t, model.ReminderStatusCancelled, store.status(1))
}

func TestOverdueRemindersDeliveredOnStartup(t *testing.T) {
	store := newMemStore()
	sender := &memSender{}
	now := time.Now()
	store.put(pendingReminder(2, now.Add(-time.Minute)))
	store.put(pendingReminder(1, now.Add(-2*time.Minute)))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return len(sender.snapshot()) == 2
	}))

	// 补投按原到期顺序
	sends := sender.snapshot()
	assert.Equal(t, model.ReminderStatusFired, store.status(1))
	assert.Equal(t, model.ReminderStatusFired, store.status(2))
	assert.True(t, !sends[0].at.After(sends[1].at))
}

func TestNewReminderViaNotifyDeliveredPromptly(t *testing.T) {
	store := newMemStore()
	sender := &memSender{}

	s := NewReminderScheduler(store, sender)
	s.pollInterval = 10 * time.Second // 轮询兜底调远，只靠通知唤醒
	s.deliveryTimeout = 100 * time.Millisecond
	s.maxAttempts = 2
	s.retryBackoff = 5 * time.Millisecond
	runScheduler(t, s)

	time.Sleep(20 * time.Millisecond)
	store.put(pendingReminder(1, time.Now().Add(50*time.Millisecond)))
	s.Notify()

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return len(sender.snapshot()) == 1
	}))
	assert.Equal(t, model.ReminderStatusFired, store.status(1))
}

func TestRetriesExhaustedMarksFailed(t *testing.T) {
	store := newMemStore()
	sender := &memSender{err: pkgerrors.CollaboratorTransient}
	store.put(pendingReminder(1, time.Now().Add(-time.Second)))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return store.status(1) == model.ReminderStatusFailed
	}))
	assert.Equal(t, 2, store.attempts(1))
	assert.Empty(t, sender.snapshot())
}

func TestDeliveryTimeoutCountsAsFailure(t *testing.T) {
	store := newMemStore()
	sender := &memSender{block: true}
	store.put(pendingReminder(1, time.Now().Add(-time.Second)))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	// 发送方一直不回话，每次尝试都该在 deliveryTimeout 内被掐掉并计一次失败
	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return store.status(1) == model.ReminderStatusFailed
	}))
	assert.Equal(t, 2, store.attempts(1))
	assert.Empty(t, sender.snapshot())
}

func TestFiredReminderNotDeliveredTwice(t *testing.T) {
	store := newMemStore()
	sender := &memSender{}
	store.put(pendingReminder(1, time.Now().Add(-time.Second)))

	s := newTestScheduler(store, sender)
	runScheduler(t, s)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return len(sender.snapshot()) == 1
	}))

	// 多次唤醒不会造成重复投递，ListPending 已经不含已投递条目
	s.Notify()
	time.Sleep(100 * time.Millisecond)
	s.Notify()
	time.Sleep(100 * time.Millisecond)

	assert.Len(t, sender.snapshot(), 1)
}
