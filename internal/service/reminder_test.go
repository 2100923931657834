package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
	"lumio/pkg/snowflake"
	"lumio/storage/database"
)

func TestMain(m *testing.M) {
	logger.Init()
	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}
	if err := db.AutoMigrate(&model.Reminder{}, &model.Note{}, &model.Todo{}); err != nil {
		panic(err)
	}
	database.SetDB(db)

	os.Exit(m.Run())
}

func publicIDs(reminders []*model.Reminder) []int64 {
	ids := make([]int64, 0, len(reminders))
	for _, r := range reminders {
		ids = append(ids, r.PublicID)
	}
	return ids
}

func TestListPendingOrderedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := Reminder()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// 乱序落库，最后两条到期时间相同，靠落库先后定序
	late, err := s.Create(ctx, "chat-order", "晚的", base.Add(3*time.Hour), "Asia/Taipei")
	require.NoError(t, err)
	early, err := s.Create(ctx, "chat-order", "早的", base.Add(time.Hour), "Asia/Taipei")
	require.NoError(t, err)
	tieFirst, err := s.Create(ctx, "chat-order", "同到期甲", base.Add(2*time.Hour), "Asia/Taipei")
	require.NoError(t, err)
	tieSecond, err := s.Create(ctx, "chat-order", "同到期乙", base.Add(2*time.Hour), "Asia/Taipei")
	require.NoError(t, err)

	// 已结束的不该出现在待投递列表里
	cancelled, err := s.Create(ctx, "chat-order", "取消的", base.Add(30*time.Minute), "Asia/Taipei")
	require.NoError(t, err)
	_, err = s.Cancel(ctx, cancelled.PublicID)
	require.NoError(t, err)

	fired, err := s.Create(ctx, "chat-order", "投过的", base.Add(40*time.Minute), "Asia/Taipei")
	require.NoError(t, err)
	ok, err := s.MarkFired(ctx, fired.PublicID, base)
	require.NoError(t, err)
	require.True(t, ok)

	want := []int64{early.PublicID, tieFirst.PublicID, tieSecond.PublicID, late.PublicID}

	first, err := s.ListPending(ctx, "chat-order")
	require.NoError(t, err)
	assert.Equal(t, want, publicIDs(first))

	// 再读一次结果不变
	second, err := s.ListPending(ctx, "chat-order")
	require.NoError(t, err)
	assert.Equal(t, publicIDs(first), publicIDs(second))
}

func TestListDueBeforeBound(t *testing.T) {
	ctx := context.Background()
	s := Reminder()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	soon, err := s.Create(ctx, "chat-bound", "快到了", base.Add(time.Hour), "Asia/Taipei")
	require.NoError(t, err)
	_, err = s.Create(ctx, "chat-bound", "還早", base.Add(3*time.Hour), "Asia/Taipei")
	require.NoError(t, err)

	due, err := s.ListDueBefore(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Contains(t, publicIDs(due), soon.PublicID)
	for _, r := range due {
		assert.False(t, r.DueAt.After(base.Add(2*time.Hour)))
	}
}

func TestMarkFiredLosesToCancel(t *testing.T) {
	ctx := context.Background()
	s := Reminder()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	r, err := s.Create(ctx, "chat-race", "只能赢一次", base.Add(time.Hour), "Asia/Taipei")
	require.NoError(t, err)

	_, err = s.Cancel(ctx, r.PublicID)
	require.NoError(t, err)

	// 条件更新兜底：已取消的提醒不会再被标成已投递
	ok, err := s.MarkFired(ctx, r.PublicID, base)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, r.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.ReminderStatusCancelled, got.Status)

	// 再取消一次会报不在待投递状态
	_, err = s.Cancel(ctx, r.PublicID)
	assert.Equal(t, pkgerrors.ReminderNotPending, err)
}
