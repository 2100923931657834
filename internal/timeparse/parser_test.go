package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumio/pkg/errors"
)

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return loc
}

func TestParseRelative(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	cases := []struct {
		text    string
		want    time.Time
		matched string
	}{
		{"10分鐘後關火", ref.Add(10 * time.Minute), "10分鐘後"},
		{"半小時後出門", ref.Add(30 * time.Minute), "半小時後"},
		{"3小時後開會", ref.Add(3 * time.Hour), "3小時後"},
		{"2天後交報告", ref.Add(48 * time.Hour), "2天後"},
		{"30秒之後", ref.Add(30 * time.Second), "30秒之後"},
	}

	for _, tc := range cases {
		res, err := Parse(tc.text, ref, loc)
		require.NoError(t, err, tc.text)
		assert.True(t, res.Relative, tc.text)
		assert.Equal(t, tc.matched, res.Matched, tc.text)
		assert.True(t, tc.want.UTC().Equal(res.At), "%s: want %v got %v", tc.text, tc.want.UTC(), res.At)
	}
}

func TestParseDayWordWithHour(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	cases := []struct {
		text string
		want time.Time
	}{
		{"明天早上10點開會", time.Date(2025, 3, 11, 10, 0, 0, 0, loc)},
		{"明天下午3點半", time.Date(2025, 3, 11, 15, 30, 0, 0, loc)},
		{"後天晚上8點", time.Date(2025, 3, 12, 20, 0, 0, 0, loc)},
		{"明天中午12點", time.Date(2025, 3, 11, 12, 0, 0, 0, loc)},
		{"明天 10:30 取貨", time.Date(2025, 3, 11, 10, 30, 0, 0, loc)},
	}

	for _, tc := range cases {
		res, err := Parse(tc.text, ref, loc)
		require.NoError(t, err, tc.text)
		assert.False(t, res.Relative, tc.text)
		assert.True(t, tc.want.UTC().Equal(res.At), "%s: want %v got %v", tc.text, tc.want.UTC(), res.At)
	}
}

func TestParseBareClockRollsForward(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	// 已过的钟点顺延到下一次出现
	res, err := Parse("18:30", ref, loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 10, 18, 30, 0, 0, loc).UTC().Equal(res.At))

	// 小于 8 的裸钟点按字面小时取下一次出现，不换算成下午
	res, err = Parse("7點倒垃圾", ref, loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 11, 7, 0, 0, 0, loc).UTC().Equal(res.At))

	// 明确指定「今天」但钟点已过同样顺延
	res, err = Parse("今天8點", ref, loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 11, 8, 0, 0, 0, loc).UTC().Equal(res.At))
}

func TestParseISO(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	res, err := Parse("2025-04-01 08:30 繳房租", ref, loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01 08:30", res.Matched)
	assert.True(t, time.Date(2025, 4, 1, 8, 30, 0, 0, loc).UTC().Equal(res.At))
}

func TestParseDayWordOnly(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	// 无钟点时按时段词给缺省时间
	res, err := Parse("後天下午有空嗎", ref, loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 12, 15, 0, 0, 0, loc).UTC().Equal(res.At))
}

func TestParseLeftmostWins(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	res, err := Parse("18:00 先提貨，明天早上10點再開會", ref, loc)
	require.NoError(t, err)
	assert.Equal(t, "18:00", res.Matched)
	assert.True(t, time.Date(2025, 3, 10, 18, 0, 0, 0, loc).UTC().Equal(res.At))
}

func TestParseNoTemporalPhrase(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	_, err := Parse("謝謝你啊", ref, loc)
	assert.Equal(t, errors.ParseNoTemporalPhrase, err)

	_, err = Parse("", ref, loc)
	assert.Equal(t, errors.ParseNoTemporalPhrase, err)
}

func TestParseResultIsUTC(t *testing.T) {
	loc := taipei(t)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	res, err := Parse("明天早上10點", ref, loc)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, res.At.Location())
	assert.Equal(t, loc, res.Location)
}
