package collab

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"lumio/config"
	"lumio/pkg/errors"
)

// Event 行事历事件
type Event struct {
	ID      string    `json:"id,omitempty"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Calendar 行事历协作方
type Calendar interface {
	Create(ctx context.Context, ev Event) (Event, error)
	Delete(ctx context.Context, query string) (Event, error)
	Query(ctx context.Context, from, to time.Time) ([]Event, error)
}

// HTTPCalendar 行事历 API 适配器，按 calendarId 维度操作
type HTTPCalendar struct {
	client     *httpClient
	calendarID string
}

func NewHTTPCalendar() *HTTPCalendar {
	cfg := config.Cfg
	return &HTTPCalendar{
		client:     newHTTPClient(cfg.CalendarBaseURL, cfg.CalendarToken, cfg.CollabTimeout),
		calendarID: cfg.CalendarID,
	}
}

func (c *HTTPCalendar) Create(ctx context.Context, ev Event) (Event, error) {
	var created Event
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(c.calendarID))
	if _, err := c.client.postJSON(ctx, path, ev, &created); err != nil {
		return Event{}, err
	}
	return created, nil
}

// Delete 按关键词匹配最近的行程并删除，返回被删除的事件
func (c *HTTPCalendar) Delete(ctx context.Context, query string) (Event, error) {
	events, err := c.Query(ctx, time.Now(), time.Now().AddDate(0, 1, 0))
	if err != nil {
		return Event{}, err
	}

	for _, ev := range events {
		if containsFold(ev.Summary, query) {
			path := fmt.Sprintf("/calendars/%s/events/%s/delete",
				url.PathEscape(c.calendarID), url.PathEscape(ev.ID))
			if _, err := c.client.postJSON(ctx, path, nil, nil); err != nil {
				return Event{}, err
			}
			return ev, nil
		}
	}
	return Event{}, errors.CollaboratorFatal
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (c *HTTPCalendar) Query(ctx context.Context, from, to time.Time) ([]Event, error) {
	var resp struct {
		Items []Event `json:"items"`
	}
	path := fmt.Sprintf("/calendars/%s/events?timeMin=%s&timeMax=%s",
		url.PathEscape(c.calendarID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)
	if _, err := c.client.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
