package collab

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"lumio/config"
)

// Expense 一笔支出
type Expense struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
}

// Report 月度汇总，分类金额合计
type Report struct {
	Month  string             `json:"month"` // YYYY-MM
	Total  float64            `json:"total"`
	ByCate map[string]float64 `json:"by_category"`
}

// Ledger 记帐表协作方
type Ledger interface {
	AppendExpense(ctx context.Context, exp Expense) error
	MonthlyReport(ctx context.Context, month string) (Report, error)
}

// HTTPLedger 表格服务适配器，按工作表名追加行
type HTTPLedger struct {
	client *httpClient
	sheet  string
}

func NewHTTPLedger() *HTTPLedger {
	cfg := config.Cfg
	return &HTTPLedger{
		client: newHTTPClient(cfg.LedgerBaseURL, cfg.LedgerToken, cfg.CollabTimeout),
		sheet:  cfg.LedgerSheetName,
	}
}

func (l *HTTPLedger) AppendExpense(ctx context.Context, exp Expense) error {
	if exp.Date == "" {
		exp.Date = time.Now().Format("2006-01-02")
	}
	path := fmt.Sprintf("/sheets/%s/rows", url.PathEscape(l.sheet))
	_, err := l.client.postJSON(ctx, path, exp, nil)
	return err
}

func (l *HTTPLedger) MonthlyReport(ctx context.Context, month string) (Report, error) {
	var report Report
	path := fmt.Sprintf("/sheets/%s/report?month=%s", url.PathEscape(l.sheet), url.QueryEscape(month))
	if _, err := l.client.getJSON(ctx, path, &report); err != nil {
		return Report{}, err
	}
	if report.Month == "" {
		report.Month = month
	}
	return report, nil
}
