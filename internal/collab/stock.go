package collab

import (
	"context"
	"fmt"
	"net/url"

	"lumio/config"
	"lumio/pkg/errors"
)

// Quote 一支股票的即时报价
type Quote struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Stock 股票行情协作方，只读
type Stock interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// HTTPStock 行情接口适配器（chart API 风格）
type HTTPStock struct {
	client *httpClient
}

func NewHTTPStock() *HTTPStock {
	cfg := config.Cfg
	return &HTTPStock{
		client: newHTTPClient(cfg.StockBaseURL, "", cfg.CollabTimeout),
	}
}

func (s *HTTPStock) Quote(ctx context.Context, ticker string) (Quote, error) {
	var resp struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					PreviousClose      float64 `json:"chartPreviousClose"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}

	path := fmt.Sprintf("/v8/finance/chart/%s?range=1d&interval=1d", url.PathEscape(ticker))
	if _, err := s.client.getJSON(ctx, path, &resp); err != nil {
		return Quote{}, err
	}
	if len(resp.Chart.Result) == 0 {
		return Quote{}, errors.CollaboratorFatal
	}

	meta := resp.Chart.Result[0].Meta
	q := Quote{
		Ticker: meta.Symbol,
		Price:  meta.RegularMarketPrice,
	}
	if meta.PreviousClose > 0 {
		q.Change = meta.RegularMarketPrice - meta.PreviousClose
		q.ChangePercent = q.Change / meta.PreviousClose * 100
	}
	return q, nil
}
