package collab

import (
	"context"
	"net/url"

	"lumio/config"
)

// SearchHit 一条搜索结果
type SearchHit struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Search 搜索协作方，只读
type Search interface {
	Query(ctx context.Context, terms string) ([]SearchHit, error)
}

// HTTPSearch 即时应答搜索接口适配器，取前三条
type HTTPSearch struct {
	client *httpClient
}

func NewHTTPSearch() *HTTPSearch {
	cfg := config.Cfg
	return &HTTPSearch{
		client: newHTTPClient(cfg.SearchBaseURL, "", cfg.CollabTimeout),
	}
}

func (s *HTTPSearch) Query(ctx context.Context, terms string) ([]SearchHit, error) {
	var resp struct {
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}

	path := "/?q=" + url.QueryEscape(terms) + "&format=json&no_html=1"
	if _, err := s.client.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, 3)
	for _, t := range resp.RelatedTopics {
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		hits = append(hits, SearchHit{Title: t.Text, Link: t.FirstURL})
		if len(hits) == 3 {
			break
		}
	}
	return hits, nil
}
