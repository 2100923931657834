package collab

import (
	"context"
	"net/url"
	"strings"

	"lumio/config"
)

// Weather 天气协作方，只读
type Weather interface {
	Query(ctx context.Context, location string) (string, error)
}

// HTTPWeather wttr.in 风格的单行天气适配器
type HTTPWeather struct {
	client *httpClient
}

func NewHTTPWeather() *HTTPWeather {
	cfg := config.Cfg
	return &HTTPWeather{
		client: newHTTPClient(cfg.WeatherBaseURL, "", cfg.CollabTimeout),
	}
}

func (w *HTTPWeather) Query(ctx context.Context, location string) (string, error) {
	path := "/" + url.PathEscape(location) + "?format=" + url.QueryEscape("%l: %c %t (%h)")
	data, err := w.client.getJSON(ctx, path, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
