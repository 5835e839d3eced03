// Package weather looks up today's weather label from a static JSON feed.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

const (
	DefaultURL = "https://f-api.github.io/f-api/weather.json"
	dateLayout = "01-02"
	keyPrefix  = "weather:"
)

// Entry is one row of the feed.
type Entry struct {
	Date    string `json:"date"`
	Weather string `json:"weather"`
}

// Client fetches the feed on demand.  Cache may be nil.
type Client struct {
	URL      string
	HTTP     *http.Client
	Cache    *redis.Client
	CacheTTL time.Duration
	Now      func() time.Time
}

func NewClient(url string, timeout time.Duration, cache *redis.Client, ttl time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		URL:      url,
		HTTP:     &http.Client{Timeout: timeout},
		Cache:    cache,
		CacheTTL: ttl,
		Now:      time.Now,
	}
}

// TodayWeather returns the label for today's MM-dd.  Failures wrap
// ErrWeatherUnavailable.
func (c *Client) TodayWeather(ctx context.Context) (string, error) {
	today := c.Now().Format(dateLayout)
	key := keyPrefix + today

	if c.Cache != nil {
		if v, err := c.Cache.Get(ctx, key).Result(); err == nil && v != "" {
			return v, nil
		}
	}

	entries, err := c.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrWeatherUnavailable, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: empty feed", apperrors.ErrWeatherUnavailable)
	}
	for _, e := range entries {
		if e.Date == today {
			if c.Cache != nil && c.CacheTTL > 0 {
				_ = c.Cache.Set(ctx, key, e.Weather, c.CacheTTL).Err()
			}
			return e.Weather, nil
		}
	}
	return "", fmt.Errorf("%w: no entry for %s", apperrors.ErrWeatherUnavailable, today)
}

func (c *Client) fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d", resp.StatusCode)
	}
	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, errors.Join(errors.New("decode feed"), err)
	}
	return entries, nil
}
