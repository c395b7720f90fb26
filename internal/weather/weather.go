// Package weather fetches current conditions from OpenWeatherMap and
// renders them as a spoken Turkish sentence.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const apiURL = "https://api.openweathermap.org/data/2.5/weather"

// Client queries current conditions for one configured city.
type Client struct {
	apiKey string
	city   string
	client *http.Client
}

// New creates a weather client. city defaults to Istanbul.
func New(apiKey, city string) *Client {
	if city == "" {
		city = "Istanbul"
	}
	return &Client{
		apiKey: apiKey,
		city:   city,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Current returns a spoken-form summary of the current weather.
func (c *Client) Current(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no weather api key configured")
	}

	q := make(url.Values)
	q.Set("q", c.city)
	q.Set("appid", c.apiKey)
	q.Set("lang", "tr")
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("weather lookup failed (status %d): %s", resp.StatusCode, body)
	}

	var data struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decoding weather response: %w", err)
	}
	if len(data.Weather) == 0 {
		return "", fmt.Errorf("weather response had no conditions")
	}

	return fmt.Sprintf("Şu anda %s için hava: %s, sıcaklık: %.0f derece.",
		c.city, data.Weather[0].Description, data.Main.Temp), nil
}
