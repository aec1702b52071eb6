// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package weather fetches current conditions from an open-meteo compatible
// API for the chat screen's weather widget.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public open-meteo endpoint.
const DefaultBaseURL = "https://api.open-meteo.com"

const maxResponseSize = 1 << 20

// Current is the current weather at a location.
type Current struct {
	Latitude    float64
	Longitude   float64
	Temperature float64 // degrees Celsius
	WindSpeed   float64 // km/h
	Code        int     // WMO weather interpretation code
	FetchedAt   time.Time
}

// Description returns a human readable name for the weather code.
func (c Current) Description() string {
	return Describe(c.Code)
}

// String renders the widget line.
func (c Current) String() string {
	return fmt.Sprintf("%.1f°C  %s  wind %.0f km/h", c.Temperature, c.Description(), c.WindSpeed)
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		Windspeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Client queries the forecast endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: hc,
		logger:     log.Logger.With().Str("component", "weather").Logger(),
	}
}

// Current fetches the current weather at lat, lon.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current_weather", "true")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create weather request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "weather request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weather response")
	}

	var fr forecastResponse
	decodeErr := json.Unmarshal(body, &fr)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && fr.Reason != "" {
			return nil, errors.Errorf("weather API returned %d: %s", resp.StatusCode, fr.Reason)
		}
		return nil, errors.Errorf("weather API returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "failed to parse weather response")
	}
	if fr.CurrentWeather == nil {
		return nil, errors.New("weather response has no current_weather")
	}

	c.logger.Debug().Float64("lat", lat).Float64("lon", lon).Int("code", fr.CurrentWeather.WeatherCode).Msg("WEATHER_FETCHED")

	return &Current{
		Latitude:    lat,
		Longitude:   lon,
		Temperature: fr.CurrentWeather.Temperature,
		WindSpeed:   fr.CurrentWeather.Windspeed,
		Code:        fr.CurrentWeather.WeatherCode,
		FetchedAt:   time.Now(),
	}, nil
}

// wmoCodes maps WMO weather interpretation codes to descriptions.
var wmoCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe returns the description of a WMO weather code.
func Describe(code int) string {
	if d, ok := wmoCodes[code]; ok {
		return d
	}
	return "Unknown"
}
