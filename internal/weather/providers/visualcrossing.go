package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-proxy/internal/weather"
)

// DefaultVisualCrossingURL is the Visual Crossing timeline endpoint.
const DefaultVisualCrossingURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

var validate = validator.New()

// VisualCrossingProvider implements weather.Client for the Visual Crossing timeline API.
type VisualCrossingProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewVisualCrossingProvider creates a client. An empty baseURL selects the
// public endpoint; maxRetries of zero disables automatic retries.
func NewVisualCrossingProvider(client *http.Client, baseURL, apiKey string, maxRetries int) *VisualCrossingProvider {
	if baseURL == "" {
		baseURL = DefaultVisualCrossingURL
	}

	return &VisualCrossingProvider{
		name:    "visualcrossing",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("visualcrossing"),
	}
}

func (p *VisualCrossingProvider) Name() string {
	return p.name
}

// vcResponse holds the subset of the timeline document we rely on. Pointer
// fields let the validator tell a missing field from a zero value.
type vcResponse struct {
	CurrentConditions *vcConditions `json:"currentConditions" validate:"required"`
	// Only days[0] is read, so it is validated on its own.
	Days              []vcDay       `json:"days" validate:"required,min=1"`
}

type vcConditions struct {
	Temp          *float64 `json:"temp" validate:"required"`
	Humidity      *float64 `json:"humidity" validate:"required"`
	Pressure      *float64 `json:"pressure" validate:"required"`
	WindSpeed     *float64 `json:"windspeed" validate:"required"`
	Datetime      string   `json:"datetime"`
	DatetimeEpoch *uint64  `json:"datetimeEpoch" validate:"required"`
}

type vcDay struct {
	TempMax       *float64 `json:"tempmax" validate:"required"`
	TempMin       *float64 `json:"tempmin" validate:"required"`
	Datetime      string   `json:"datetime"`
	DatetimeEpoch *uint64  `json:"datetimeEpoch" validate:"required"`
}

func (p *VisualCrossingProvider) FetchCurrent(ctx context.Context, city string) (weather.Normalized, error) {
	if p.apiKey == "" {
		return weather.Normalized{}, &weather.FetchError{
			Kind: weather.FetchNetwork,
			Err:  errors.New("visual crossing api key is not configured"),
		}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("unitGroup", "metric")
		values.Set("key", p.apiKey)
		values.Set("contentType", "json")

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(city), values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return weather.Normalized{}, &weather.FetchError{Kind: weather.FetchStatus, StatusCode: se.code, Err: err}
		}
		return weather.Normalized{}, &weather.FetchError{Kind: weather.FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	var payload vcResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Normalized{}, &weather.FetchError{Kind: weather.FetchMalformed, Err: fmt.Errorf("decode body: %w", err)}
	}
	if err := validate.Struct(payload); err != nil {
		return weather.Normalized{}, &weather.FetchError{Kind: weather.FetchMalformed, Err: err}
	}
	if err := validate.Struct(payload.Days[0]); err != nil {
		return weather.Normalized{}, &weather.FetchError{Kind: weather.FetchMalformed, Err: fmt.Errorf("days[0]: %w", err)}
	}

	return p.normalize(city, payload), nil
}

func (p *VisualCrossingProvider) normalize(city string, payload vcResponse) weather.Normalized {
	cc := payload.CurrentConditions
	today := payload.Days[0]

	ts := *cc.DatetimeEpoch
	if *today.DatetimeEpoch != ts {
		logrus.WithFields(logrus.Fields{
			"city":          city,
			"current_epoch": *cc.DatetimeEpoch,
			"day_epoch":     *today.DatetimeEpoch,
			"current_time":  cc.Datetime,
			"day_time":      today.Datetime,
		}).Warn("current conditions and today's record disagree on timestamp")
		ts = max(ts, *today.DatetimeEpoch)
	}

	return weather.Normalized{
		Payload: weather.Payload{
			Temp:      *cc.Temp,
			TempMax:   *today.TempMax,
			TempMin:   *today.TempMin,
			Humidity:  *cc.Humidity,
			Pressure:  *cc.Pressure,
			WindSpeed: *cc.WindSpeed,
		},
		Timestamp: ts,
	}
}
