package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"eventhub-api/config"
	"eventhub-api/logging"
	"eventhub-api/metrics"
	"eventhub-api/utils"
)

// GeocodeResult is a resolved place.
type GeocodeResult struct {
	Address   string
	Longitude float64
	Latitude  float64
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
	Reverse(ctx context.Context, longitude, latitude float64) (*GeocodeResult, error)
}

var errNoMatch = utils.NewValidationError("Address could not be located.")

// YandexGeocoder talks to the Yandex Geocoder HTTP API. Lookups are retried
// with exponential backoff and guarded by a circuit breaker.
type YandexGeocoder struct {
	cfg             config.GeocoderConfig
	client          *http.Client
	cb              *gobreaker.CircuitBreaker[*GeocodeResult]
	initialInterval time.Duration
}

const geocoderBreaker = "yandex-geocoder"

func NewYandexGeocoder(cfg config.GeocoderConfig) *YandexGeocoder {
	metrics.CircuitBreakerState.WithLabelValues(geocoderBreaker).Set(0)

	cb := gobreaker.NewCircuitBreaker[*GeocodeResult](gobreaker.Settings{
		Name:        geocoderBreaker,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// An address the provider does not know is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, utils.ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	if cfg.APIKey == "" {
		logging.Warn().Msg("geocoder api key is empty, location lookups will fail")
	}

	return &YandexGeocoder{
		cfg:             cfg,
		client:          &http.Client{Timeout: cfg.Timeout},
		cb:              cb,
		initialInterval: 200 * time.Millisecond,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (g *YandexGeocoder) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	return g.lookup(ctx, "forward", address)
}

func (g *YandexGeocoder) Reverse(ctx context.Context, longitude, latitude float64) (*GeocodeResult, error) {
	query := strconv.FormatFloat(longitude, 'f', -1, 64) + "," + strconv.FormatFloat(latitude, 'f', -1, 64)
	return g.lookup(ctx, "reverse", query)
}

func (g *YandexGeocoder) lookup(ctx context.Context, direction, query string) (*GeocodeResult, error) {
	start := time.Now()
	res, err := g.cb.Execute(func() (*GeocodeResult, error) {
		return backoff.RetryWithData(func() (*GeocodeResult, error) {
			return g.fetch(ctx, query)
		}, g.backOff(ctx))
	})
	metrics.RecordGeocode(direction, time.Since(start), err)

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(geocoderBreaker, "success").Inc()
		return res, nil
	case errors.Is(err, utils.ErrValidation):
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(geocoderBreaker, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(geocoderBreaker, "failure").Inc()
	}
	logging.Ctx(ctx).Warn().Err(err).Str("direction", direction).Str("query", query).Msg("geocoding failed")
	return nil, utils.NewUpstream("Geocoding service is unavailable.", err)
}

func (g *YandexGeocoder) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.initialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, g.cfg.MaxRetries), ctx)
}

type yandexResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					MetaDataProperty struct {
						GeocoderMetaData struct {
							Text string `json:"text"`
						} `json:"GeocoderMetaData"`
					} `json:"metaDataProperty"`
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// fetch performs one request. Client errors and unknown addresses are
// permanent; everything else is retried.
func (g *YandexGeocoder) fetch(ctx context.Context, query string) (*GeocodeResult, error) {
	params := url.Values{}
	params.Set("apikey", g.cfg.APIKey)
	params.Set("geocode", query)
	params.Set("format", "json")
	params.Set("results", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("geocoder returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var body yandexResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode geocoder response: %w", err))
	}

	members := body.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return nil, backoff.Permanent(errNoMatch)
	}
	obj := members[0].GeoObject

	// pos is "lon lat"
	fields := strings.Fields(obj.Point.Pos)
	if len(fields) != 2 {
		return nil, backoff.Permanent(fmt.Errorf("unexpected geocoder position %q", obj.Point.Pos))
	}
	lon, err1 := strconv.ParseFloat(fields[0], 64)
	lat, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return nil, backoff.Permanent(fmt.Errorf("unexpected geocoder position %q", obj.Point.Pos))
	}

	return &GeocodeResult{
		Address:   obj.MetaDataProperty.GeocoderMetaData.Text,
		Longitude: lon,
		Latitude:  lat,
	}, nil
}
