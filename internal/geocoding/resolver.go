package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/config"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
)

// NominatimResolver is the HTTP adapter for a Nominatim-compatible
// geocoding provider. Lookups are biased to the configured country and
// viewbox; whatever the provider returns is accepted as-is.
type NominatimResolver struct {
	baseURL     string
	userAgent   string
	countryCode string
	viewbox     string
	httpClient  *http.Client
}

func NewNominatimResolver(cfg *config.Config) *NominatimResolver {
	timeout := cfg.GeocoderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NominatimResolver{
		baseURL:     cfg.GeocoderBaseURL,
		userAgent:   cfg.GeocoderUserAgent,
		countryCode: cfg.CountryCode,
		// lon,lat pairs: west,north,east,south
		viewbox: fmt.Sprintf("%f,%f,%f,%f",
			cfg.ViewboxWest, cfg.ViewboxNorth, cfg.ViewboxEast, cfg.ViewboxSouth),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve performs one address lookup. A context already cancelled on
// entry fails fast without touching the network; a timeout maps to
// StatusTransient so callers never cache it as a negative result.
func (r *NominatimResolver) Resolve(ctx context.Context, address string) ResolveResult {
	log := logger.GetLogger("resolver")

	if err := ctx.Err(); err != nil {
		return ResolveResult{Status: StatusTransient, Err: err}
	}

	params := url.Values{
		"q":            {address},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {r.countryCode},
		"viewbox":      {r.viewbox},
	}
	reqURL := fmt.Sprintf("%s/search?%s", r.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return r.outcome(ResolveResult{Status: StatusTransient, Err: fmt.Errorf("build request: %w", err)})
	}
	req.Header.Set("User-Agent", r.userAgent)

	// the request goes on the wire from here on; every outcome below
	// counts as a provider round-trip
	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Warnf("Provider lookup failed (%s): %v", address, err)
		return r.outcome(ResolveResult{Status: StatusTransient, Err: err, Contacted: true})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		log.Warnf("Provider rate limited the request (%s)", address)
		return r.outcome(ResolveResult{Status: StatusRateLimited, Contacted: true})
	}
	if resp.StatusCode != http.StatusOK {
		log.Warnf("Provider lookup failed (%s): status=%d", address, resp.StatusCode)
		return r.outcome(ResolveResult{
			Status:    StatusTransient,
			Err:       fmt.Errorf("provider status %d", resp.StatusCode),
			Contacted: true,
		})
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		log.Warnf("Provider response parse failed (%s): %v", address, err)
		return r.outcome(ResolveResult{Status: StatusTransient, Err: fmt.Errorf("decode response: %w", err), Contacted: true})
	}

	if len(results) == 0 {
		return r.outcome(ResolveResult{Status: StatusNotFound, Contacted: true})
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return r.outcome(ResolveResult{Status: StatusTransient, Err: fmt.Errorf("parse lat: %w", err), Contacted: true})
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return r.outcome(ResolveResult{Status: StatusTransient, Err: fmt.Errorf("parse lon: %w", err), Contacted: true})
	}

	return r.outcome(ResolveResult{
		Status:    StatusResolved,
		Coord:     Coordinate{Lat: lat, Lng: lng},
		Contacted: true,
	})
}

func (r *NominatimResolver) outcome(res ResolveResult) ResolveResult {
	providerCalls.WithLabelValues(res.Status.String()).Inc()
	return res
}
