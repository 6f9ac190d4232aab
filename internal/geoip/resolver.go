// Package geoip resolves client IP addresses to approximate locations via an
// external ip-api style provider.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/lynks/portal/internal/metrics"
)

// DefaultTimeout bounds the outbound lookup. Geolocation sits on the
// ingestion path, so a slow provider must not hold up event writes.
const DefaultTimeout = 2 * time.Second

// localSentinel is returned for loopback and private-range addresses.
const localSentinel = "Local"

// Location is a best-effort resolved location. Every field is optional;
// callers must tolerate the zero value.
type Location struct {
	Region    string
	Country   string
	City      string
	Latitude  *float64
	Longitude *float64
}

// IsZero reports whether no location data was resolved.
func (l Location) IsZero() bool {
	return l.Region == "" && l.Country == "" && l.City == "" &&
		l.Latitude == nil && l.Longitude == nil
}

// providerResponse mirrors the ip-api JSON body.
type providerResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Resolver looks up locations for public IP addresses.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewResolver creates a Resolver against the given provider base URL
// (e.g. http://ip-api.com/json). A zero timeout falls back to DefaultTimeout.
func NewResolver(baseURL string, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "geoip.resolver"),
		metrics: recorder,
	}
}

// Resolve returns the best-effort location for ip. Loopback and private
// addresses short-circuit to the Local sentinel without network I/O. Lookup
// failures of any kind degrade to the empty Location; Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, ip string) Location {
	if IsPrivate(ip) {
		r.metrics.IncGeoLookup("local")
		return Location{Region: localSentinel, Country: localSentinel, City: localSentinel}
	}

	loc, err := r.lookup(ctx, ip)
	if err != nil {
		r.logger.Warn("geolocation lookup failed", "error", err)
		r.metrics.IncGeoLookup("error")
		return Location{}
	}
	if loc.IsZero() {
		r.metrics.IncGeoLookup("miss")
	} else {
		r.metrics.IncGeoLookup("hit")
	}
	return loc
}

func (r *Resolver) lookup(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/%s", r.baseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Location{}, fmt.Errorf("provider status %d", resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode provider body: %w", err)
	}

	if body.Status != "success" {
		// Miss, not an error: the provider answered but has no data.
		return Location{}, nil
	}

	lat, lon := body.Lat, body.Lon
	return Location{
		Region:    body.RegionName,
		Country:   body.Country,
		City:      body.City,
		Latitude:  &lat,
		Longitude: &lon,
	}, nil
}

// IsPrivate reports whether ip is loopback or in the 10.x / 192.168.x
// private ranges. Unparseable IPs are treated as private so they never
// reach the provider.
func IsPrivate(ip string) bool {
	if ip == "" || ip == "::1" || ip == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(ip, "10.") || strings.HasPrefix(ip, "192.168.") {
		return true
	}
	parsed, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate()
}
