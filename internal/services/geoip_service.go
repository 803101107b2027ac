package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/RamiroHerreraX/lacteos-auth/internal/config"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	pkghttp "github.com/RamiroHerreraX/lacteos-auth/pkg/http"
)

// GeoResolver resolves the geographic origin of a client IP. Resolution is
// best-effort: a nil location with a nil error means the origin could not be
// determined and the session is recorded without one.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*models.GeoLocation, error)
}

// IPInfoResolver looks up addresses against ipinfo.io. Loopback and
// unspecified addresses never reach the network; they resolve to the
// configured fallback location so local development still produces
// plausible session records.
type IPInfoResolver struct {
	client   *http.Client
	token    string
	fallback models.GeoLocation
	logger   *slog.Logger
}

func NewIPInfoResolver(cfg config.GeoConfig, logger *slog.Logger) *IPInfoResolver {
	return &IPInfoResolver{
		client: &http.Client{Timeout: cfg.LookupTimeout},
		token:  cfg.IPInfoToken,
		fallback: models.GeoLocation{
			Country:  cfg.FallbackCountry,
			Region:   cfg.FallbackRegion,
			City:     cfg.FallbackCity,
			Lat:      cfg.FallbackLat,
			Lng:      cfg.FallbackLng,
			Timezone: cfg.FallbackTimezone,
		},
		logger: logger,
	}
}

type ipinfoResponse struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Loc      string `json:"loc"` // "lat,lng"
	Timezone string `json:"timezone"`
}

func (r *IPInfoResolver) Resolve(ctx context.Context, ip string) (*models.GeoLocation, error) {
	if pkghttp.IsLoopback(ip) {
		fallback := r.fallback
		return &fallback, nil
	}

	url := fmt.Sprintf("https://ipinfo.io/%s/json", ip)
	if r.token != "" {
		url += "?token=" + r.token
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("geo lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("geo lookup returned non-OK status",
			slog.String("ip", ip),
			slog.Int("status", resp.StatusCode),
		)
		return nil, nil
	}

	var body ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.logger.Warn("failed to decode geo lookup response",
			slog.String("ip", ip),
			slog.Any("error", err),
		)
		return nil, nil
	}

	location := &models.GeoLocation{
		Country:  body.Country,
		Region:   body.Region,
		City:     body.City,
		Timezone: body.Timezone,
	}
	location.Lat, location.Lng = parseLoc(body.Loc)

	return location, nil
}

func parseLoc(loc string) (float64, float64) {
	parts := strings.SplitN(loc, ",", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return lat, lng
}
