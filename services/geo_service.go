package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ouerghi0x/cv-maker-sub000/utils"
)

// GeoService maps a network address to a coarse "City, Country" string for
// display. It is best-effort: every failure, timeout or disablement
// degrades to an empty string and never affects the quota decision.
type GeoService interface {
	Lookup(ctx context.Context, ip string) string
}

type geoService struct {
	enabled bool
	baseURL string
	client  *http.Client
	cache   *utils.TTLCache
}

// NewGeoService creates a new instance of GeoService. cache may be shared;
// it bounds how often the third-party endpoint is hit per address.
func NewGeoService(enabled bool, baseURL string, timeout time.Duration, cache *utils.TTLCache) GeoService {
	return &geoService{
		enabled: enabled,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
	}
}

type geoAPIResponse struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
}

// Lookup resolves ip to a location string, or "" when unknown.
func (s *geoService) Lookup(ctx context.Context, ip string) string {
	if !s.enabled || ip == "" {
		return ""
	}

	// Skip for localhost/development addresses.
	if ip == "127.0.0.1" || ip == "::1" || strings.HasPrefix(ip, "192.168.") {
		return "Local Development"
	}

	if cached, ok := s.cache.Get(ip); ok {
		return cached
	}

	url := fmt.Sprintf("%s/%s/json/", s.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("WARN: [GeoService] Failed to build lookup request for %s: %v", ip, err)
		return ""
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("WARN: [GeoService] Lookup for %s failed: %v", ip, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: [GeoService] Lookup for %s returned status %d.", ip, resp.StatusCode)
		return ""
	}

	var data geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("WARN: [GeoService] Failed to decode lookup response for %s: %v", ip, err)
		return ""
	}

	city := data.City
	if city == "" {
		city = "Unknown"
	}
	country := data.CountryName
	if country == "" {
		country = "Unknown"
	}
	location := city + ", " + country

	s.cache.Set(ip, location)
	return location
}
