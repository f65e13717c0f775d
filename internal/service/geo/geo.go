// Package geo looks up the approximate location of an IP address.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/media"
)

var (
	ErrInvalidIP = errors.New("invalid IP address")
	// ErrPrivateIP is returned for loopback, private and link-local addresses, which have no public location.
	ErrPrivateIP = errors.New("IP address is not publicly routable")
	ErrLookup    = errors.New("geolocation lookup failed")
)

// Location is the subset of the lookup answer shown to users.
type Location struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	MapsURL     string  `json:"mapsUrl"`
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Query       string  `json:"query"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
}

// Client queries an ip-api.com compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.GeoConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ParsePublicIP validates raw and rejects addresses without a public location.
func ParsePublicIP(raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidIP, raw)
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() || addr.IsMulticast() {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrPrivateIP, addr)
	}
	return addr, nil
}

// Lookup resolves ip to a location.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	addr, err := ParsePublicIP(ip)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+addr.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookup, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := sonic.ConfigDefault.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	if body.Status != "success" {
		msg := body.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrLookup, msg)
	}

	query := body.Query
	if query == "" {
		query = addr.String()
	}
	return &Location{
		IP:          query,
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Region:      body.RegionName,
		City:        body.City,
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		Timezone:    body.Timezone,
		ISP:         body.ISP,
		MapsURL:     media.MapsURL(body.Lat, body.Lon),
	}, nil
}
