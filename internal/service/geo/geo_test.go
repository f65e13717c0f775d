package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","query":"8.8.8.8","country":"United States","countryCode":"US","regionName":"Virginia","city":"Ashburn","lat":39.03,"lon":-77.5,"timezone":"America/New_York","isp":"Google LLC"}`))
	}))
	defer srv.Close()

	client := NewClient(config.GeoConfig{BaseURL: srv.URL + "/", Timeout: time.Second})
	loc, err := client.Lookup(context.Background(), " 8.8.8.8 ")
	require.NoError(t, err)
	assert.Equal(t, "Ashburn", loc.City)
	assert.Equal(t, "Virginia", loc.Region)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "https://www.google.com/maps?q=39.030000,-77.500000", loc.MapsURL)
}

func TestLookupFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range","query":"1.1.1.1"}`))
	}))
	defer srv.Close()

	client := NewClient(config.GeoConfig{BaseURL: srv.URL})
	_, err := client.Lookup(context.Background(), "1.1.1.1")
	require.ErrorIs(t, err, ErrLookup)
	assert.Contains(t, err.Error(), "reserved range")
}

func TestLookupHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.GeoConfig{BaseURL: srv.URL})
	_, err := client.Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, ErrLookup)
}

func TestParsePublicIP(t *testing.T) {
	_, err := ParsePublicIP("not-an-ip")
	assert.ErrorIs(t, err, ErrInvalidIP)

	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "::1", "fe80::1", "0.0.0.0", "::ffff:10.0.0.1"} {
		_, err := ParsePublicIP(ip)
		assert.ErrorIs(t, err, ErrPrivateIP, ip)
	}

	addr, err := ParsePublicIP("2001:4860:4860::8888")
	require.NoError(t, err)
	assert.True(t, addr.Is6())
}
