// Package media holds the small image utilities: QR rendering, EXIF parsing
// and format conversion for downloads and uploads.
package media

import "fmt"

// MapsURL links a coordinate pair to Google Maps.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lon)
}
