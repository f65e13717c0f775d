package media

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrNoExif is returned when an image carries no readable EXIF block.
var ErrNoExif = errors.New("no EXIF metadata found")

// GPS is a decoded EXIF position.
type GPS struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	MapsURL   string  `json:"mapsUrl"`
}

// ExifInfo is the subset of EXIF shown to users.
type ExifInfo struct {
	Make    string     `json:"make,omitempty"`
	Model   string     `json:"model,omitempty"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
	GPS     *GPS       `json:"gps,omitempty"`
}

// ReadExif extracts camera, timestamp and GPS fields. Missing fields are left empty.
func ReadExif(data []byte) (*ExifInfo, error) {
	if len(data) == 0 {
		return nil, ErrNoExif
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		if exif.IsCriticalError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNoExif, err)
		}
		// 非致命错误时 x 仍可用，继续读取已解析的字段。
		if x == nil {
			return nil, fmt.Errorf("%w: %v", ErrNoExif, err)
		}
	}

	info := &ExifInfo{
		Make:  stringTag(x, exif.Make),
		Model: stringTag(x, exif.Model),
	}
	if taken, err := x.DateTime(); err == nil {
		info.TakenAt = &taken
	}
	if lat, lon, err := x.LatLong(); err == nil {
		info.GPS = &GPS{Latitude: lat, Longitude: lon, MapsURL: MapsURL(lat, lon)}
	}
	return info, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(value, "\x00"))
}
