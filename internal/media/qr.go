package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
	// maxQRContent stays below the byte capacity of a version 40 code at medium recovery.
	maxQRContent = 2048
)

var (
	ErrEmptyQRContent  = errors.New("QR content is required")
	ErrQRContentTooBig = errors.New("QR content is too long")
)

// QRCode renders content as a PNG QR code of size×size pixels. A zero size
// selects DefaultQRSize; other sizes are clamped to [MinQRSize, MaxQRSize].
func QRCode(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyQRContent
	}
	if len(content) > maxQRContent {
		return nil, ErrQRContentTooBig
	}

	switch {
	case size == 0:
		size = DefaultQRSize
	case size < MinQRSize:
		size = MinQRSize
	case size > MaxQRSize:
		size = MaxQRSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
