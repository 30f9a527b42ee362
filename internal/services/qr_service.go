package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated QR images.
const QRSize = 256

// EncodeQR renders content as a base64 PNG QR code so a delivered code can
// be scanned from another device.
func EncodeQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(QRSize)); err != nil {
		return "", fmt.Errorf("encode qr png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
