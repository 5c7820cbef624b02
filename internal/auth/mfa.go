package auth

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp/totp"
)

// Issuer is the TOTP issuer name embedded in enrollment URIs.
const Issuer = "game-lobby"

// qrPixels is the rendered side length, in pixels, of an enrollment
// QR code.
const qrPixels = 256

// MFAEnrollment is returned by GenerateMFASecret: the raw base32
// secret to persist on the User record, and a PNG-encoded QR code of
// the otpauth:// URI for the developer/player client to display.
type MFAEnrollment struct {
	Secret    string
	QRCodePNG []byte
}

// GenerateMFASecret creates a fresh TOTP secret for accountName and
// renders its enrollment QR code.
func GenerateMFASecret(accountName string) (*MFAEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: generating TOTP key: %w", err)
	}

	code, err := qr.Encode(key.String(), qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("auth: encoding QR barcode: %w", err)
	}
	scaled, err := barcode.Scale(code, qrPixels, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("auth: scaling QR barcode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("auth: encoding QR PNG: %w", err)
	}

	return &MFAEnrollment{Secret: key.Secret(), QRCodePNG: buf.Bytes()}, nil
}

// ValidateTOTP reports whether code is currently valid for secret.
func ValidateTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
