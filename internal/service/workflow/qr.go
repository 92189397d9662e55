package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const tokenAttempts = 6

// uniqueToken returns PREFIX-<base36 millis><0-999>, retrying while the
// payments table already holds it.
func (s *Service) uniqueToken(ctx context.Context, prefix string) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		suffix := strconv.FormatInt(s.now().UnixMilli(), 36) + strconv.Itoa(rand.Intn(1000))
		token := strings.ToUpper(prefix + "-" + suffix)
		exists, err := s.payments.TokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return strings.ToUpper(fmt.Sprintf("%s-%d", prefix, s.now().UnixMilli())), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// mockQRDataURL renders the printable mock QR PH card as an SVG data URL.
func mockQRDataURL(amount float64, reference, orNumber string) string {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="340" height="380" viewBox="0 0 340 380">
  <rect width="100%%" height="100%%" fill="#ffffff"/>
  <rect x="20" y="20" width="300" height="300" rx="16" fill="#f8fafc" stroke="#e2e8f0"/>
  <g fill="#0f766e" font-family="Arial, sans-serif" font-weight="700">
    <text x="170" y="70" text-anchor="middle" font-size="22">QR PH</text>
    <text x="170" y="110" text-anchor="middle" font-size="14">Mock Payment</text>
  </g>
  <rect x="70" y="135" width="200" height="160" rx="12" fill="#ffffff" stroke="#e2e8f0"/>
  <g fill="#0f172a" font-family="Arial, sans-serif">
    <text x="170" y="170" text-anchor="middle" font-size="14">Amount</text>
    <text x="170" y="195" text-anchor="middle" font-size="22" font-weight="700">PHP %.2f</text>
    <text x="170" y="225" text-anchor="middle" font-size="12">Ref: %s</text>
    <text x="170" y="245" text-anchor="middle" font-size="12">OR: %s</text>
  </g>
  <g fill="#0f766e" font-family="Arial, sans-serif">
    <text x="170" y="350" text-anchor="middle" font-size="12">Scan with any QR PH app</text>
  </g>
</svg>`, amount, html.EscapeString(truncate(reference, 32)), html.EscapeString(truncate(orNumber, 24)))

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

const qrValidity = 10 * time.Minute
