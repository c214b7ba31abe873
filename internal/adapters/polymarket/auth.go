package polymarket

// auth.go — L2 header auth for CLOB order endpoints.
//
// Canonical message per the official clob-client:
//   message = timestamp + method + requestPath + body(optional)
// signed with HMAC-SHA256 over the base64url-decoded API secret.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// signRequest adds the POLY_* auth headers to an order-endpoint request.
func (c *Client) signRequest(req *http.Request, method, path string, body []byte) error {
	if c.creds == nil {
		return fmt.Errorf("polymarket: order endpoint requires credentials")
	}

	ts := time.Now().Unix()
	sig, err := buildHMACSignature(c.creds.Secret, ts, method, path, body)
	if err != nil {
		return err
	}

	req.Header.Set("POLY_ADDRESS", c.creds.Address)
	req.Header.Set("POLY_API_KEY", c.creds.Key)
	req.Header.Set("POLY_PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(ts, 10))
	req.Header.Set("POLY_SIGNATURE", sig)
	return nil
}

func buildHMACSignature(secret string, timestamp int64, method, requestPath string, body []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(32 + len(method) + len(requestPath) + len(body))
	sb.WriteString(strconv.FormatInt(timestamp, 10))
	sb.WriteString(method)
	sb.WriteString(requestPath)
	if body != nil {
		sb.Write(body)
	}

	decoded, err := base64.StdEncoding.DecodeString(sanitizeBase64Secret(secret))
	if err != nil {
		return "", fmt.Errorf("decode base64 secret: %w", err)
	}

	mac := hmac.New(sha256.New, decoded)
	mac.Write([]byte(sb.String()))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// sanitizeBase64Secret accepts base64url secrets ('-'/'_' variants) and
// restores padding so StdEncoding can decode them.
func sanitizeBase64Secret(secret string) string {
	secret = strings.TrimSpace(secret)
	secret = strings.ReplaceAll(secret, "-", "+")
	secret = strings.ReplaceAll(secret, "_", "/")
	if rem := len(secret) % 4; rem != 0 {
		secret += strings.Repeat("=", 4-rem)
	}
	return secret
}
