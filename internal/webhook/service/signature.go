package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/subgate/internal/webhook/domain"
)

// defaultTolerance bounds how old a signed delivery may be before it is
// rejected as a possible replay.
const defaultTolerance = 5 * time.Minute

// verifySignature checks a vendor signature header of the form
// "t=<unix>,v1=<hex hmac>[,v1=...]" against the raw payload. The signed
// message is "<unix>.<payload>" keyed with the endpoint secret.
func verifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return domain.ErrSignatureExpired
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		decoded, err := hex.DecodeString(signature)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func parseSignatureHeader(header string) (timestamp int64, signatures []string, err error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, domain.ErrInvalidSignature
	}
	for _, pair := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, domain.ErrInvalidSignature
			}
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, domain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
