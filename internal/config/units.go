package config

import (
	"strconv"
	"strings"
	"unicode"

	apperrors "nunu-cli/internal/pkg/errors"
)

// ParseRateLimit parses a bandwidth such as "100MB/s", "1.5GB/s" or "500K".
// It returns bytes per second; 0 means unlimited. Units are base 1024.
func ParseRateLimit(rateStr string) (int64, error) {
	original := rateStr
	rateStr = strings.ToUpper(strings.TrimSpace(rateStr))
	if rateStr == "" || rateStr == "0" || rateStr == "-1" {
		return 0, nil
	}
	rateStr = strings.TrimSpace(strings.TrimSuffix(rateStr, "/S"))

	numEnd := 0
	for i, r := range rateStr {
		if !unicode.IsDigit(r) && r != '.' {
			break
		}
		numEnd = i + 1
	}
	if numEnd == 0 {
		return 0, apperrors.NewParsingError("rate limit", original, nil)
	}

	value, err := strconv.ParseFloat(rateStr[:numEnd], 64)
	if err != nil {
		return 0, apperrors.NewParsingError("rate limit", original, err)
	}
	if value <= 0 {
		return 0, nil
	}

	var multiplier float64
	switch strings.TrimSpace(rateStr[numEnd:]) {
	case "", "B", "BYTE", "BYTES":
		multiplier = 1
	case "KB", "K":
		multiplier = 1024
	case "MB", "M":
		multiplier = 1024 * 1024
	case "GB", "G":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, apperrors.NewParsingError("rate limit", original, nil)
	}
	return int64(value * multiplier), nil
}
