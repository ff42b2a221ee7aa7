// File: /utils/validators.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func IsValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func IsValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// FormatPoint renders a WKT point; longitude comes first.
func FormatPoint(lon, lat float64) string {
	return fmt.Sprintf("POINT(%s %s)",
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64))
}

// ParsePoint accepts "POINT(lon lat)", "lon lat" or "lon,lat".
func ParsePoint(raw string) (lon, lat float64, err error) {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "POINT") {
		s = strings.TrimSpace(s[len("POINT"):])
		if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
			return 0, 0, fmt.Errorf("malformed point %q", raw)
		}
		s = s[1 : len(s)-1]
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("point %q must have exactly two coordinates", raw)
	}
	if lon, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", parts[0], err)
	}
	if lat, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", parts[1], err)
	}
	if !IsValidLongitude(lon) || !IsValidLatitude(lat) {
		return 0, 0, fmt.Errorf("point %q is out of range", raw)
	}
	return lon, lat, nil
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2006-01-02",
	"02.01.2006",
}

// ParseDatetime accepts ISO 8601 and DD.MM.YYYY forms. Values without a zone
// are taken as UTC; the result is always UTC.
func ParseDatetime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime %q has wrong format", raw)
}
