package form

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Layouts accepted by the temporal kinds, tried in order.
var (
	DateLayouts     = []string{"2006-01-02"}
	DateTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}
	TimeLayouts     = []string{"15:04:05", "15:04"}
)

func parseValue(ctx context.Context, db *gorm.DB, f Field, raw string) (interface{}, error) {
	switch f.Kind {
	case KindChoice:
		if !slices.Contains(f.Choices, raw) {
			return nil, fmt.Errorf("%s %w", raw, ErrNoChoice)
		}
		return raw, nil
	case KindChoiceQueryset, KindMultiChoiceQueryset:
		if f.Source == nil {
			return nil, fmt.Errorf("%w: field %s has no source", ErrInvalidValue, f.Name)
		}
		if db == nil {
			return nil, ErrNoDatabase
		}
		return f.Source.Get(db.WithContext(ctx), raw)
	case KindBoolean, KindBooleanTristate:
		return ParseBool(raw)
	case KindInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, raw)
		}
		return n, nil
	case KindFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
		}
		return n, nil
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a decimal", ErrInvalidValue, raw)
		}
		return d, nil
	case KindDate:
		return ParseTime(raw, DateLayouts)
	case KindDateTime:
		return ParseTime(raw, DateTimeLayouts)
	case KindTime:
		return ParseTime(raw, TimeLayouts)
	case KindEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Address != raw {
			return nil, fmt.Errorf("%w: %q is not an email address", ErrInvalidValue, raw)
		}
		return raw, nil
	case KindURL:
		u, err := url.ParseRequestURI(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q is not a URL", ErrInvalidValue, raw)
		}
		return raw, nil
	case KindUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a UUID", ErrInvalidValue, raw)
		}
		return id, nil
	}
	return raw, nil
}

// ParseBool accepts the usual spellings of true and false.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
}

// ParseTime tries each layout in turn.
func ParseTime(raw string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a valid time", ErrInvalidValue, raw)
}
