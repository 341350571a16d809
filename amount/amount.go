// Package amount canonicalizes and formats monetary values carried as
// integer minor units with an asset code and scale.
package amount

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/openpay/types"
)

// NotAvailable is rendered for a nil amount.
const NotAvailable = "not available"

// NormalizeMinorUnits canonicalizes a non-negative integer value into its
// base-10 string form with no redundant leading zeros. Accepted inputs are
// integer kinds, integral non-negative floats (the shape JSON numbers decode
// to) and digit-only strings; anything else fails with a validation error.
func NormalizeMinorUnits(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return normalizeDigits(v)
	case int:
		return normalizeInt64(int64(v))
	case int32:
		return normalizeInt64(int64(v))
	case int64:
		return normalizeInt64(v)
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		if v < 0 {
			return "", types.NewValidationError("amount must not be negative: %v", v)
		}
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return "", types.NewValidationError("amount must be an integer in minor units: %v", v)
		}
		return decimal.NewFromFloat(v).String(), nil
	case nil:
		return "", types.NewValidationError("amount is required")
	default:
		return "", types.NewValidationError("unsupported amount type %T", value)
	}
}

func normalizeInt64(v int64) (string, error) {
	if v < 0 {
		return "", types.NewValidationError("amount must not be negative: %d", v)
	}
	return strconv.FormatInt(v, 10), nil
}

func normalizeDigits(s string) (string, error) {
	if s == "" {
		return "", types.NewValidationError("amount is required")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", types.NewValidationError("amount must be a non-negative integer string: %q", s)
		}
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0", nil
	}
	return trimmed, nil
}

// BuildAmount assembles the amount for a charge. Asset code and scale come
// from the charge when present, otherwise from the receiving wallet's
// published defaults.
func BuildAmount(charge *types.Charge, wallet *types.Wallet) (*types.Amount, error) {
	value, err := NormalizeMinorUnits(charge.AmountMinorUnits)
	if err != nil {
		return nil, err
	}

	code := charge.AssetCode
	scale := 0
	switch {
	case code != "" && charge.AssetScale != nil:
		scale = *charge.AssetScale
	case wallet != nil && wallet.AssetCode != "":
		if code == "" {
			code = wallet.AssetCode
		}
		if charge.AssetScale != nil {
			scale = *charge.AssetScale
		} else {
			scale = wallet.AssetScale
		}
	default:
		return nil, types.NewUnprocessableError("no asset code/scale on charge or receiving wallet")
	}

	return &types.Amount{Value: value, AssetCode: code, AssetScale: scale}, nil
}

// FormatAmount renders value / 10^assetScale fixed to assetScale decimal
// places followed by the asset code, e.g. {"150000", 2, "USD"} -> "1500.00
// USD". A nil amount renders as the not-available sentinel.
func FormatAmount(a *types.Amount) string {
	if a == nil {
		return NotAvailable
	}

	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return NotAvailable
	}

	scaled := d.Shift(int32(-a.AssetScale))
	return scaled.StringFixed(int32(a.AssetScale)) + " " + a.AssetCode
}
