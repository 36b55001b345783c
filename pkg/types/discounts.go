package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppliedDiscount records one coupon's contribution to an order line at
// placement time. It is snapshotted on the order so later coupon edits
// never change historical totals.
type AppliedDiscount struct {
	CouponID uuid.UUID       `json:"coupon_id"`
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
}

// AppliedDiscounts persists the discount breakdown as JSONB.
type AppliedDiscounts []AppliedDiscount

// Value serializes the breakdown to JSON.
func (a AppliedDiscounts) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the breakdown slice.
func (a *AppliedDiscounts) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded AppliedDiscounts
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Total sums the discount amounts.
func (a AppliedDiscounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range a {
		total = total.Add(d.Amount)
	}
	return total
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("types: unsupported JSONB source %T", value)
	}
}
