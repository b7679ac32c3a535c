// internal/money/money.go
package money

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount of currency held as an integer number of minor units
// (cents). Arithmetic on Money never drifts; rounding happens only when a
// rate is applied or a decimal is converted in.
type Money int64

const Zero Money = 0

var half = decimal.New(5, -1)

// Cents builds a Money from a count of minor units.
func Cents(c int64) Money {
	return Money(c)
}

// FromDecimal converts a decimal amount to Money, rounding half-up at the cent.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).Add(half).Floor().IntPart())
}

// FromFloat converts a float amount to Money. Only use this at boundaries
// where the source is already a float (catalog imports, provider payloads).
func FromFloat(f float64) Money {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a decimal string such as "9.99" or "$12.5".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

func (m Money) Add(o Money) Money {
	return m + o
}

func (m Money) Sub(o Money) Money {
	return m - o
}

// Mul multiplies by an integer quantity.
func (m Money) Mul(quantity int) Money {
	return m * Money(quantity)
}

// MulRate multiplies by a fractional rate (tax, fee) and rounds half-up at
// the cent.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(rate))
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) IsZero() bool {
	return m == 0
}

func (m Money) IsPositive() bool {
	return m > 0
}

// String formats with exactly two decimals, e.g. "36.99".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format prefixes the two-decimal amount with a currency symbol.
func (m Money) Format(symbol string) string {
	if m < 0 {
		return "-" + symbol + (-m).String()
	}
	return symbol + m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.34" and 12.34.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores Money in a decimal(10,2) column.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Zero
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case float64:
		*m = FromFloat(v)
		return nil
	case int64:
		*m = Money(v * 100)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) scanString(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
