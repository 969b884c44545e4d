package eventid

import (
	"encoding/json"
	"fmt"
)

// Money is an amount of money represented as a signed count of cents, to
// avoid floating point rounding in totals.
type Money struct {
	cents int64
}

// MoneyFromCents builds a Money value directly from a cent count.
func MoneyFromCents(cents int64) Money { return Money{cents: cents} }

// MoneyFromDollars builds a Money value from a whole-dollar amount.
func MoneyFromDollars(dollars int64) Money { return Money{cents: dollars * 100} }

// Zero is the zero Money value.
func Zero() Money { return Money{} }

func (m Money) Cents() int64 { return m.cents }
func (m Money) Dollars() int64 { return m.cents / 100 }

// CentsPart returns the absolute remainder after whole dollars.
func (m Money) CentsPart() int64 {
	c := m.cents
	if c < 0 {
		c = -c
	}
	return c % 100
}

func (m Money) IsPositive() bool { return m.cents > 0 }
func (m Money) IsZero() bool     { return m.cents == 0 }
func (m Money) IsNegative() bool { return m.cents < 0 }

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Subtract(other Money) Money {
	return Money{cents: m.cents - other.cents}
}

// Multiply scales the amount by a non-negative quantity.
func (m Money) Multiply(quantity uint32) Money {
	return Money{cents: m.cents * int64(quantity)}
}

// MarshalJSON encodes Money as its raw cent count, so event payloads and
// snapshots store an exact integer rather than a rounded decimal.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.cents)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var cents int64
	if err := json.Unmarshal(data, &cents); err != nil {
		return err
	}
	m.cents = cents
	return nil
}

func (m Money) String() string {
	if m.cents < 0 {
		dollars := -m.Dollars()
		return fmt.Sprintf("-$%d.%02d", dollars, m.CentsPart())
	}
	return fmt.Sprintf("$%d.%02d", m.Dollars(), m.CentsPart())
}
