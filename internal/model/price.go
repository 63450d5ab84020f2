package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPrice is the largest representable price: five digits, two of them
// after the decimal point (999.99).
const MaxPrice Price = 99999

// Price is a non-float decimal amount stored as hundredths.
//
// On the wire it is a string with exactly two decimals ("5.00"). Decoding
// accepts either a JSON number or a string: 5, 5.5, "5.50".
type Price int64

// ErrPriceFormat is returned for malformed decimal input.
var ErrPriceFormat = errors.New("must be a decimal number with at most 2 decimal places")

// ParsePrice parses a decimal string such as "12", "12.5" or "-3.25".
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrPriceFormat
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrPriceFormat
	}
	if len(frac) > 2 {
		return 0, ErrPriceFormat
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrPriceFormat
	}
	for len(frac) < 2 {
		frac += "0"
	}

	cents, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, ErrPriceFormat
	}
	if neg {
		cents = -cents
	}
	return Price(cents), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Cents returns the amount in hundredths.
func (p Price) Cents() int64 { return int64(p) }

func (p Price) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("price: %w", ErrPriceFormat)
		}
	}

	parsed, err := ParsePrice(raw)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = parsed
	return nil
}
