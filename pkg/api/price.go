package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid price")

// Price is an amount in cents. On the wire it is a decimal string with two
// places ("19.99"); numbers are accepted when decoding.
type Price int64

// MaxPriceUnits is the largest whole amount a price may carry, matching a
// ten digit decimal column with two places.
const MaxPriceUnits = 99_999_999

func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative: %s", ErrInvalidPrice, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: more than two decimal places: %s", ErrInvalidPrice, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > MaxPriceUnits {
		return 0, fmt.Errorf("%w: out of range: %s", ErrInvalidPrice, s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
	}
	return Price(units*100 + cents), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidPrice, string(data))
		}
		s = n.String()
	}
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
