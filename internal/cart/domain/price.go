package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Price keeps the raw value the upstream sent. The product API is not
// consistent about encoding: prices arrive as JSON numbers, plain strings
// ("1.99") or display strings ("$1.99"). Parsing happens on demand so a bad
// price never blocks loading a cart.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Price(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// Amount parses the price. The second return value reports whether the raw
// value is a finite, non-negative number.
func (p Price) Amount() (float64, bool) {
	s := strings.TrimSpace(string(p))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func (p Price) String() string {
	return string(p)
}
