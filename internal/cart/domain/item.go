package domain

import (
	"encoding/json"
)

// LineItem is one product entry in a cart. ProductID is the unique key within
// the cart; quantities accumulate on it instead of duplicating rows.
type LineItem struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	UnitPrice   Price  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
}

// Subtotal returns unit price times quantity. ok is false when the price
// does not parse; such entries stay in the cart but are excluded from totals.
func (li LineItem) Subtotal() (float64, bool) {
	amount, ok := li.UnitPrice.Amount()
	if !ok {
		return 0, false
	}
	return amount * float64(li.Quantity), true
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID   string          `json:"productId"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		UnitPrice   Price           `json:"unitPrice"`
		Quantity    json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	li.ProductID = raw.ProductID
	li.Name = raw.Name
	li.Description = raw.Description
	li.UnitPrice = raw.UnitPrice
	li.Quantity = parseQuantity(raw.Quantity)
	return nil
}

// parseQuantity is deliberately forgiving: persisted snapshots written by
// older clients carry quantities as numbers, numeric strings or not at all.
// Anything that does not resolve to a positive integer becomes 1.
func parseQuantity(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 1 {
			return 1
		}
		return n
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 1 {
			return 1
		}
		return int(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var num json.Number = json.Number(s)
		if i, err := num.Int64(); err == nil && i >= 1 {
			return int(i)
		}
	}

	return 1
}

// EncodeItems serializes cart entries into the snapshot format stored in the
// key-value store: a JSON array of line items.
func EncodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

// DecodeItems parses a persisted snapshot, normalizing quantities on the way
// in. Duplicate product ids collapse into one entry with summed quantities so
// a corrupt snapshot cannot break the one-row-per-product invariant.
func DecodeItems(data []byte) ([]LineItem, error) {
	var raw []LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, item := range raw {
		if item.ProductID == "" {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}
	return items, nil
}
