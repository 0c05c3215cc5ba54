// Package rates loads the static currency-rate table.
// The table is read once at startup; nothing in the serving path
// consults it yet, but a malformed file is still a fatal boot error.
package rates

import (
	"encoding/json"
	"fmt"
	"os"
)

// Table maps a currency code to its USD multiplier.
type Table map[string]float64

// Load reads a JSON object of currency code to multiplier from path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rates file %s: %w", path, err)
	}

	return table, nil
}

// Rate returns the multiplier for a currency code.
func (t Table) Rate(code string) (float64, bool) {
	rate, ok := t[code]
	return rate, ok
}

// Convert converts an amount in the given currency to USD. Unknown
// currencies convert to zero, matching the lookup-or-nothing shape of
// the table; USD passes through unchanged.
func (t Table) Convert(amount float64, code string) float64 {
	if code == "USD" {
		return amount
	}
	rate, ok := t[code]
	if !ok {
		return 0
	}
	return amount * rate
}
