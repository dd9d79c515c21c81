// Package wei converts between the ledger's smallest unit and the
// human-facing ether denomination used by the presentation layer.
package wei

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// FormatEther renders a wei amount as a decimal ether string with
// trailing zeros trimmed, e.g. 1500000000000000000 -> "1.5".
func FormatEther(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -etherDecimals).String()
}

// ParseEther converts a decimal ether string into wei. Fractions finer
// than 18 decimal places are rejected rather than silently truncated.
func ParseEther(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	shifted := d.Shift(etherDecimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", value, etherDecimals)
	}
	return shifted.BigInt(), nil
}
