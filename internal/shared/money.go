package shared

import (
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is appended to formatted amounts when no symbol is configured.
const DefaultCurrency = "FCFA"

var (
	spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")
	currency      atomic.Value
)

func init() {
	currency.Store(DefaultCurrency)
}

// SetCurrency changes the symbol used by FormatMoney. A blank symbol restores
// DefaultCurrency.
func SetCurrency(symbol string) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = DefaultCurrency
	}
	currency.Store(symbol)
}

// Currency returns the symbol used by FormatMoney.
func Currency() string {
	return currency.Load().(string)
}

// FormatMoney renders an amount rounded to the unit with French digit grouping,
// e.g. "100 000 FCFA".
func FormatMoney(amount decimal.Decimal) string {
	return FormatMoneyWith(amount, Currency())
}

// FormatMoneyWith is FormatMoney with an explicit currency symbol. An empty
// symbol yields the grouped number only.
func FormatMoneyWith(amount decimal.Decimal, currency string) string {
	p := message.NewPrinter(language.French)
	out := spaceReplacer.Replace(p.Sprintf("%d", amount.Round(0).IntPart()))
	if currency == "" {
		return out
	}
	return out + " " + currency
}

// SumMoney adds amounts.
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
