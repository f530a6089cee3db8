// Package currency renders budget totals as compact, locale-stable labels
// such as "1,5 Mio. €".
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	units "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type tier struct {
	exp    int32
	suffix string
}

// Largest first; the first tier whose threshold abs(n) reaches wins.
var tiers = []tier{
	{exp: 12, suffix: "Bio."},
	{exp: 9, suffix: "Mrd."},
	{exp: 6, suffix: "Mio."},
}

// Formatter formats amounts for one fixed locale and currency.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// New returns a formatter for the given locale and currency unit.
func New(tag language.Tag, unit units.Unit) *Formatter {
	p := message.NewPrinter(tag)
	return &Formatter{
		printer: p,
		symbol:  p.Sprint(units.Symbol(unit)),
	}
}

var german = New(language.German, units.EUR)

// Default returns the German euro formatter used by Format.
func Default() *Formatter { return german }

// Format renders n with the German locale and the euro symbol.
func Format(n int64) string {
	return german.Format(n)
}

// Format renders n. Values of at least one million are scaled to Mio., Mrd.
// or Bio. with one fractional digit; smaller values are rendered as a plain
// amount with two fractional digits.
func (f *Formatter) Format(n int64) string {
	sign := ""
	abs := decimal.NewFromInt(n)
	if n < 0 {
		sign = "-"
		abs = abs.Neg()
	}

	for _, t := range tiers {
		threshold := decimal.New(1, t.exp)
		if abs.LessThan(threshold) {
			continue
		}
		scaled := abs.Div(threshold).RoundBank(1)
		var b strings.Builder
		b.WriteString(sign)
		b.WriteString(f.printer.Sprintf("%.1f", scaled.InexactFloat64()))
		b.WriteByte(' ')
		b.WriteString(t.suffix)
		b.WriteByte(' ')
		b.WriteString(f.symbol)
		return b.String()
	}

	// Every separator, including the one before the symbol, is an ASCII space
	// so labels compare and grep the same in every view.
	return sign + f.printer.Sprintf("%.2f", abs.InexactFloat64()) + " " + f.symbol
}

// Labeler is satisfied by Formatter and lets callers swap in other renderers.
type Labeler interface {
	Format(n int64) string
}
