// Package brl converte valores e textos no formato brasileiro.
package brl

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	moneyTokenRegex = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)
	timeTokenRegex  = regexp.MustCompile(`^\d{1,3}:\d{2}$`)

	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

// ParseCurrency converte um valor monetário (texto no padrão brasileiro ou número nativo)
// para decimal. Retorna nulo quando a entrada é vazia ou não pode ser interpretada.
func ParseCurrency(raw any) decimal.NullDecimal {
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	case *decimal.Decimal:
		if v == nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(*v)
	case decimal.NullDecimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case float32:
		return ParseCurrency(float64(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case string:
		return parseCurrencyString(v)
	case fmt.Stringer:
		return parseCurrencyString(v.String())
	default:
		return parseCurrencyString(fmt.Sprint(v))
	}
}

func parseCurrencyString(s string) decimal.NullDecimal {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	t := b.String()
	if t == "" {
		return decimal.NullDecimal{}
	}
	if strings.Contains(t, ",") {
		t = strings.ReplaceAll(t, ".", "")
		t = strings.ReplaceAll(t, ",", ".")
	}
	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// MustCurrency é ParseCurrency para literais conhecidos; valores inválidos viram zero.
func MustCurrency(s string) decimal.Decimal {
	v := parseCurrencyString(s)
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// FormatBRL formata com separador de milhar "." e decimal "," (ex.: 1.518,00).
func FormatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatMoney formata um valor opcional como "R$ 1.518,00"; nulo vira "-".
func FormatMoney(v decimal.NullDecimal) string {
	if !v.Valid {
		return "-"
	}
	return "R$ " + FormatBRL(v.Decimal)
}

// IsMoneyToken indica se o token tem o formato monetário 1.234,56.
func IsMoneyToken(tok string) bool {
	return moneyTokenRegex.MatchString(tok)
}

// IsTimeToken indica se o token tem o formato de horas H:MM.
func IsTimeToken(tok string) bool {
	return timeTokenRegex.MatchString(tok)
}

// ParseQuantity interpreta a referência de uma verba: "30,00", "30" ou "8:30" (horas).
func ParseQuantity(ref string) (decimal.Decimal, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return decimal.Zero, false
	}
	if IsTimeToken(ref) {
		h, m, _ := strings.Cut(ref, ":")
		hours, err := decimal.NewFromString(h)
		if err != nil {
			return decimal.Zero, false
		}
		minutes, err := decimal.NewFromString(m)
		if err != nil {
			return decimal.Zero, false
		}
		return hours.Add(minutes.Div(sixty)), true
	}
	v := parseCurrencyString(ref)
	if !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// Cents arredonda para centavos.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents devolve o valor em centavos inteiros.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}
