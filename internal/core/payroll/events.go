package payroll

import (
	"regexp"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
)

var eventCodeRegex = regexp.MustCompile(`^\d{3,4}$`)

// minEventTokens: código, descrição e pelo menos um valor (mais a referência ou uma segunda palavra).
const minEventTokens = 4

// ParseEventLine interpreta uma linha do quadro de verbas usando o classificador padrão.
func ParseEventLine(line string) (domain.PayEvent, bool) {
	return DefaultClassifier().ParseEventLine(line)
}

// ExtractEvents percorre o texto da página linha a linha usando o classificador padrão.
func ExtractEvents(text string) []domain.PayEvent {
	return DefaultClassifier().ExtractEvents(text)
}

// ParseEventLine reconhece "CÓDIGO DESCRIÇÃO [REFERÊNCIA] VALOR [VALOR]".
//
// Até dois valores monetários finais são retirados. Se o token que sobra no fim não parece
// referência (nem H:MM nem valor) e havia dois valores, o primeiro era a referência e o
// segundo o único valor da linha. Com dois valores, a posição define provento/desconto;
// com um só, vale a polaridade do código ou da descrição (provento quando indefinida).
func (c *Classifier) ParseEventLine(line string) (domain.PayEvent, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < minEventTokens || !eventCodeRegex.MatchString(tokens[0]) {
		return domain.PayEvent{}, false
	}
	code := tokens[0]
	rest := tokens[1:]

	var amounts []string
	for len(amounts) < 2 && len(rest) > 0 && brl.IsMoneyToken(rest[len(rest)-1]) {
		amounts = append([]string{rest[len(rest)-1]}, amounts...)
		rest = rest[:len(rest)-1]
	}
	if len(amounts) == 0 || len(rest) == 0 {
		return domain.PayEvent{}, false
	}

	var reference string
	last := rest[len(rest)-1]
	looksLikeReference := brl.IsTimeToken(last) || brl.IsMoneyToken(last)
	switch {
	case !looksLikeReference && len(amounts) == 2:
		reference, amounts = amounts[0], amounts[1:]
	case looksLikeReference:
		reference = last
		rest = rest[:len(rest)-1]
	}

	description := strings.Join(rest, " ")
	if description == "" {
		return domain.PayEvent{}, false
	}

	ev := domain.PayEvent{Code: code, Description: description, Reference: reference}
	if len(amounts) == 2 {
		ev.Earning = brl.ParseCurrency(amounts[0])
		ev.Deduction = brl.ParseCurrency(amounts[1])
		return ev, true
	}

	value := brl.ParseCurrency(amounts[0])
	if c.Polarity(code, description) == PolarityDeduction {
		ev.Deduction = value
	} else {
		ev.Earning = value
	}
	return ev, true
}

// ExtractEvents devolve as verbas da página sem repetições.
func (c *Classifier) ExtractEvents(text string) []domain.PayEvent {
	var events []domain.PayEvent
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		ev, ok := c.ParseEventLine(line)
		if !ok {
			continue
		}
		events = appendUnique(events, seen, ev)
	}
	return events
}

func appendUnique(events []domain.PayEvent, seen map[string]struct{}, ev domain.PayEvent) []domain.PayEvent {
	key := eventKey(ev)
	if _, dup := seen[key]; dup {
		return events
	}
	seen[key] = struct{}{}
	return append(events, ev)
}

func eventKey(ev domain.PayEvent) string {
	return strings.Join([]string{
		ev.Code, ev.Description, ev.Reference, nullKey(ev.Earning), nullKey(ev.Deduction),
	}, "|")
}

func nullKey(v decimal.NullDecimal) string {
	if !v.Valid {
		return "-"
	}
	return v.Decimal.String()
}

// hasCode indica se alguma verba já usa o código.
func hasCode(events []domain.PayEvent, code string) bool {
	for _, ev := range events {
		if ev.Code == code {
			return true
		}
	}
	return false
}
