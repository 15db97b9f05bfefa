// Package complement calcula o valor complementar a pagar fora da folha.
package complement

import (
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Variant é a fórmula usada fora do caso especial.
type Variant string

const (
	// VariantNetSubtraction: bruto proporcional - líquido da folha.
	VariantNetSubtraction Variant = "liquido"
	// VariantLedger: bruto proporcional + outros proventos - adiantamento - IRRF - outros descontos.
	VariantLedger Variant = "ledger"
)

// Rótulos gravados em regra_aplicada.
const (
	LabelNetSubtraction   = "PADRAO (BRUTO - LIQUIDO)"
	LabelLedger           = "PADRAO (LEDGER)"
	LabelSpecial          = "ESPECIAL (BRUTO - 8781 - IRRF)"
	LabelMissingReference = "SEM BRUTO REFERENCIAL"
)

// Notas de revisão.
const (
	NoteMissingName      = "nome não identificado na folha"
	NoteMissingCPF       = "CPF não identificado na folha"
	NoteMissingNet       = "líquido não identificado na folha"
	NoteMissingReference = "bruto referencial não encontrado na planilha"
)

const (
	DefaultReferenceDays = 30
	maxCalendarDays      = 31
)

var daysInMonth = decimal.NewFromInt(DefaultReferenceDays)

// Rules é a regra de negócio configurável.
type Rules struct {
	Variant          Variant
	NetThreshold     decimal.Decimal
	BaseCodes        []string
	AdvanceCodes     []string
	WithholdingCodes []string
}

// DefaultRules: líquido menos bruto, limiar 0,00, 8781 / 981 / 998 e 999.
func DefaultRules() Rules {
	return Rules{
		Variant:          VariantNetSubtraction,
		NetThreshold:     decimal.Zero,
		BaseCodes:        []string{"8781"},
		AdvanceCodes:     []string{"981"},
		WithholdingCodes: []string{"998", "999"},
	}
}

// ParseVariant aceita "liquido" e "ledger"; qualquer outro valor cai no padrão.
func ParseVariant(s string) Variant {
	if Variant(strings.ToLower(strings.TrimSpace(s))) == VariantLedger {
		return VariantLedger
	}
	return VariantNetSubtraction
}

// Input reúne o que o cálculo precisa de um colaborador.
type Input struct {
	Name           string
	CPF            string
	Status         string
	ReferenceGross decimal.NullDecimal
	DeclaredNet    decimal.NullDecimal
	Events         []domain.PayEvent
}

// Ledger são os valores derivados das verbas conciliadas.
type Ledger struct {
	ContractedSalary     decimal.Decimal
	ReferenceDays        decimal.Decimal
	OtherEarnings        decimal.Decimal
	AdvanceDeduction     decimal.Decimal
	WithholdingDeduction decimal.Decimal
	OtherDeductions      decimal.Decimal
}

// Result é o cálculo de uma linha.
type Result struct {
	Ledger
	ProportionalGross decimal.NullDecimal
	Payable           decimal.NullDecimal
	Rule              string
	Review            bool
	Notes             []string
}

// Calculator aplica Rules.
type Calculator struct {
	rules       Rules
	base        map[string]struct{}
	advance     map[string]struct{}
	withholding map[string]struct{}
}

// NewCalculator cria o calculador. Listas de código vazias usam as de DefaultRules.
func NewCalculator(rules Rules) *Calculator {
	def := DefaultRules()
	if len(rules.BaseCodes) == 0 {
		rules.BaseCodes = def.BaseCodes
	}
	if len(rules.AdvanceCodes) == 0 {
		rules.AdvanceCodes = def.AdvanceCodes
	}
	if len(rules.WithholdingCodes) == 0 {
		rules.WithholdingCodes = def.WithholdingCodes
	}
	if rules.Variant == "" {
		rules.Variant = def.Variant
	}
	return &Calculator{
		rules:       rules,
		base:        codeSet(rules.BaseCodes),
		advance:     codeSet(rules.AdvanceCodes),
		withholding: codeSet(rules.WithholdingCodes),
	}
}

// Rules devolve a regra em uso.
func (c *Calculator) Rules() Rules {
	return c.rules
}

// Summarize separa as verbas em salário contratual, adiantamento, IRRF e demais.
func (c *Calculator) Summarize(events []domain.PayEvent) Ledger {
	l := Ledger{ReferenceDays: daysInMonth}
	referenceSet := false
	for _, ev := range events {
		_, isBase := c.base[ev.Code]
		if ev.Earning.Valid {
			if isBase {
				l.ContractedSalary = l.ContractedSalary.Add(ev.Earning.Decimal)
			} else {
				l.OtherEarnings = l.OtherEarnings.Add(ev.Earning.Decimal)
			}
		}
		if ev.Deduction.Valid {
			switch {
			case c.has(c.advance, ev.Code):
				l.AdvanceDeduction = l.AdvanceDeduction.Add(ev.Deduction.Decimal)
			case c.has(c.withholding, ev.Code):
				l.WithholdingDeduction = l.WithholdingDeduction.Add(ev.Deduction.Decimal)
			default:
				l.OtherDeductions = l.OtherDeductions.Add(ev.Deduction.Decimal)
			}
		}
		if isBase && !referenceSet && strings.TrimSpace(ev.Reference) != "" {
			l.ReferenceDays = referenceDays(ev.Reference)
			referenceSet = true
		}
	}
	return l
}

// Compute calcula o valor a pagar. Nunca falha: entradas ausentes viram notas de revisão.
func (c *Calculator) Compute(in Input) Result {
	res := Result{Ledger: c.Summarize(in.Events)}

	if strings.TrimSpace(in.Name) == "" {
		res.addNote(NoteMissingName)
	}
	if brl.Digits(in.CPF) == "" {
		res.addNote(NoteMissingCPF)
	}
	if !in.DeclaredNet.Valid {
		res.addNote(NoteMissingNet)
	}
	if !in.ReferenceGross.Valid {
		res.addNote(NoteMissingReference)
		res.Rule = LabelMissingReference
		return res
	}

	proportional := in.ReferenceGross.Decimal.Mul(res.ReferenceDays).Div(daysInMonth).Round(2)
	res.ProportionalGross = decimal.NewNullDecimal(proportional)

	netAtThreshold := in.DeclaredNet.Valid && in.DeclaredNet.Decimal.LessThanOrEqual(c.rules.NetThreshold)
	hasAdvance := res.AdvanceDeduction.IsPositive()

	var payable decimal.Decimal
	switch {
	case (netAtThreshold || hasAdvance) && IsActive(in.Status):
		res.Rule = LabelSpecial
		payable = proportional.Sub(res.ContractedSalary).Sub(res.WithholdingDeduction)
	case c.rules.Variant == VariantLedger:
		res.Rule = LabelLedger
		payable = proportional.Add(res.OtherEarnings).
			Sub(res.AdvanceDeduction).
			Sub(res.WithholdingDeduction).
			Sub(res.OtherDeductions)
	default:
		res.Rule = LabelNetSubtraction
		if !in.DeclaredNet.Valid {
			return res
		}
		payable = proportional.Sub(in.DeclaredNet.Decimal)
	}

	if payable.IsNegative() {
		payable = decimal.Zero
	}
	res.Payable = decimal.NewNullDecimal(payable.Round(2))
	return res
}

// IsActive reconhece ATIVO/ATIVA como palavra do status (INATIVO não conta).
func IsActive(status string) bool {
	for _, tok := range brl.Tokens(brl.NormalizeName(status)) {
		if tok == "ATIVO" || tok == "ATIVA" {
			return true
		}
	}
	return false
}

// referenceDays lê os dias da verba de salário: "30,00" ou "15". Horas, zero ou valores acima
// de 31 voltam para 30; o resultado nunca passa de 30.
func referenceDays(ref string) decimal.Decimal {
	if brl.IsTimeToken(strings.TrimSpace(ref)) {
		return daysInMonth
	}
	days, ok := brl.ParseQuantity(ref)
	if !ok || !days.IsPositive() || days.GreaterThan(decimal.NewFromInt(maxCalendarDays)) {
		return daysInMonth
	}
	if days.GreaterThan(daysInMonth) {
		return daysInMonth
	}
	return days
}

func (r *Result) addNote(note string) {
	r.Review = true
	r.Notes = append(r.Notes, note)
}

func (c *Calculator) has(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code = strings.TrimSpace(code); code != "" {
			set[code] = struct{}{}
		}
	}
	return set
}
