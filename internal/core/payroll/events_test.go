package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func assertMoney(t *testing.T, want string, got decimal.NullDecimal, msgAndArgs ...any) {
	t.Helper()
	if want == "" {
		assert.False(t, got.Valid, msgAndArgs...)
		return
	}
	if assert.True(t, got.Valid, msgAndArgs...) {
		assert.True(t, got.Decimal.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got.Decimal)
	}
}

func TestParseEventLineReferenceAdjacentToAmount(t *testing.T) {
	ev, ok := ParseEventLine("8781 SALARIO CONTRATUAL. 30,00 1.518,00")
	require.True(t, ok)
	assert.Equal(t, "8781", ev.Code)
	assert.Equal(t, "SALARIO CONTRATUAL.", ev.Description)
	assert.Equal(t, "30,00", ev.Reference)
	assertMoney(t, "1518.00", ev.Earning)
	assertMoney(t, "", ev.Deduction)
}

func TestParseEventLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		code      string
		desc      string
		ref       string
		earning   string
		deduction string
	}{
		{
			name: "time reference", line: "0250 HORAS EXTRAS 50% 8:30 210,50",
			code: "0250", desc: "HORAS EXTRAS 50%", ref: "8:30", earning: "210.50",
		},
		{
			name: "advance code forces deduction", line: "981 DESC ADIANTAMENTO 40,00 607,20",
			code: "981", desc: "DESC ADIANTAMENTO", ref: "40,00", deduction: "607.20",
		},
		{
			name: "keyword forces deduction", line: "207 INSS SOBRE SALARIO 7,50 113,85",
			code: "207", desc: "INSS SOBRE SALARIO", ref: "7,50", deduction: "113.85",
		},
		{
			name: "two columns after reference", line: "400 GRATIFICACAO 1,00 500,00 0,00",
			code: "400", desc: "GRATIFICACAO", ref: "1,00", earning: "500.00", deduction: "0",
		},
		{
			name: "no reference", line: "205 VALE TRANSPORTE 91,08",
			code: "205", desc: "VALE TRANSPORTE", earning: "91.08",
		},
		{
			name: "extra spaces", line: "  8781   SALARIO   CONTRATUAL.  30,00   1.518,00 ",
			code: "8781", desc: "SALARIO CONTRATUAL.", ref: "30,00", earning: "1518",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseEventLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.code, ev.Code)
			assert.Equal(t, tt.desc, ev.Description)
			assert.Equal(t, tt.ref, ev.Reference)
			assertMoney(t, tt.earning, ev.Earning, "earning")
			assertMoney(t, tt.deduction, ev.Deduction, "deduction")
		})
	}
}

func TestParseEventLineRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"8781 SALARIO 1.518,00",
		"19 ALANA DE OLIVEIRA ROSA 087.724.856-71 411030 1 1",
		"ABC DESCRICAO 30,00 1.518,00",
		"12345 CODIGO LONGO 30,00 1.518,00",
		"8781 SALARIO CONTRATUAL SEM VALOR",
		"8781 1,00 2,00 3,00",
		"1.728,50 632,60 100,00 200,00",
	} {
		_, ok := ParseEventLine(line)
		assert.False(t, ok, line)
	}
}

func TestExtractEventsDeduplicates(t *testing.T) {
	text := "Recibo\n" +
		"8781 SALARIO CONTRATUAL. 30,00 1.518,00\n" +
		"8781 SALARIO CONTRATUAL. 30,00 1.518,00\n" +
		"998 I.R.R.F. 7,50 25,40\n" +
		"Total de Vencimentos 1.518,00\n"

	events := ExtractEvents(text)
	require.Len(t, events, 2)
	assert.Equal(t, "8781", events[0].Code)
	assert.Equal(t, "998", events[1].Code)
	assertMoney(t, "25.40", events[1].Deduction)
}

func TestClassifierPolarity(t *testing.T) {
	c := DefaultClassifier()
	assert.Equal(t, PolarityEarning, c.Polarity("8781", "DESCONTO QUALQUER"), "code wins over keyword")
	assert.Equal(t, PolarityDeduction, c.Polarity("999", "IRRF FERIAS"))
	assert.Equal(t, PolarityDeduction, c.Polarity("301", "Desc. Vale Refeição"))
	assert.Equal(t, PolarityDeduction, c.Polarity("302", "I.R.R.F."))
	assert.Equal(t, PolarityDeduction, c.Polarity("303", "Pensão Alimentícia"))
	assert.Equal(t, PolarityUnknown, c.Polarity("304", "DESCANSO SEMANAL REMUNERADO"))
	assert.Equal(t, PolarityUnknown, c.Polarity("305", "HORAS EXTRAS"))

	custom := NewClassifier([]string{"100"}, []string{" 200 "})
	assert.Equal(t, PolarityEarning, custom.CodeHint("100"))
	assert.Equal(t, PolarityDeduction, custom.CodeHint("200"))
	assert.Equal(t, PolarityUnknown, custom.CodeHint("8781"))
}
