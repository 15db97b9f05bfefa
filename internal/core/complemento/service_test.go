package complemento

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"complemento-service/internal/core/complement"
	"complemento-service/internal/core/payroll"
	"complemento-service/internal/core/reference"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alanaPage = `CONTARE CONTABILIDADE LTDA
Recibo de Pagamento de Salário Mensalista Março de 2025
19 ALANA DE OLIVEIRA ROSA 087.724.856-71 411030 1 1
ANALISTA FISCAL PIS 123.45678.90-1
8781 SALARIO CONTRATUAL. 30,00 1.518,00
981 DESC.ADIANT.SALARIAL 40,00 607,20
998 I.R.R.F. 7,50 25,40
250 HORAS EXTRAS 50% 8:30 210,50
Total de Vencimentos Total de Descontos
1.728,50 632,60
Valor Líquido 1.095,90`

const unknownPage = "Nome: Bruno Xavier\nValor Líquido 900,00\n8781 SALARIO CONTRATUAL. 15,00 900,00"

const statementPage = `EXTRATO MENSAL DA FOLHA Mensalista Abril de 2025
Empr.: 19 ALANA DE OLIVEIRA ROSA 087.724.856-71
ANALISTA FISCAL
Depto.: 3
8781 SALARIO CONTRATUAL. 30,00 1.518,00 P
981 ADIANTAMENTO 40,00 607,20 D
205 VALE TRANSPORTE 6,00 91,08 D
Valor Líquido 819,72
Empr.: 20 BRUNO CARVALHO MENDES 111.222.333-44
AUXILIAR ADMINISTRATIVO
Depto.: 4
8781 SALARIO CONTRATUAL. 15,00 800,00 P
Líquido: 800,00`

const referenceCSV = "NOME;CPF;SALARIO REAL;STATUS\n" +
	"Alana de Oliveira Rosa;087.724.856-71;5.000,00;ATIVO\n" +
	"Carlos Pereira;;3.000,00;ATIVO\n" +
	"Bruno Carvalho Mendes;111.222.333-44;1.000,00;INATIVO\n"

func staticPages(pages ...string) PageReader {
	return PageReaderFunc(func(context.Context, io.ReaderAt, int64) ([]string, error) {
		return pages, nil
	})
}

func input(layout domain.Layout) Input {
	return Input{
		PDF:               strings.NewReader("%PDF"),
		PDFSize:           4,
		Reference:         strings.NewReader(referenceCSV),
		ReferenceFilename: "salarios.csv",
		Layout:            layout,
	}
}

func assertMoney(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "value is null")
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got.Decimal)
}

func TestProcessReceipts(t *testing.T) {
	svc := NewService(staticPages(alanaPage, "capa", unknownPage), complement.DefaultRules())

	report, err := svc.Process(context.Background(), input(domain.LayoutRecibo))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "03/2025", report.Competence)
	assert.Equal(t, domain.LayoutRecibo, report.Layout)
	require.Len(t, report.Rows, 1)
	require.Len(t, report.Review, 1)

	alana := report.Rows[0]
	assert.Equal(t, domain.MatchExactID, alana.MatchMethod)
	assert.Equal(t, "Alana de Oliveira Rosa", alana.ReferenceName)
	assert.Equal(t, "ATIVO", alana.Status)
	assert.Equal(t, complement.LabelSpecial, alana.Rule)
	// 5000 - 1518 - 25,40
	assertMoney(t, "3456.60", alana.Payable)
	assert.Equal(t, "Analista Pl Fiscal", alana.PlannedRole)
	assert.Equal(t, "03/2025", alana.Competence)
	assert.Empty(t, alana.Notes)

	bruno := report.Review[0]
	assert.Equal(t, "Bruno Xavier", bruno.Name)
	assert.Equal(t, 2, bruno.PageIndex)
	assert.Equal(t, domain.MatchNone, bruno.MatchMethod)
	assert.False(t, bruno.Payable.Valid)
	assert.Contains(t, bruno.Notes, complement.NoteMissingReference)
	assert.Contains(t, bruno.Notes, complement.NoteMissingCPF)
	assert.Equal(t, "03/2025", bruno.Competence)
}

func TestProcessStatementWithWorkers(t *testing.T) {
	svc := NewService(staticPages(statementPage), complement.DefaultRules(), WithWorkers(4))

	report, err := svc.Process(context.Background(), input(domain.LayoutExtrato))
	require.NoError(t, err)
	assert.Equal(t, "04/2025", report.Competence)
	require.Len(t, report.Rows, 2)
	assert.Empty(t, report.Review)

	alana, bruno := report.Rows[0], report.Rows[1]
	assert.Equal(t, "Alana De Oliveira Rosa", alana.Name)
	assert.Equal(t, complement.LabelSpecial, alana.Rule)
	assertMoney(t, "3482", alana.Payable)
	assert.Equal(t, "3", alana.Department)

	// inativo: 1000 * 15/30 - 800 fica negativo e vai a zero
	assert.Equal(t, complement.LabelNetSubtraction, bruno.Rule)
	assertMoney(t, "500", bruno.ProportionalGross)
	assertMoney(t, "0", bruno.Payable)
}

func TestProcessUnreadablePDF(t *testing.T) {
	failing := PageReaderFunc(func(context.Context, io.ReaderAt, int64) ([]string, error) {
		return nil, errors.New("xref quebrado")
	})
	_, err := NewService(failing, complement.DefaultRules()).Process(context.Background(), input(domain.LayoutRecibo))
	assert.ErrorIs(t, err, ErrPDFIlegivel)

	_, err = NewService(staticPages(" ", "\n"), complement.DefaultRules()).Process(context.Background(), input(domain.LayoutRecibo))
	assert.ErrorIs(t, err, ErrPDFIlegivel)
}

func TestProcessInvalidReference(t *testing.T) {
	in := input(domain.LayoutRecibo)
	in.Reference = strings.NewReader("")

	_, err := NewService(staticPages(alanaPage), complement.DefaultRules()).Process(context.Background(), in)
	assert.ErrorIs(t, err, reference.ErrPlanilhaVazia)
}

func TestProcessInvalidLayout(t *testing.T) {
	_, err := NewService(staticPages(alanaPage), complement.DefaultRules()).Process(context.Background(), input("holerite"))
	assert.ErrorIs(t, err, ErrLayoutInvalido)
}

func TestProcessOraclesOnlyWhenRequested(t *testing.T) {
	var calls atomic.Int32
	oracle := payroll.ExtractionOracleFunc(func(context.Context, string) (*payroll.OracleExtraction, error) {
		calls.Add(1)
		return nil, errors.New("indisponível")
	})
	svc := NewService(staticPages(alanaPage), complement.DefaultRules(), WithOracles(Oracles{Extraction: oracle}))

	report, err := svc.Process(context.Background(), input(domain.LayoutRecibo))
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
	require.Len(t, report.Rows, 1)

	in := input(domain.LayoutRecibo)
	in.UseOracle = true
	report, err = svc.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	// falha do oráculo não muda o resultado determinístico
	assertMoney(t, "3456.60", report.Rows[0].Payable)
}

func TestProcessLedgerRuleFromConfig(t *testing.T) {
	rules := complement.DefaultRules()
	rules.Variant = complement.VariantLedger
	svc := NewService(staticPages(statementPage), rules)
	assert.Equal(t, complement.VariantLedger, svc.Rules().Variant)

	report, err := svc.Process(context.Background(), input(domain.LayoutExtrato))
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	// 1000 * 15/30 + 0 - 0 - 0 - 0
	assert.Equal(t, complement.LabelLedger, report.Rows[1].Rule)
	assertMoney(t, "500", report.Rows[1].Payable)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutRecibo, l)

	l, err = ParseLayout(" EXTRATO ")
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutExtrato, l)

	_, err = ParseLayout("pdf")
	assert.ErrorIs(t, err, ErrLayoutInvalido)
}
