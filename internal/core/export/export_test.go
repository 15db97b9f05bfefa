package export

import (
	"archive/zip"
	"bytes"
	"testing"

	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleRow() domain.OutputRow {
	return domain.OutputRow{
		Competence:           "03/2025",
		Name:                 "Alana De Oliveira Rosa",
		CPF:                  "087.724.856-71",
		Department:           "Fiscal",
		PlannedRole:          "Analista Pl Fiscal",
		Status:               "ATIVO",
		ReferenceGross:       nd("5000"),
		DeclaredNet:          nd("1095.90"),
		ContractedSalary:     decimal.RequireFromString("1518"),
		AdvanceDeduction:     decimal.RequireFromString("607.20"),
		WithholdingDeduction: decimal.RequireFromString("25.40"),
		ReferenceDays:        decimal.NewFromInt(30),
		ProportionalGross:    nd("5000"),
		Rule:                 "ESPECIAL (BRUTO - 8781 - IRRF)",
		Payable:              nd("3456.60"),
		MatchScore:           1,
		MatchMethod:          domain.MatchExactID,
		Events: []domain.PayEvent{
			{Code: "8781", Description: "SALARIO CONTRATUAL", Reference: "30,00", Earning: nd("1518")},
			{Code: "981", Description: "DESC.ADIANT.SALARIAL", Deduction: nd("607.20")},
		},
	}
}

func TestWriteReport(t *testing.T) {
	review := domain.OutputRow{Name: "Bruno Xavier", Review: true, Notes: "bruto referencial não encontrado na planilha", PageIndex: 2}

	data, err := WriteReport([]domain.OutputRow{sampleRow()}, []domain.OutputRow{review})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReport, SheetReview}, f.GetSheetList())

	rows, err := f.GetRows(SheetReport, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "competencia", rows[0][0])
	assert.Equal(t, "Alana De Oliveira Rosa", rows[1][1])

	payableIdx := -1
	for j, h := range rows[0] {
		if h == "valor_a_pagar" {
			payableIdx = j
		}
	}
	require.GreaterOrEqual(t, payableIdx, 0)
	assert.Equal(t, "3456.6", rows[1][payableIdx])

	flagged, err := f.GetRows(SheetReview, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	assert.Equal(t, "Bruno Xavier", flagged[1][1])
	assert.Contains(t, flagged[1], "SIM")
	assert.Contains(t, flagged[1], "3", "pagina is 1-based")

	width, err := f.GetColWidth(SheetReport, "A")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, width, float64(minColWidth))
	assert.LessOrEqual(t, width, float64(maxColWidth))
}

func TestWriteReportEmptySheets(t *testing.T) {
	data, err := WriteReport(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetReview)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestReceiptFilename(t *testing.T) {
	assert.Equal(t, "recibo_complementar_03-2025_08772485671_Alana_De_Oliveira_Rosa.pdf", ReceiptFilename(sampleRow()))
	assert.Equal(t, "recibo_complementar_MM_AAAA__COLAB.pdf", ReceiptFilename(domain.OutputRow{}))

	long := domain.OutputRow{Competence: "01/2025", Name: "Maria Aparecida dos Santos Figueiredo Lima"}
	assert.Equal(t, "recibo_complementar_01-2025__Maria_Aparecida_dos_Santos_Fig.pdf", ReceiptFilename(long))
}

func TestWriteReceipt(t *testing.T) {
	data, err := WriteReceipt(sampleRow(), "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestWriteReceiptTruncatesMirror(t *testing.T) {
	row := sampleRow()
	for i := 0; i < 40; i++ {
		row.Events = append(row.Events, domain.PayEvent{Code: "250", Description: "HORAS EXTRAS", Earning: nd("10")})
	}
	data, err := WriteReceipt(row, "Contare")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWriteReceiptsZip(t *testing.T) {
	noPayable := domain.OutputRow{Name: "Sem Planilha", Review: true}
	twin := sampleRow()

	data, err := WriteReceiptsZip([]domain.OutputRow{sampleRow(), noPayable, twin}, "Contare")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"recibo_complementar_03-2025_08772485671_Alana_De_Oliveira_Rosa.pdf",
		"recibo_complementar_03-2025_08772485671_Alana_De_Oliveira_Rosa_2.pdf",
	}, names)
}

func TestWriteReceiptsZipWithoutPayable(t *testing.T) {
	_, err := WriteReceiptsZip([]domain.OutputRow{{Name: "X"}}, "")
	assert.ErrorIs(t, err, ErrSemRecibos)
}
