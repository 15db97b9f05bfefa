// Package export gera o relatório Excel e os recibos complementares em PDF.
package export

import (
	"fmt"
	"unicode/utf8"

	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Nomes das abas do relatório.
const (
	SheetReport = "Relatório"
	SheetReview = "REVISAR"
)

const (
	minColWidth = 12
	maxColWidth = 45
	headerColor = "2F5597"
	moneyNumFmt = 4 // #,##0.00
)

type column struct {
	header string
	money  bool
	value  func(r domain.OutputRow) any
}

var reportColumns = []column{
	{header: "competencia", value: func(r domain.OutputRow) any { return r.Competence }},
	{header: "nome", value: func(r domain.OutputRow) any { return r.Name }},
	{header: "cpf", value: func(r domain.OutputRow) any { return r.CPF }},
	{header: "matricula", value: func(r domain.OutputRow) any { return r.Registration }},
	{header: "departamento", value: func(r domain.OutputRow) any { return r.Department }},
	{header: "cargo", value: func(r domain.OutputRow) any { return r.Role }},
	{header: "cargo_plano", value: func(r domain.OutputRow) any { return r.PlannedRole }},
	{header: "status", value: func(r domain.OutputRow) any { return r.Status }},
	{header: "bruto_referencial_planilha", money: true, value: func(r domain.OutputRow) any { return nullable(r.ReferenceGross) }},
	{header: "liquido_folha", money: true, value: func(r domain.OutputRow) any { return nullable(r.DeclaredNet) }},
	{header: "total_vencimentos", money: true, value: func(r domain.OutputRow) any { return nullable(r.DeclaredEarnings) }},
	{header: "total_descontos", money: true, value: func(r domain.OutputRow) any { return nullable(r.DeclaredDeductions) }},
	{header: "verba_8781_salario_contratual", money: true, value: func(r domain.OutputRow) any { return r.ContractedSalary.InexactFloat64() }},
	{header: "verba_981_desc_adiantamento", money: true, value: func(r domain.OutputRow) any { return r.AdvanceDeduction.InexactFloat64() }},
	{header: "irrf", money: true, value: func(r domain.OutputRow) any { return r.WithholdingDeduction.InexactFloat64() }},
	{header: "dias_referencia", value: func(r domain.OutputRow) any { return r.ReferenceDays.InexactFloat64() }},
	{header: "bruto_proporcional", money: true, value: func(r domain.OutputRow) any { return nullable(r.ProportionalGross) }},
	{header: "outros_proventos", money: true, value: func(r domain.OutputRow) any { return r.OtherEarnings.InexactFloat64() }},
	{header: "outros_descontos", money: true, value: func(r domain.OutputRow) any { return r.OtherDeductions.InexactFloat64() }},
	{header: "regra_aplicada", value: func(r domain.OutputRow) any { return r.Rule }},
	{header: "valor_a_pagar", money: true, value: func(r domain.OutputRow) any { return nullable(r.Payable) }},
	{header: "match_score", value: func(r domain.OutputRow) any { return decimal.NewFromFloat(r.MatchScore).Round(4).InexactFloat64() }},
	{header: "match_method", value: func(r domain.OutputRow) any { return string(r.MatchMethod) }},
	{header: "nome_planilha", value: func(r domain.OutputRow) any { return r.ReferenceName }},
	{header: "revisar", value: func(r domain.OutputRow) any { return yesNo(r.Review) }},
	{header: "notas", value: func(r domain.OutputRow) any { return r.Notes }},
	{header: "pagina", value: func(r domain.OutputRow) any { return r.PageIndex + 1 }},
}

// WriteReport monta o .xlsx: linhas conferidas em "Relatório" e linhas marcadas em "REVISAR".
func WriteReport(rows, review []domain.OutputRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetReport); err != nil {
		return nil, fmt.Errorf("erro ao nomear aba do relatório: %w", err)
	}
	if _, err := f.NewSheet(SheetReview); err != nil {
		return nil, fmt.Errorf("erro ao criar aba %s: %w", SheetReview, err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetReport, rows, styles); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetReview, review, styles); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("erro ao gravar relatório .xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("erro ao criar estilo do cabeçalho: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("erro ao criar estilo monetário: %w", err)
	}
	return sheetStyles{header: header, money: money}, nil
}

func writeSheet(f *excelize.File, sheet string, rows []domain.OutputRow, st sheetStyles) error {
	widths := make([]int, len(reportColumns))

	header := make([]any, len(reportColumns))
	for j, col := range reportColumns {
		header[j] = col.header
		widths[j] = utf8.RuneCountInString(col.header)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("erro ao gravar cabeçalho em %s: %w", sheet, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(reportColumns))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return fmt.Errorf("erro ao aplicar estilo em %s: %w", sheet, err)
	}

	for i, row := range rows {
		values := make([]any, len(reportColumns))
		for j, col := range reportColumns {
			v := col.value(row)
			values[j] = v
			if w := cellWidth(v); w > widths[j] {
				widths[j] = w
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("erro ao gravar linha %d em %s: %w", i+2, sheet, err)
		}
	}

	for j, col := range reportColumns {
		name, _ := excelize.ColumnNumberToName(j + 1)
		width := min(max(widths[j]+2, minColWidth), maxColWidth)
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return fmt.Errorf("erro ao ajustar largura em %s: %w", sheet, err)
		}
		if col.money && len(rows) > 0 {
			if err := f.SetCellStyle(sheet, name+"2", fmt.Sprintf("%s%d", name, len(rows)+1), st.money); err != nil {
				return fmt.Errorf("erro ao formatar coluna %s: %w", col.header, err)
			}
		}
	}
	return nil
}

func nullable(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.InexactFloat64()
}

func yesNo(b bool) string {
	if b {
		return "SIM"
	}
	return "NAO"
}

func cellWidth(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(x)
	default:
		return utf8.RuneCountInString(fmt.Sprint(x))
	}
}
