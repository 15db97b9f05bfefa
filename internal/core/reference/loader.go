// Package reference carrega a planilha de salário real e monta os índices de busca.
package reference

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrPlanilhaVazia indica que nenhuma linha de colaborador foi encontrada.
	ErrPlanilhaVazia = errors.New("planilha de referência sem linhas de colaboradores")
	// ErrFormatoNaoSuportado indica que o arquivo não é xlsx, xls nem csv.
	ErrFormatoNaoSuportado = errors.New("formato de planilha não suportado")
	// ErrColunaNome indica que não foi possível identificar a coluna de nomes.
	ErrColunaNome = errors.New("coluna de nome não encontrada na planilha")
)

// Load lê a planilha (xlsx, xls ou csv) e devolve a tabela indexada.
func Load(file io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler planilha: %w", err)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv", ".txt":
		rows, err = readCSV(data)
	default:
		rows, err = readAnyWorkbook(data)
	}
	if err != nil {
		return nil, err
	}
	return LoadRows(rows)
}

// LoadRows interpreta linhas de células textuais já lidas de uma planilha.
func LoadRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrPlanilhaVazia
	}

	headerIdx := findHeaderRow(rows)
	var header []string
	if headerIdx >= 0 {
		header = rows[headerIdx]
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	cols := detectColumns(header, width)
	if cols.name == -1 {
		return nil, ErrColunaNome
	}

	var out []domain.ReferenceRow
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(idx int) string {
			if idx >= 0 && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		name := brl.CollapseSpaces(cell(cols.name))
		normName := brl.NormalizeName(name)
		if normName == "" || isTotalRow(normName) {
			continue
		}

		out = append(out, domain.ReferenceRow{
			Line:           i + 1,
			NormalizedName: normName,
			DisplayName:    name,
			ReferenceGross: brl.ParseCurrency(cell(cols.gross)),
			Status:         cell(cols.status),
			Department:     cell(cols.department),
			Role:           cell(cols.role),
			CPF:            cell(cols.cpf),
			Registration:   cell(cols.registration),
		})
	}
	if len(out) == 0 {
		return nil, ErrPlanilhaVazia
	}
	return NewTable(out), nil
}

func isTotalRow(normName string) bool {
	for _, tok := range brl.Tokens(normName) {
		if tok == "TOTAL" || tok == "TOTAIS" {
			return true
		}
	}
	return false
}

// ---------------------- leitores de planilha ----------------------

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir arquivo .xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrPlanilhaVazia
	}
	// valores crus: números formatados ("5,000.00") confundiriam o parser brasileiro
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("erro ao ler planilha %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		// talvez seja xlsx com extensão errada
		if rows, errX := readXLSX(data); errX == nil {
			return rows, nil
		}
		return nil, fmt.Errorf("erro ao abrir arquivo .xls: %w", err)
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, fmt.Errorf("o arquivo .xls não contém planilhas: %w", ErrPlanilhaVazia)
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter planilha do arquivo .xls: %w", err)
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, c := range row.GetCols() {
			cells = append(cells, c.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = ';'
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if !bytes.ContainsRune(firstLine, ';') && bytes.ContainsRune(firstLine, ',') {
		reader.Comma = ','
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("erro ao ler arquivo .csv: %w", err)
	}
	return rows, nil
}

func readAnyWorkbook(data []byte) ([][]string, error) {
	if rows, err := readXLSX(data); err == nil {
		return rows, nil
	}
	if workbook, err := xls.OpenReader(bytes.NewReader(data)); err == nil && len(workbook.GetSheets()) > 0 {
		return readXLS(data)
	}
	return nil, ErrFormatoNaoSuportado
}
