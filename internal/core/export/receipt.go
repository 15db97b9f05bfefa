package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ErrSemRecibos indica que nenhuma linha tem valor a pagar calculado.
var ErrSemRecibos = errors.New("nenhum colaborador com valor a pagar para gerar recibo")

// DefaultCompany é o nome impresso no cabeçalho quando nenhum é informado.
const DefaultCompany = "Contare"

// MaxMirrorLines limita as verbas impressas no espelho da folha.
const MaxMirrorLines = 24

// medidas em mm, página A4 retrato
const (
	pageMargin  = 12.0
	pageWidth   = 210.0
	contentW    = pageWidth - 2*pageMargin
	mirrorRowH  = 4.4
	maxTextRune = 90
)

var mirrorCols = []float64{14, 88, 16, 30, 30}

// ReceiptFilename devolve recibo_complementar_<MM-AAAA>_<cpf>_<nome>.pdf.
func ReceiptFilename(row domain.OutputRow) string {
	comp := row.Competence
	if comp == "" {
		comp = "MM_AAAA"
	}
	comp = strings.ReplaceAll(comp, "/", "-")

	name := strings.TrimSpace(row.Name)
	if name == "" {
		name = "COLAB"
	}
	name = strings.NewReplacer("/", "-", " ", "_").Replace(name)

	return fmt.Sprintf("recibo_complementar_%s_%s_%s.pdf", comp, brl.Digits(row.CPF), truncate(name, 30))
}

// WriteReceipt gera o recibo complementar (extra-folha) de um colaborador.
func WriteReceipt(row domain.OutputRow, company string) ([]byte, error) {
	if strings.TrimSpace(company) == "" {
		company = DefaultCompany
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Recibo complementar "+row.Name, true)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()
	r := &receiptWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	x0, y := pageMargin, pageMargin

	// cabeçalho
	r.box(x0, y, contentW, 22, "")
	r.font("B", 12)
	r.text(x0+50, y+8, company)
	r.font("", 9.5)
	r.text(x0+50, y+14, "RECIBO COMPLEMENTAR (EXTRA-FOLHA) - BASE: FOLHA MENSAL")
	r.font("B", 9.5)
	r.text(x0+150, y+14, "Comp.: "+orDash(row.Competence))
	y += 24

	r.box(x0, y, contentW, 28, "Identificação do Colaborador")
	r.keyValue(x0+2, y+10, "Nome", row.Name)
	r.keyValue(x0+100, y+10, "Matrícula", row.Registration)
	r.keyValue(x0+2, y+16, "CPF", row.CPF)
	r.keyValue(x0+100, y+16, "Departamento", row.Department)
	r.keyValue(x0+2, y+22, "Cargo (plano)", row.PlannedRole)
	y += 30

	const mirrorH = 120.0
	r.box(x0, y, contentW, mirrorH, "Espelho da Folha (CLT) - Verbas extraídas")
	r.mirror(x0+2, y+8, row.Events)
	y += mirrorH + 6

	r.box(x0, y, contentW, 36, "Cálculo do Complemento (Extra-folha)")
	r.font("", 9)
	r.text(x0+2, y+10, "Bruto referencial (planilha): "+brl.FormatMoney(row.ReferenceGross))
	r.text(x0+100, y+10, "Bruto proporcional: "+brl.FormatMoney(row.ProportionalGross))
	r.text(x0+2, y+16, "Líquido na folha (CLT): "+brl.FormatMoney(row.DeclaredNet))
	r.text(x0+100, y+16, "Dias de referência: "+row.ReferenceDays.String())
	r.text(x0+2, y+22, "Regra aplicada: "+orDash(row.Rule))
	if strings.Contains(row.Rule, "ESPECIAL") {
		r.text(x0+2, y+28, fmt.Sprintf("8781: %s  |  981: %s  |  IRRF: %s",
			money(row.ContractedSalary), money(row.AdvanceDeduction), money(row.WithholdingDeduction)))
	}
	r.font("B", 12)
	r.text(x0+2, y+34, "VALOR LÍQUIDO A PAGAR (EXTRA-FOLHA): "+brl.FormatMoney(row.Payable))
	y += 40

	r.box(x0, y, contentW, 22, "Assinaturas")
	r.font("", 9)
	pdf.Line(x0+6, y+14, x0+88, y+14)
	r.text(x0+6, y+18, "Colaborador")
	pdf.Line(x0+104, y+14, x0+180, y+14)
	r.text(x0+104, y+18, "Responsável / "+company)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("erro ao gerar recibo de %s: %w", orDash(row.Name), err)
	}
	return buf.Bytes(), nil
}

// WriteReceiptsZip gera um .zip com os recibos das linhas que têm valor a pagar.
func WriteReceiptsZip(rows []domain.OutputRow, company string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]int)
	written := 0
	for _, row := range rows {
		if !row.Payable.Valid {
			continue
		}
		content, err := WriteReceipt(row, company)
		if err != nil {
			return nil, err
		}

		name := ReceiptFilename(row)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d.pdf", strings.TrimSuffix(name, ".pdf"), n)
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("erro ao adicionar %s ao zip: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("erro ao gravar %s no zip: %w", name, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("erro ao fechar zip de recibos: %w", err)
	}
	if written == 0 {
		return nil, ErrSemRecibos
	}
	return buf.Bytes(), nil
}

// ---------------------- desenho ----------------------

type receiptWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *receiptWriter) font(style string, size float64) {
	r.pdf.SetFont("Helvetica", style, size)
}

func (r *receiptWriter) text(x, y float64, s string) {
	r.pdf.Text(x, y, r.tr(truncate(s, maxTextRune)))
}

func (r *receiptWriter) box(x, y, w, h float64, title string) {
	r.pdf.Rect(x, y, w, h, "D")
	if title != "" {
		r.font("B", 9)
		r.text(x+2, y+4, title)
	}
}

func (r *receiptWriter) keyValue(x, y float64, key, val string) {
	r.font("B", 8.5)
	r.text(x, y, key+":")
	r.font("", 8.5)
	r.text(x+24, y, orDash(val))
}

func (r *receiptWriter) mirror(x, y float64, events []domain.PayEvent) {
	headers := []string{"Cód", "Descrição", "Ref", "Vencimentos", "Descontos"}
	total := 0.0
	for _, w := range mirrorCols {
		total += w
	}

	r.font("B", 8)
	cx := x
	for i, h := range headers {
		r.text(cx+1.2, y+3.2, h)
		cx += mirrorCols[i]
	}
	r.pdf.Line(x, y+mirrorRowH, x+total, y+mirrorRowH)

	if len(events) > MaxMirrorLines {
		events = events[:MaxMirrorLines]
	}
	r.font("", 7.8)
	cy := y + mirrorRowH
	for _, ev := range events {
		cells := []string{ev.Code, ev.Description, ev.Reference, brl.FormatMoney(ev.Earning), brl.FormatMoney(ev.Deduction)}
		cx = x
		for i, c := range cells {
			r.text(cx+1.2, cy+3.2, c)
			cx += mirrorCols[i]
		}
		cy += mirrorRowH
		r.pdf.Line(x, cy, x+total, cy)
	}

	cx = x
	r.pdf.Line(x, y, x, cy)
	for _, w := range mirrorCols {
		cx += w
		r.pdf.Line(cx, y, cx, cy)
	}
}

func money(d decimal.Decimal) string {
	return brl.FormatMoney(decimal.NewNullDecimal(d))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
