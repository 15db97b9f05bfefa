// Package pdftext extrai o texto das páginas de um PDF, uma linha por linha visual.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrSemPaginas indica um PDF sem nenhuma página.
var ErrSemPaginas = errors.New("PDF sem páginas")

// gap mínimo (fração do tamanho da fonte) entre glifos para inserir espaço
const wordGapRatio = 0.18

// Reader implementa a leitura de páginas com github.com/ledongthuc/pdf.
type Reader struct {
	logger *zap.Logger
}

// NewReader cria o leitor de páginas.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadPages devolve o texto de cada página na ordem. Páginas que falham viram string vazia.
func (r *Reader) ReadPages(ctx context.Context, src io.ReaderAt, size int64) (pages []string, err error) {
	// a biblioteca entra em pânico com xref corrompido
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("erro ao ler PDF: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir PDF: %w", err)
	}
	total := doc.NumPage()
	if total == 0 {
		return nil, ErrSemPaginas
	}

	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			r.logger.Warn("falha ao extrair texto da página", zap.Int("pagina", i), zap.Error(err))
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, row := range rows {
		line := rowText(row.Content)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String(), nil
}

// rowText junta os glifos de uma linha da esquerda para a direita.
func rowText(texts pdf.TextHorizontal) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	var prev pdf.Text
	for i, t := range sorted {
		// GetTextByRow entrega um trecho por operador de texto, sem largura: trechos distintos
		// são palavras distintas. Com largura conhecida, decide pelo espaço em branco.
		if i > 0 && (prev.W == 0 || t.X-(prev.X+prev.W) > t.FontSize*wordGapRatio) {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prev = t
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
