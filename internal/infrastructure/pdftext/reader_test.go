package pdftext

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF(t *testing.T) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 10)

	doc.AddPage()
	doc.Text(10, 20, "Mensalista Marco de 2025")
	doc.Text(10, 30, "8781 SALARIO CONTRATUAL 30,00 1.518,00")
	doc.AddPage()
	doc.Text(10, 20, "Valor Liquido 1.095,90")

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestReadPages(t *testing.T) {
	data := samplePDF(t)

	pages, err := NewReader(nil).ReadPages(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "SALARIO CONTRATUAL")
	assert.Contains(t, pages[1], "1.095,90")
}

func TestReadPagesRejectsGarbage(t *testing.T) {
	data := []byte("isto não é um pdf")
	_, err := NewReader(nil).ReadPages(context.Background(), bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}

func TestReadPagesHonorsCancel(t *testing.T) {
	data := samplePDF(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(nil).ReadPages(ctx, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRowTextInsertsGapSpaces(t *testing.T) {
	texts := pdf.TextHorizontal{
		{S: "1.518,00", X: 120, W: 20, FontSize: 10},
		{S: "8781", X: 10, W: 12, FontSize: 10},
		{S: "SALARIO", X: 30, W: 25, FontSize: 10},
	}
	assert.Equal(t, "8781 SALARIO 1.518,00", rowText(texts))

	glued := pdf.TextHorizontal{
		{S: "A", X: 10, W: 5, FontSize: 10},
		{S: "B", X: 15, W: 5, FontSize: 10},
	}
	assert.Equal(t, "AB", rowText(glued))
}
