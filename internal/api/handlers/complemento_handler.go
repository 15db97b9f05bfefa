package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"complemento-service/internal/api/responses"
	"complemento-service/internal/core/complemento"
	"complemento-service/internal/core/export"
	"complemento-service/internal/core/reference"
	"complemento-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

var referenceExtensions = map[string]bool{".xlsx": true, ".xlsm": true, ".xls": true, ".csv": true}

// ComplementoHandler lida com as requisições de cálculo de complemento.
type ComplementoHandler struct {
	service complemento.Service
	company string
	logger  *zap.Logger
}

// NewComplementoHandler cria um novo handler de complemento.
func NewComplementoHandler(service complemento.Service, company string, logger *zap.Logger) *ComplementoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplementoHandler{service: service, company: company, logger: logger}
}

// HandleProcess devolve as linhas calculadas em JSON.
func (h *ComplementoHandler) HandleProcess(c *gin.Context) {
	report, ok := h.process(c)
	if !ok {
		return
	}
	msg := fmt.Sprintf("%d colaborador(es) processado(s), %d para revisar", len(report.Rows)+len(report.Review), len(report.Review))
	responses.Success(c, report, msg)
}

// HandleReport devolve o relatório .xlsx.
func (h *ComplementoHandler) HandleReport(c *gin.Context) {
	report, ok := h.process(c)
	if !ok {
		return
	}
	data, err := export.WriteReport(report.Rows, report.Review)
	if err != nil {
		h.logger.Error("erro ao gerar relatório", zap.String("execucao", report.RunID), zap.Error(err))
		responses.Error(c, http.StatusInternalServerError, "Erro ao gerar o relatório", err.Error())
		return
	}
	fileName := fmt.Sprintf("Complemento_%s_%s.xlsx", competenceTag(report.Competence), time.Now().Format("20060102_150405"))
	responses.Attachment(c, fileName, xlsxContentType, data)
}

// HandleReceipts devolve um .zip com os recibos complementares em PDF.
func (h *ComplementoHandler) HandleReceipts(c *gin.Context) {
	report, ok := h.process(c)
	if !ok {
		return
	}
	company := strings.TrimSpace(c.PostForm("empresa"))
	if company == "" {
		company = h.company
	}

	rows := append(append([]domain.OutputRow{}, report.Rows...), report.Review...)
	data, err := export.WriteReceiptsZip(rows, company)
	if errors.Is(err, export.ErrSemRecibos) {
		responses.Error(c, http.StatusUnprocessableEntity, "Nenhum colaborador com valor a pagar", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("erro ao gerar recibos", zap.String("execucao", report.RunID), zap.Error(err))
		responses.Error(c, http.StatusInternalServerError, "Erro ao gerar os recibos", err.Error())
		return
	}
	fileName := fmt.Sprintf("Recibos_%s_%s.zip", competenceTag(report.Competence), time.Now().Format("20060102_150405"))
	responses.Attachment(c, fileName, zipContentType, data)
}

// process lê o formulário multipart e roda o lote. Em caso de falha a resposta já foi escrita.
func (h *ComplementoHandler) process(c *gin.Context) (*domain.Report, bool) {
	pdfHeader, err := c.FormFile("pdfFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo PDF da folha não encontrado ou inválido")
		return nil, false
	}
	if ext := strings.ToLower(filepath.Ext(pdfHeader.Filename)); ext != ".pdf" {
		responses.Error(c, http.StatusBadRequest, fmt.Sprintf("Extensão de arquivo da folha não suportada: %s", ext))
		return nil, false
	}

	sheetHeader, err := c.FormFile("planilhaFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Planilha de referência (.xlsx, .xls, .csv) não encontrada ou inválida")
		return nil, false
	}
	if ext := strings.ToLower(filepath.Ext(sheetHeader.Filename)); !referenceExtensions[ext] {
		responses.Error(c, http.StatusBadRequest, fmt.Sprintf("Extensão de planilha não suportada: %s", ext))
		return nil, false
	}

	layout, err := complemento.ParseLayout(c.PostForm("layout"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Layout inválido", err.Error())
		return nil, false
	}
	useOracle, _ := strconv.ParseBool(c.DefaultPostForm("usarIA", "false"))

	pdfFile, err := pdfHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o PDF da folha")
		return nil, false
	}
	defer pdfFile.Close()

	sheetFile, err := sheetHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir a planilha de referência")
		return nil, false
	}
	defer sheetFile.Close()

	report, err := h.service.Process(c.Request.Context(), complemento.Input{
		PDF:               pdfFile,
		PDFSize:           pdfHeader.Size,
		Reference:         sheetFile,
		ReferenceFilename: sheetHeader.Filename,
		Layout:            layout,
		UseOracle:         useOracle,
	})
	if err != nil {
		code := statusFor(err)
		h.logger.Warn("falha no processamento", zap.Int("status", code), zap.Error(err))
		responses.Error(c, code, "Erro ao processar os arquivos", err.Error())
		return nil, false
	}
	return report, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, complemento.ErrLayoutInvalido):
		return http.StatusBadRequest
	case errors.Is(err, complemento.ErrPDFIlegivel),
		errors.Is(err, reference.ErrPlanilhaVazia),
		errors.Is(err, reference.ErrFormatoNaoSuportado),
		errors.Is(err, reference.ErrColunaNome):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func competenceTag(competence string) string {
	if competence == "" {
		return "sem_competencia"
	}
	return strings.ReplaceAll(competence, "/", "-")
}
