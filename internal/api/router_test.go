package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"complemento-service/internal/api/handlers"
	"complemento-service/internal/core/complement"
	"complemento-service/internal/core/complemento"
	"complemento-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	report *domain.Report
	err    error
	got    complemento.Input
}

func (s *stubService) Process(_ context.Context, in complemento.Input) (*domain.Report, error) {
	s.got = in
	return s.report, s.err
}

func (s *stubService) Rules() complement.Rules { return complement.DefaultRules() }

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID:      "run-1",
		Competence: "03/2025",
		Layout:     domain.LayoutRecibo,
		Rows: []domain.OutputRow{{
			Competence:    "03/2025",
			Name:          "Alana De Oliveira Rosa",
			CPF:           "087.724.856-71",
			Payable:       decimal.NewNullDecimal(decimal.RequireFromString("3456.60")),
			ReferenceDays: decimal.NewFromInt(30),
			Rule:          complement.LabelSpecial,
			MatchMethod:   domain.MatchExactID,
		}},
		Review: []domain.OutputRow{{Name: "Bruno Xavier", Review: true, Rule: complement.LabelMissingReference}},
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	pdf, sheet string // nomes de arquivo; vazio omite o campo
	fields     map[string]string
}

func newRequest(t *testing.T, path string, u upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if u.pdf != "" {
		part, err := w.CreateFormFile("pdfFile", u.pdf)
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF-1.4 fake"))
	}
	if u.sheet != "" {
		part, err := w.CreateFormFile("planilhaFile", u.sheet)
		require.NoError(t, err)
		_, _ = part.Write([]byte("NOME;SALARIO\nAlana;5000\n"))
	}
	for k, v := range u.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(svc complemento.Service, secret string) *gin.Engine {
	return NewRouter(handlers.NewComplementoHandler(svc, "Contare", nil), RouterConfig{JWTSecret: secret, MaxUploadBytes: 1 << 20})
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(&stubService{}, ""), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "complemento-service")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProcessEndpoint(t *testing.T) {
	svc := &stubService{report: sampleReport()}
	req := newRequest(t, "/api/v1/complemento/processar", upload{
		pdf: "folha.pdf", sheet: "salarios.csv",
		fields: map[string]string{"layout": "extrato", "usarIA": "true"},
	})

	rec := serve(newTestRouter(svc, ""), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status string        `json:"status"`
		Data   domain.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "03/2025", resp.Data.Competence)
	require.Len(t, resp.Data.Rows, 1)
	assert.True(t, resp.Data.Rows[0].Payable.Decimal.Equal(decimal.RequireFromString("3456.60")))
	assert.Len(t, resp.Data.Review, 1)

	assert.Equal(t, domain.LayoutExtrato, svc.got.Layout)
	assert.True(t, svc.got.UseOracle)
	assert.Equal(t, "salarios.csv", svc.got.ReferenceFilename)
	assert.Positive(t, svc.got.PDFSize)
}

func TestProcessEndpointValidation(t *testing.T) {
	router := newTestRouter(&stubService{report: sampleReport()}, "")
	tests := []struct {
		name string
		u    upload
	}{
		{"sem pdf", upload{sheet: "salarios.xlsx"}},
		{"pdf com extensão errada", upload{pdf: "folha.txt", sheet: "salarios.xlsx"}},
		{"sem planilha", upload{pdf: "folha.pdf"}},
		{"planilha com extensão errada", upload{pdf: "folha.pdf", sheet: "salarios.ods"}},
		{"layout inválido", upload{pdf: "folha.pdf", sheet: "salarios.xlsx", fields: map[string]string{"layout": "holerite"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, newRequest(t, "/api/v1/complemento/processar", tt.u))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"error"`)
		})
	}
}

func TestProcessEndpointMapsErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: xref", complemento.ErrPDFIlegivel), http.StatusUnprocessableEntity},
		{fmt.Errorf("planilha: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		router := newTestRouter(&stubService{err: tt.err}, "")
		rec := serve(router, newRequest(t, "/api/v1/complemento/processar", upload{pdf: "folha.pdf", sheet: "salarios.csv"}))
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestReportEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{report: sampleReport()}, "")
	rec := serve(router, newRequest(t, "/api/v1/complemento/relatorio", upload{pdf: "folha.pdf", sheet: "salarios.xlsx"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Complemento_03-2025_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestReceiptsEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{report: sampleReport()}, "")
	req := newRequest(t, "/api/v1/complemento/recibos", upload{
		pdf: "folha.pdf", sheet: "salarios.xlsx", fields: map[string]string{"empresa": "Contare Assessoria"},
	})
	rec := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Recibos_03-2025_")
}

func TestReceiptsEndpointWithoutPayable(t *testing.T) {
	report := sampleReport()
	report.Rows = nil
	router := newTestRouter(&stubService{report: report}, "")

	rec := serve(router, newRequest(t, "/api/v1/complemento/recibos", upload{pdf: "folha.pdf", sheet: "salarios.xlsx"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func signedToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "ana",
		"roles":    []string{"admin"},
		"exp":      exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTGuard(t *testing.T) {
	const secret = "segredo-de-teste"
	router := newTestRouter(&stubService{report: sampleReport()}, secret)
	path := "/api/v1/complemento/processar"
	files := upload{pdf: "folha.pdf", sheet: "salarios.csv"}

	rec := serve(router, newRequest(t, path, files))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "sem token")

	req := newRequest(t, path, files)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "outro-segredo", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code, "assinatura errada")

	req = newRequest(t, path, files)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, secret, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code, "expirado")

	req = newRequest(t, path, files)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, secret, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	// /health continua aberto
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}
