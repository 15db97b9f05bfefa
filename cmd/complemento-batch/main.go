// cmd/complemento-batch/main.go
//
// Processa um lote pela linha de comando e grava o relatório .xlsx e o .zip de recibos.
//
//	complemento-batch -pdf folha.pdf -planilha salarios.xlsx [-layout extrato] [-out saida] [-ia]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"complemento-service/internal/api/responses"
	"complemento-service/internal/config"
	"complemento-service/internal/core/complemento"
	"complemento-service/internal/core/export"
	"complemento-service/internal/domain"
	"complemento-service/internal/infrastructure/llm"
	"complemento-service/internal/infrastructure/pdftext"

	"go.uber.org/zap"
)

func main() {
	pdfPath := flag.String("pdf", "", "PDF da folha (obrigatório)")
	sheetPath := flag.String("planilha", "", "planilha de referência .xlsx/.xls/.csv (obrigatório)")
	layout := flag.String("layout", "recibo", "layout da folha: recibo ou extrato")
	outDir := flag.String("out", ".", "diretório de saída")
	company := flag.String("empresa", "", "empresa impressa nos recibos (padrão COMPLEMENTO_EMPRESA)")
	useOracle := flag.Bool("ia", false, "usa os oráculos de IA quando OPENAI_API_KEY estiver definido")
	flag.Parse()

	if *pdfPath == "" || *sheetPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*pdfPath, *sheetPath, *layout, *outDir, *company, *useOracle); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func run(pdfPath, sheetPath, layoutName, outDir, company string, useOracle bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := responses.InitLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	layout, err := complemento.ParseLayout(layoutName)
	if err != nil {
		return err
	}
	if company == "" {
		company = cfg.Company
	}

	opts := []complemento.Option{complemento.WithWorkers(cfg.Workers), complemento.WithLogger(logger)}
	if cfg.OracleEnabled() {
		client := llm.NewClient(llm.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OracleTimeout,
		}, logger)
		opts = append(opts, complemento.WithOracles(complemento.Oracles{Extraction: client, Refiner: client, Disambiguator: client}))
	} else if useOracle {
		logger.Warn("-ia ignorado: OPENAI_API_KEY ausente")
	}
	service := complemento.NewService(pdftext.NewReader(logger), cfg.Rules(), opts...)

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("erro ao abrir PDF: %w", err)
	}
	defer pdfFile.Close()
	info, err := pdfFile.Stat()
	if err != nil {
		return fmt.Errorf("erro ao ler PDF: %w", err)
	}

	sheetFile, err := os.Open(sheetPath)
	if err != nil {
		return fmt.Errorf("erro ao abrir planilha: %w", err)
	}
	defer sheetFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := service.Process(ctx, complemento.Input{
		PDF:               pdfFile,
		PDFSize:           info.Size(),
		Reference:         sheetFile,
		ReferenceFilename: filepath.Base(sheetPath),
		Layout:            layout,
		UseOracle:         useOracle,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("erro ao criar diretório de saída: %w", err)
	}
	tag := strings.ReplaceAll(report.Competence, "/", "-")
	if tag == "" {
		tag = "sem_competencia"
	}

	xlsx, err := export.WriteReport(report.Rows, report.Review)
	if err != nil {
		return err
	}
	reportPath := filepath.Join(outDir, "Complemento_"+tag+".xlsx")
	if err := os.WriteFile(reportPath, xlsx, 0o644); err != nil {
		return fmt.Errorf("erro ao gravar relatório: %w", err)
	}
	logger.Info("relatório gravado", zap.String("arquivo", reportPath))

	rows := append(append([]domain.OutputRow{}, report.Rows...), report.Review...)
	zipData, err := export.WriteReceiptsZip(rows, company)
	switch {
	case errors.Is(err, export.ErrSemRecibos):
		logger.Warn("nenhum recibo gerado: nenhum colaborador com valor a pagar")
	case err != nil:
		return err
	default:
		zipPath := filepath.Join(outDir, "Recibos_"+tag+".zip")
		if err := os.WriteFile(zipPath, zipData, 0o644); err != nil {
			return fmt.Errorf("erro ao gravar recibos: %w", err)
		}
		logger.Info("recibos gravados", zap.String("arquivo", zipPath))
	}

	fmt.Printf("%s: %d ok, %d para revisar\n", report.Competence, len(report.Rows), len(report.Review))
	return nil
}
