// cmd/complemento/main.go
package main

import (
	"log"

	"complemento-service/internal/api"
	"complemento-service/internal/api/handlers"
	"complemento-service/internal/api/responses"
	"complemento-service/internal/config"
	"complemento-service/internal/core/complemento"
	"complemento-service/internal/infrastructure/llm"
	"complemento-service/internal/infrastructure/pdftext"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Falha ao carregar configuração: %v", err)
	}

	logger, err := responses.InitLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Falha ao iniciar logger: %v", err)
	}
	defer logger.Sync()

	opts := []complemento.Option{
		complemento.WithWorkers(cfg.Workers),
		complemento.WithLogger(logger),
	}
	if cfg.OracleEnabled() {
		client := llm.NewClient(llm.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OracleTimeout,
		}, logger)
		opts = append(opts, complemento.WithOracles(complemento.Oracles{
			Extraction:    client,
			Refiner:       client,
			Disambiguator: client,
		}))
	} else {
		logger.Info("OPENAI_API_KEY ausente, oráculos de IA desligados")
	}

	service := complemento.NewService(pdftext.NewReader(logger), cfg.Rules(), opts...)
	handler := handlers.NewComplementoHandler(service, cfg.Company, logger)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handler, api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logger,
	})

	logger.Info("Complemento Service iniciado",
		zap.String("porta", cfg.Port),
		zap.String("regra", cfg.Rule),
		zap.Int("workers", cfg.Workers),
		zap.Bool("auth", cfg.AuthEnabled()),
		zap.Bool("ia", cfg.OracleEnabled()),
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Falha ao iniciar o servidor de complemento", zap.Error(err))
	}
}
