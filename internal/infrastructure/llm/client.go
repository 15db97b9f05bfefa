// Package llm implementa os oráculos de extração, refinamento e desambiguação sobre uma API
// compatível com OpenAI, sempre em modo JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"complemento-service/internal/core/brl"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRespostaVazia indica que o modelo não devolveu conteúdo.
var ErrRespostaVazia = errors.New("resposta vazia do modelo")

// Config agrupa as credenciais e limites do cliente.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

const (
	defaultModel   = "gpt-4o"
	defaultTimeout = 60 * time.Second
)

// Client fala com o modelo. Cada chamada é uma tentativa única limitada por Timeout.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient cria o cliente a partir da configuração.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:     openai.NewClientWithConfig(conf),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// completeJSON envia o prompt e decodifica o objeto JSON da resposta em out.
func (c *Client) completeJSON(ctx context.Context, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return fmt.Errorf("erro ao consultar modelo: %w", err)
	}
	c.logger.Debug("resposta do modelo",
		zap.String("modelo", c.model),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("duracao", time.Since(started)),
	)
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ErrRespostaVazia
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("erro ao decodificar JSON do modelo: %w", err)
	}
	return nil
}

// alguns modelos embrulham o JSON em ```json mesmo no modo JSON
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// text converte um valor JSON livre (string, número ou null) em texto.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// money aceita 1518.0, "1518.00" ou "1.518,00". Com vírgula antes do ponto ("1,518.00") o
// texto está no formato americano e a vírgula é só milhar.
func money(v any) decimal.NullDecimal {
	if s, ok := v.(string); ok {
		comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
		if comma >= 0 && dot > comma {
			return brl.ParseCurrency(strings.ReplaceAll(s, ",", ""))
		}
	}
	return brl.ParseCurrency(v)
}
