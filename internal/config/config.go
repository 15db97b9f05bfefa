// Package config carrega a configuração do serviço a partir do ambiente (e de um .env opcional).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"complemento-service/internal/core/complement"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// ErrRegraInvalida indica COMPLEMENTO_REGRA fora de liquido/ledger.
var ErrRegraInvalida = errors.New("COMPLEMENTO_REGRA deve ser liquido ou ledger")

// Config guarda a configuração de execução.
type Config struct {
	Port      string `envconfig:"PORT" default:"8084"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OracleTimeout time.Duration `envconfig:"COMPLEMENTO_IA_TIMEOUT" default:"60s"`

	Workers          int             `envconfig:"COMPLEMENTO_WORKERS" default:"1"`
	Rule             string          `envconfig:"COMPLEMENTO_REGRA" default:"liquido"`
	NetThreshold     decimal.Decimal `envconfig:"COMPLEMENTO_LIMIAR_LIQUIDO" default:"0.00"`
	BaseCodes        []string        `envconfig:"COMPLEMENTO_CODIGOS_SALARIO" default:"8781"`
	AdvanceCodes     []string        `envconfig:"COMPLEMENTO_CODIGOS_ADIANTAMENTO" default:"981"`
	WithholdingCodes []string        `envconfig:"COMPLEMENTO_CODIGOS_IRRF" default:"998,999"`
	Company          string          `envconfig:"COMPLEMENTO_EMPRESA" default:"Contare"`
	MaxUploadMB      int64           `envconfig:"COMPLEMENTO_MAX_UPLOAD_MB" default:"32"`
}

// Load lê os arquivos .env informados (ou ".env") sem sobrescrever o ambiente e processa as
// variáveis. Arquivo ausente não é erro.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("erro ao carregar .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("erro ao ler variáveis de ambiente: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Rule)) {
	case string(complement.VariantNetSubtraction), string(complement.VariantLedger):
	default:
		return fmt.Errorf("%w: %q", ErrRegraInvalida, c.Rule)
	}
	if c.Workers < 1 {
		return fmt.Errorf("COMPLEMENTO_WORKERS deve ser >= 1, recebido %d", c.Workers)
	}
	if c.NetThreshold.IsNegative() {
		return fmt.Errorf("COMPLEMENTO_LIMIAR_LIQUIDO não pode ser negativo")
	}
	return nil
}

// Rules monta a regra do complemento.
func (c *Config) Rules() complement.Rules {
	return complement.Rules{
		Variant:          complement.ParseVariant(c.Rule),
		NetThreshold:     c.NetThreshold,
		BaseCodes:        trimAll(c.BaseCodes),
		AdvanceCodes:     trimAll(c.AdvanceCodes),
		WithholdingCodes: trimAll(c.WithholdingCodes),
	}
}

// OracleEnabled indica se há chave para os oráculos de IA.
func (c *Config) OracleEnabled() bool {
	return strings.TrimSpace(c.OpenAIKey) != ""
}

// AuthEnabled indica se o guard JWT deve ser ligado.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// MaxUploadBytes é o limite do corpo multipart.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
