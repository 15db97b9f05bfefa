package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/core/matching"
	"complemento-service/internal/core/payroll"
	"complemento-service/internal/domain"

	"go.uber.org/zap"
)

var (
	_ payroll.ExtractionOracle = (*Client)(nil)
	_ payroll.Refiner          = (*Client)(nil)
	_ matching.Disambiguator   = (*Client)(nil)
)

const extractionSystem = "Você é um extrator de holerites brasileiros. Responda APENAS com JSON. " +
	"Não invente; se não tiver certeza, use null."

const extractionPrompt = `Extraia do TEXTO do holerite e retorne APENAS JSON no formato:

{
  "competencia": "MM/AAAA" | null,
  "nome": string | null,
  "cpf": string | null,
  "total_vencimentos": number | null,
  "total_descontos": number | null,
  "liquido": number | null,
  "eventos": [
    {"codigo": string, "descricao": string, "referencia": string | null, "provento": number | null, "desconto": number | null}
  ]
}

REGRAS IMPORTANTES:
- CPF no formato 000.000.000-00 (não confundir com CNPJ).
- 'liquido' é o valor líquido do holerite; se estiver 0,00 retorne 0.0.
- 'eventos' deve listar TODAS as verbas do quadro de proventos/descontos.
- Para cada evento preencha APENAS uma coluna: provento OU desconto (a outra null).
- Converta moeda PT-BR: 1.518,00 -> 1518.00

TEXTO:
%s
`

const refineSystem = "Você revisa a classificação de verbas de holerites brasileiros. Responda APENAS com JSON. " +
	"Não invente verbas que não estejam no texto."

const refinePrompt = `As verbas abaixo não fecham com os totais declarados (divergência de R$ %s).
Total de vencimentos declarado: %s
Total de descontos declarado: %s

Verbas atuais (JSON):
%s

Reclassifique cada verba como provento OU desconto para que as somas batam com os totais.
Retorne APENAS JSON: {"eventos": [{"codigo": string, "descricao": string, "referencia": string | null, "provento": number | null, "desconto": number | null}]}

TEXTO DO HOLERITE:
%s
`

const disambiguationSystem = "Você compara nomes de pessoas de uma folha de pagamento brasileira com uma lista de " +
	"candidatos. Responda APENAS com JSON. Se nenhum candidato for a mesma pessoa, responda nome vazio."

const disambiguationPrompt = `Nome na folha: %s

Candidatos da planilha:
%s

Qual candidato é a mesma pessoa? Retorne APENAS JSON: {"nome": "<candidato exatamente como listado>"} ou {"nome": ""}.
`

type rawEvent struct {
	Code        any    `json:"codigo"`
	Description string `json:"descricao"`
	Reference   any    `json:"referencia"`
	Earning     any    `json:"provento"`
	Deduction   any    `json:"desconto"`
}

type rawExtraction struct {
	Competence      any        `json:"competencia"`
	Name            any        `json:"nome"`
	CPF             any        `json:"cpf"`
	TotalEarnings   any        `json:"total_vencimentos"`
	TotalDeductions any        `json:"total_descontos"`
	Net             any        `json:"liquido"`
	Events          []rawEvent `json:"eventos"`
}

// ExtractPage implementa payroll.ExtractionOracle.
func (c *Client) ExtractPage(ctx context.Context, pageText string) (*payroll.OracleExtraction, error) {
	var raw rawExtraction
	if err := c.completeJSON(ctx, extractionSystem, fmt.Sprintf(extractionPrompt, pageText), &raw); err != nil {
		return nil, err
	}

	ext := &payroll.OracleExtraction{
		Competence:      text(raw.Competence),
		Name:            text(raw.Name),
		CPF:             text(raw.CPF),
		TotalEarnings:   money(raw.TotalEarnings),
		TotalDeductions: money(raw.TotalDeductions),
		Net:             money(raw.Net),
	}
	for _, e := range raw.Events {
		ext.Events = append(ext.Events, payroll.OracleEvent{
			Code:        text(e.Code),
			Description: e.Description,
			Reference:   text(e.Reference),
			Earning:     money(e.Earning),
			Deduction:   money(e.Deduction),
		})
	}
	return ext, nil
}

// Refine implementa payroll.Refiner.
func (c *Client) Refine(ctx context.Context, req payroll.RefineRequest) ([]domain.PayEvent, error) {
	current, err := json.Marshal(req.Events)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar verbas: %w", err)
	}
	prompt := fmt.Sprintf(refinePrompt,
		brl.FormatBRL(req.Mismatch),
		brl.FormatMoney(req.DeclaredEarnings),
		brl.FormatMoney(req.DeclaredDeductions),
		current,
		req.Text,
	)

	var raw struct {
		Events []rawEvent `json:"eventos"`
	}
	if err := c.completeJSON(ctx, refineSystem, prompt, &raw); err != nil {
		return nil, err
	}

	events := make([]domain.PayEvent, 0, len(raw.Events))
	for _, e := range raw.Events {
		code := brl.Digits(text(e.Code))
		if code == "" {
			continue
		}
		events = append(events, domain.PayEvent{
			Code:        code,
			Description: brl.CollapseSpaces(e.Description),
			Reference:   text(e.Reference),
			Earning:     money(e.Earning),
			Deduction:   money(e.Deduction),
		})
	}
	return events, nil
}

// Disambiguate implementa matching.Disambiguator. Devolve "" quando o modelo não escolhe.
func (c *Client) Disambiguate(ctx context.Context, name string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	var list strings.Builder
	for _, cand := range candidates {
		list.WriteString("- ")
		list.WriteString(cand)
		list.WriteByte('\n')
	}

	var raw struct {
		Name any `json:"nome"`
	}
	if err := c.completeJSON(ctx, disambiguationSystem, fmt.Sprintf(disambiguationPrompt, name, list.String()), &raw); err != nil {
		return "", err
	}
	chosen := text(raw.Name)
	c.logger.Debug("desambiguação", zap.String("nome", name), zap.String("escolhido", chosen))
	return chosen, nil
}
