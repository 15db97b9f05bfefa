package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"complemento-service/internal/core/payroll"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel responde ao endpoint de chat com o conteúdo fixo e guarda o último pedido.
func fakeModel(t *testing.T, content string) (*Client, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}, nil)
	return c, &last
}

func TestExtractPage(t *testing.T) {
	c, last := fakeModel(t, `{
		"competencia": "03/2025",
		"nome": "ALANA DE OLIVEIRA ROSA",
		"cpf": "087.724.856-71",
		"total_vencimentos": 1728.5,
		"total_descontos": "632,60",
		"liquido": null,
		"eventos": [
			{"codigo": 8781, "descricao": "SALARIO CONTRATUAL", "referencia": "30,00", "provento": 1518, "desconto": null},
			{"codigo": "981", "descricao": "ADIANTAMENTO", "referencia": null, "provento": null, "desconto": "607,20"}
		]
	}`)

	ext, err := c.ExtractPage(context.Background(), "texto do holerite")
	require.NoError(t, err)

	assert.Equal(t, "03/2025", ext.Competence)
	assert.Equal(t, "087.724.856-71", ext.CPF)
	assert.True(t, ext.TotalEarnings.Decimal.Equal(decimal.RequireFromString("1728.5")))
	assert.True(t, ext.TotalDeductions.Decimal.Equal(decimal.RequireFromString("632.60")))
	assert.False(t, ext.Net.Valid)
	require.Len(t, ext.Events, 2)
	assert.Equal(t, "8781", ext.Events[0].Code)
	assert.True(t, ext.Events[0].Earning.Decimal.Equal(decimal.NewFromInt(1518)))
	assert.False(t, ext.Events[0].Deduction.Valid)
	assert.Equal(t, "", ext.Events[1].Reference)

	format := (*last)["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
	assert.Equal(t, "gpt-4o", (*last)["model"])
}

func TestExtractPageBadJSON(t *testing.T) {
	c, _ := fakeModel(t, "não sei")
	_, err := c.ExtractPage(context.Background(), "x")
	assert.Error(t, err)
}

func TestRefine(t *testing.T) {
	c, last := fakeModel(t, "```json\n{\"eventos\": [{\"codigo\": \"250\", \"descricao\": \"HORAS  EXTRAS\", \"provento\": 210.5}, {\"codigo\": \"\", \"descricao\": \"lixo\"}]}\n```")

	events, err := c.Refine(context.Background(), payroll.RefineRequest{
		Text:             "texto",
		DeclaredEarnings: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Events:           []domain.PayEvent{{Code: "250", Description: "HORAS EXTRAS"}},
		Mismatch:         decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "HORAS EXTRAS", events[0].Description)
	assert.True(t, events[0].Earning.Decimal.Equal(decimal.RequireFromString("210.5")))

	messages := (*last)["messages"].([]any)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "R$ 100,00")
}

func TestDisambiguate(t *testing.T) {
	c, last := fakeModel(t, `{"nome": "Alana de Oliveira Rosa"}`)

	got, err := c.Disambiguate(context.Background(), "ALANA O ROSA", []string{"Alana de Oliveira Rosa", "Alana Rosário"})
	require.NoError(t, err)
	assert.Equal(t, "Alana de Oliveira Rosa", got)

	messages := (*last)["messages"].([]any)
	assert.Contains(t, messages[1].(map[string]any)["content"], "- Alana Rosário")

	got, err = c.Disambiguate(context.Background(), "X", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}

func TestMoneyFormats(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{1518.0, "1518"},
		{"1518.00", "1518"},
		{"1.518,00", "1518"},
		{"1,518.00", "1518"},
		{"R$ 12,345.67", "12345.67"},
		{"607,20", "607.2"},
	}
	for _, tt := range tests {
		got := money(tt.in)
		require.True(t, got.Valid, "%v", tt.in)
		assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.want)), "%v: got %s", tt.in, got.Decimal)
	}
	assert.False(t, money(nil).Valid)
	assert.False(t, money("").Valid)
}
