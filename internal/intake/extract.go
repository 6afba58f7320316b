package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reclamai/internal/gateway/provider"
	"reclamai/internal/logger"
	"reclamai/internal/pkg/jsonutil"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const extractSystemPrompt = `Você é um assistente de triagem de renegociação de dívidas.
Extraia da mensagem do usuário apenas os fatos abaixo e responda com um único objeto JSON:
{"num_dividas": int, "credores": string, "valores_aprox": string, "inadimplencia": string, "negociacao_previa": bool, "aceita_negativacao": bool}
Omita qualquer campo que a mensagem não mencione. Nunca invente valores. Responda somente o JSON.`

var extractSchema = mustCompileSchema(map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"num_dividas":        map[string]interface{}{"type": "integer", "minimum": 0},
		"credores":           map[string]interface{}{"type": "string"},
		"valores_aprox":      map[string]interface{}{"type": "string"},
		"inadimplencia":      map[string]interface{}{"type": "string"},
		"negociacao_previa":  map[string]interface{}{"type": "boolean"},
		"aceita_negativacao": map[string]interface{}{"type": "boolean"},
	},
})

func mustCompileSchema(data map[string]interface{}) *jsonschema.Schema {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// Extractor pulls snapshot facts out of one conversation turn, preferring
// the model and falling back to keyword heuristics when it is unavailable
// or returns something the schema rejects.
type Extractor struct {
	provider provider.ModelProvider
}

func NewExtractor(p provider.ModelProvider) *Extractor {
	return &Extractor{provider: p}
}

func (e *Extractor) Extract(ctx context.Context, text string) CaseSnapshot {
	if e != nil && e.provider != nil && e.provider.Enabled() {
		if snap, ok := e.extractWithModel(ctx, text); ok {
			return snap
		}
	}
	return heuristicExtract(text)
}

func (e *Extractor) extractWithModel(ctx context.Context, text string) (CaseSnapshot, bool) {
	raw, err := e.provider.Call(ctx, provider.ChatPayload{
		System:     extractSystemPrompt,
		User:       text,
		ExpectJSON: true,
		Purpose:    "triage-extract",
	})
	if err != nil {
		logger.Warnf("intake: model extraction failed, using heuristics: %v", err)
		return CaseSnapshot{}, false
	}
	body, ok := jsonutil.ExtractJSON(raw)
	if !ok || !gjson.Valid(body) {
		logger.Warnf("intake: model returned no parseable JSON, using heuristics")
		return CaseSnapshot{}, false
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return CaseSnapshot{}, false
	}
	if err := extractSchema.Validate(doc); err != nil {
		logger.Warnf("intake: model output failed schema validation: %v", err)
		return CaseSnapshot{}, false
	}

	parsed := gjson.Parse(body)
	var snap CaseSnapshot
	if v := parsed.Get("num_dividas"); v.Exists() {
		snap.NumDebts = int(v.Int())
	}
	snap.Creditors = strings.TrimSpace(parsed.Get("credores").String())
	snap.ApproxAmounts = strings.TrimSpace(parsed.Get("valores_aprox").String())
	snap.ArrearsSince = strings.TrimSpace(parsed.Get("inadimplencia").String())
	if v := parsed.Get("negociacao_previa"); v.Exists() {
		b := v.Bool()
		snap.PriorNegotiation = &b
	}
	if v := parsed.Get("aceita_negativacao"); v.Exists() {
		b := v.Bool()
		snap.AcceptsNegativation = &b
	}
	return snap, true
}

var (
	reDebtCount = regexp.MustCompile(`(\d+)\s+d[ií]vidas?`)
	reAmount    = regexp.MustCompile(`(?i)R\$\s*[\d.,]+(?:\s*(?:mil|reais))?`)
	reSince     = regexp.MustCompile(`(?i)(?:h[áa]|desde|faz)\s+((?:\d+|um|uma|dois|duas|tr[êe]s)\s+(?:dias?|meses?|m[êe]s|anos?|semanas?))`)
)

// heuristicExtract is the deterministic fallback: coarse, but never invents
// a fact that is not literally present in the message.
func heuristicExtract(text string) CaseSnapshot {
	var snap CaseSnapshot
	folded := strings.ToLower(text)

	if m := reDebtCount.FindStringSubmatch(folded); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			snap.NumDebts = n
		}
	} else if strings.Contains(folded, "uma dívida") || strings.Contains(folded, "uma divida") {
		snap.NumDebts = 1
	}

	if amounts := reAmount.FindAllString(text, -1); len(amounts) > 0 {
		snap.ApproxAmounts = strings.Join(amounts, ", ")
	}

	if m := reSince.FindStringSubmatch(text); m != nil {
		snap.ArrearsSince = strings.TrimSpace(m[1])
	}

	if strings.Contains(folded, "já tentei negociar") || strings.Contains(folded, "ja tentei negociar") ||
		strings.Contains(folded, "já negociei") || strings.Contains(folded, "ja negociei") {
		yes := true
		snap.PriorNegotiation = &yes
	} else if strings.Contains(folded, "nunca tentei negociar") || strings.Contains(folded, "nunca negociei") {
		no := false
		snap.PriorNegotiation = &no
	}

	if strings.Contains(folded, "aceito ficar negativado") || strings.Contains(folded, "aceito a negativação") ||
		strings.Contains(folded, "aceito a negativacao") {
		yes := true
		snap.AcceptsNegativation = &yes
	} else if strings.Contains(folded, "não aceito ficar negativado") || strings.Contains(folded, "nao aceito ficar negativado") {
		no := false
		snap.AcceptsNegativation = &no
	}

	return snap
}

// Summary renders the captured snapshot for confirmation with the debtor.
func Summary(s CaseSnapshot) string {
	var b strings.Builder
	b.WriteString("Resumo do caso:")
	if s.NumDebts > 0 {
		fmt.Fprintf(&b, " %d dívida(s);", s.NumDebts)
	}
	if s.Creditors != "" {
		fmt.Fprintf(&b, " credores: %s;", s.Creditors)
	}
	if s.ApproxAmounts != "" {
		fmt.Fprintf(&b, " valores: %s;", s.ApproxAmounts)
	}
	if s.ArrearsSince != "" {
		fmt.Fprintf(&b, " em atraso: %s;", s.ArrearsSince)
	}
	if s.PriorNegotiation != nil {
		if *s.PriorNegotiation {
			b.WriteString(" já houve tentativa de negociação;")
		} else {
			b.WriteString(" sem negociação prévia;")
		}
	}
	if s.AcceptsNegativation != nil {
		if *s.AcceptsNegativation {
			b.WriteString(" aceita negativação temporária.")
		} else {
			b.WriteString(" não aceita negativação.")
		}
	}
	return strings.TrimRight(b.String(), ";")
}
