// Package playbook renders the specialist output for a negotiation case: a
// four-section guidance document plus a formal letter the debtor can send
// to the creditor. The model polishes the prose when available; the
// deterministic templates are the contract.
package playbook

import (
	"context"
	"fmt"
	"strings"

	"reclamai/internal/gateway/provider"
	"reclamai/internal/logger"
	"reclamai/internal/types"

	"github.com/shopspring/decimal"
)

// Playbook is the full specialist deliverable for one obligation.
type Playbook struct {
	Diagnosis  string `json:"diagnosis"`
	Strategies string `json:"strategies"`
	ActionPlan string `json:"action_plan"`
	Rights     string `json:"rights"`
	Letter     string `json:"letter"`
}

// Builder assembles playbooks from ranked proposals.
type Builder struct {
	provider provider.ModelProvider
}

func NewBuilder(p provider.ModelProvider) *Builder {
	return &Builder{provider: p}
}

// Build renders the playbook for the top-ranked proposals of one
// obligation. A model failure downgrades to the pure-template rendition.
func (b *Builder) Build(ctx context.Context, profile types.DebtorProfile, ob types.Obligation, ranked []types.Proposal) Playbook {
	pb := templatePlaybook(profile, ob, ranked)
	if b == nil || b.provider == nil || !b.provider.Enabled() {
		return pb
	}
	polished, err := b.polish(ctx, pb, ob)
	if err != nil {
		logger.Warnf("playbook: model polish degraded obligation=%s err=%v", ob.ID, err)
		return pb
	}
	return polished
}

const polishSystemPrompt = `Você é um especialista em renegociação de dívidas no Brasil.
Reescreva cada seção do material abaixo em tom claro e profissional, sem alterar números,
prazos ou condições. Responda com as seções na mesma ordem, separadas por "---".`

func (b *Builder) polish(ctx context.Context, pb Playbook, ob types.Obligation) (Playbook, error) {
	user := strings.Join([]string{pb.Diagnosis, pb.Strategies, pb.ActionPlan, pb.Rights}, "\n---\n")
	raw, err := b.provider.Call(ctx, provider.ChatPayload{
		System:  polishSystemPrompt,
		User:    user,
		Purpose: "playbook-polish",
	})
	if err != nil {
		return Playbook{}, err
	}
	parts := strings.Split(raw, "---")
	if len(parts) != 4 {
		return Playbook{}, fmt.Errorf("expected 4 sections, got %d", len(parts))
	}
	return Playbook{
		Diagnosis:  strings.TrimSpace(parts[0]),
		Strategies: strings.TrimSpace(parts[1]),
		ActionPlan: strings.TrimSpace(parts[2]),
		Rights:     strings.TrimSpace(parts[3]),
		Letter:     pb.Letter,
	}, nil
}

func templatePlaybook(profile types.DebtorProfile, ob types.Obligation, ranked []types.Proposal) Playbook {
	return Playbook{
		Diagnosis:  diagnosisSection(profile, ob),
		Strategies: strategiesSection(ob, ranked),
		ActionPlan: actionPlanSection(ranked),
		Rights:     rightsSection(),
		Letter:     Letter(profile, ob, ranked),
	}
}

func diagnosisSection(profile types.DebtorProfile, ob types.Obligation) string {
	var b strings.Builder
	b.WriteString("1. Diagnóstico\n")
	fmt.Fprintf(&b, "Dívida com %s (%s): saldo de %s %s a juros anuais de %s%%",
		ob.CreditorID, ob.CreditorType, ob.Currency, ob.Principal.StringFixed(2),
		ob.AnnualRate.Mul(decimal.NewFromInt(100)).StringFixed(1))
	if ob.ArrearsDays > 0 {
		fmt.Fprintf(&b, ", com %s %s em atraso há %d dias",
			ob.Currency, ob.ArrearsAmount.StringFixed(2), ob.ArrearsDays)
	}
	fmt.Fprintf(&b, ". Renda mensal disponível declarada: %s %s.",
		ob.Currency, profile.MonthlyDisposableIncome.StringFixed(2))
	return b.String()
}

func strategiesSection(ob types.Obligation, ranked []types.Proposal) string {
	var b strings.Builder
	b.WriteString("2. Estratégias recomendadas\n")
	if len(ranked) == 0 {
		b.WriteString("Nenhuma proposta viável foi encontrada dentro da sua capacidade de pagamento atual. Reavalie a renda disponível ou busque orientação de um órgão de defesa do consumidor.")
		return b.String()
	}
	for i, p := range ranked {
		fmt.Fprintf(&b, "%d) %s\n", i+1, describeProposal(ob, p))
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeProposal(ob types.Obligation, p types.Proposal) string {
	switch p.Kind {
	case types.KindRateReduction:
		rate := ""
		if p.NewRate != nil {
			rate = p.NewRate.Mul(decimal.NewFromInt(100)).StringFixed(1) + "% a.a."
		}
		return fmt.Sprintf("Revisão de juros para %s, parcela estimada de %s %s.",
			rate, ob.Currency, p.MonthlyPayment.StringFixed(2))
	case types.KindInstallment:
		return fmt.Sprintf("Parcelamento em %d vezes de %s %s.",
			p.InstallmentCount, ob.Currency, p.MonthlyPayment.StringFixed(2))
	case types.KindLumpSum:
		return fmt.Sprintf("Quitação à vista por %s %s (desconto de %s%%).",
			ob.Currency, p.SettlementAmount.StringFixed(2),
			p.DiscountPct.Mul(decimal.NewFromInt(100)).StringFixed(0))
	}
	return "Proposta de renegociação."
}

func actionPlanSection(ranked []types.Proposal) string {
	var b strings.Builder
	b.WriteString("3. Plano de ação\n")
	b.WriteString("- Reúna contratos, extratos e comprovantes da dívida.\n")
	b.WriteString("- Apresente a proposta preferida por canal oficial do credor e guarde o protocolo.\n")
	if len(ranked) > 1 {
		b.WriteString("- Se o credor recusar, apresente a alternativa seguinte da lista.\n")
	}
	b.WriteString("- Exija o acordo por escrito antes de qualquer pagamento.")
	return b.String()
}

func rightsSection() string {
	return "4. Seus direitos\n" +
		"- O Código de Defesa do Consumidor veda cobrança vexatória (art. 42).\n" +
		"- Quitada ou renegociada a dívida, a negativação deve ser retirada em até 5 dias úteis.\n" +
		"- Juros abusivos podem ser revistos judicialmente.\n" +
		"- A Lei do Superendividamento (14.181/2021) garante a preservação do mínimo existencial."
}

// Letter renders the formal proposal letter for the top-ranked proposal.
func Letter(profile types.DebtorProfile, ob types.Obligation, ranked []types.Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prezados Senhores %s,\n\n", ob.CreditorID)
	fmt.Fprintf(&b, "Venho, por meio desta, propor a renegociação da dívida em aberto no valor de %s %s",
		ob.Currency, ob.Principal.Add(ob.ArrearsAmount).StringFixed(2))
	if ob.ArrearsDays > 0 {
		fmt.Fprintf(&b, ", em atraso há %d dias", ob.ArrearsDays)
	}
	b.WriteString(".\n\n")
	if len(ranked) > 0 {
		fmt.Fprintf(&b, "Proposta: %s\n\n", describeProposal(ob, ranked[0]))
	}
	fmt.Fprintf(&b, "A proposta reflete minha real capacidade de pagamento, com renda mensal disponível de %s %s, e demonstra boa-fé na resolução amigável do débito.\n\n",
		ob.Currency, profile.MonthlyDisposableIncome.StringFixed(2))
	b.WriteString("Solicito retorno formal por escrito e, desde já, a suspensão de medidas restritivas enquanto durar a tratativa.\n\n")
	b.WriteString("Atenciosamente,\n")
	b.WriteString(profile.DebtorID)
	return b.String()
}
