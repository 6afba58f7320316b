// Package proposal derives candidate renegotiation terms from ledger facts
// and retrieved knowledge, then ranks them by debtor benefit. Feasibility is
// fully deterministic; the language model only phrases rationale text.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reclamai/internal/config"
	"reclamai/internal/config/loader"
	"reclamai/internal/knowledge"
	"reclamai/internal/logger"
	"reclamai/internal/pkg/money"
	"reclamai/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phraser turns a finished candidate into rationale prose. Implementations
// wrap the reasoning backend; errors and timeouts never fail generation.
type Phraser interface {
	Phrase(ctx context.Context, ob types.Obligation, p types.Proposal) (string, error)
}

// Constraints narrows regeneration after a creditor counter-offer: the
// revised proposal must not cross the terms the creditor already refused.
type Constraints struct {
	MinAnnualRate   *decimal.Decimal
	MaxInstallments int
	MaxDiscountPct  *decimal.Decimal
}

// ConstraintsFromCounter derives bounds from the creditor's counter terms.
func ConstraintsFromCounter(counter types.Proposal) Constraints {
	var c Constraints
	switch counter.Kind {
	case types.KindRateReduction:
		if counter.NewRate != nil {
			r := *counter.NewRate
			c.MinAnnualRate = &r
		}
	case types.KindInstallment:
		if counter.InstallmentCount > 0 {
			c.MaxInstallments = counter.InstallmentCount
		}
	case types.KindLumpSum:
		if counter.DiscountPct.Sign() > 0 {
			d := counter.DiscountPct
			c.MaxDiscountPct = &d
		}
	}
	return c
}

// Generator builds candidate proposals for a single obligation.
type Generator struct {
	retriever knowledge.Retriever
	phraser   Phraser
	profiles  *loader.Manager
	policy    config.PolicyConfig

	aiTimeout        time.Duration
	retrievalTimeout time.Duration
}

// GeneratorParams groups the generator dependencies.
type GeneratorParams struct {
	Retriever        knowledge.Retriever
	Phraser          Phraser
	Profiles         *loader.Manager
	Policy           config.PolicyConfig
	AITimeout        time.Duration
	RetrievalTimeout time.Duration
}

// NewGenerator wires a generator. Retriever may be nil in tests; phraser and
// profiles are optional.
func NewGenerator(p GeneratorParams) *Generator {
	if p.AITimeout <= 0 {
		p.AITimeout = 30 * time.Second
	}
	if p.RetrievalTimeout <= 0 {
		p.RetrievalTimeout = 5 * time.Second
	}
	return &Generator{
		retriever:        p.Retriever,
		phraser:          p.Phraser,
		profiles:         p.Profiles,
		policy:           p.Policy,
		aiTimeout:        p.AITimeout,
		retrievalTimeout: p.RetrievalTimeout,
	}
}

// GenerateOptions carries per-call inputs.
type GenerateOptions struct {
	// Share is the slice of disposable income allotted to this obligation.
	Share decimal.Decimal
	// Constraints from the latest counter-offer, nil on the first round.
	Constraints *Constraints
	TraceID     string
}

// Generate produces the surviving candidates for one obligation, rationale
// attached. Returns ErrNoFeasibleProposal when every candidate is dropped.
func (g *Generator) Generate(ctx context.Context, profile types.DebtorProfile, ob types.Obligation, opts GenerateOptions) ([]types.Proposal, error) {
	snippets := g.retrieve(ctx, ob, profile.RiskTolerance)

	var candidates []types.Proposal
	if p, err := g.rateReduction(ob, opts); err == nil {
		candidates = append(candidates, p)
	} else if !errors.Is(err, errCandidateSkipped) {
		logger.Debugf("generator: rate reduction dropped obligation=%s err=%v", ob.ID, err)
	}
	if p, err := g.installmentPlan(ob, opts); err == nil {
		candidates = append(candidates, p)
	} else if !errors.Is(err, errCandidateSkipped) {
		logger.Debugf("generator: installment plan dropped obligation=%s err=%v", ob.ID, err)
	}
	if p, err := g.lumpSum(ob, profile.RiskTolerance, opts); err == nil {
		candidates = append(candidates, p)
	} else if !errors.Is(err, errCandidateSkipped) {
		logger.Debugf("generator: lump sum dropped obligation=%s err=%v", ob.ID, err)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: obligation %s", types.ErrNoFeasibleProposal, ob.ID)
	}

	for i := range candidates {
		candidates[i].TraceID = opts.TraceID
		candidates[i].Rationale = matchSnippets(snippets, ob.CreditorType, candidates[i].Kind)
		candidates[i].RationaleText = g.phrase(ctx, ob, candidates[i])
	}
	return candidates, nil
}

// errCandidateSkipped marks a candidate that simply does not apply (as
// opposed to one that violated a bound and is worth logging).
var errCandidateSkipped = errors.New("candidate not applicable")

func (g *Generator) retrieve(ctx context.Context, ob types.Obligation, tolerance types.RiskTolerance) []types.KnowledgeSnippet {
	if g.retriever == nil {
		return nil
	}
	query := BuildQuery(ob, tolerance, g.policy.ChronicDefaultDays)
	rctx, cancel := context.WithTimeout(ctx, g.retrievalTimeout)
	defer cancel()
	snippets, err := g.retriever.Search(rctx, query, g.policy.TopKSnippets)
	if err != nil {
		// Retrieval failure is not fatal: the proposal simply carries an
		// empty rationale set.
		logger.Warnf("generator: retrieval degraded obligation=%s err=%v", ob.ID, err)
		return nil
	}
	return snippets
}

func (g *Generator) creditorProfile(ob types.Obligation) loader.CreditorProfile {
	if g.profiles == nil {
		return loader.CreditorProfile{}
	}
	p, _ := g.profiles.ProfileFor(ob.CreditorType)
	return p
}

// rateReduction proposes a lower annual rate. Beyond the chronic-default
// threshold the debtor is assumed settlement-bound and no rate relief is
// ever offered.
func (g *Generator) rateReduction(ob types.Obligation, opts GenerateOptions) (types.Proposal, error) {
	if ob.ArrearsDays >= g.policy.ChronicDefaultDays {
		return types.Proposal{}, errCandidateSkipped
	}
	if ob.Principal.Sign() == 0 {
		return types.Proposal{}, errCandidateSkipped
	}
	factor := g.policy.RateReductionFactor
	if p := g.creditorProfile(ob); p.RateReductionFactor > 0 {
		factor = p.RateReductionFactor
	}
	newRate := ob.AnnualRate.Mul(decimal.NewFromFloat(factor))
	floor := decimal.NewFromFloat(g.policy.MinAnnualRate)
	if newRate.Cmp(floor) < 0 {
		newRate = floor
	}
	if opts.Constraints != nil && opts.Constraints.MinAnnualRate != nil && newRate.Cmp(*opts.Constraints.MinAnnualRate) < 0 {
		newRate = *opts.Constraints.MinAnnualRate
	}
	if newRate.Cmp(ob.AnnualRate) >= 0 {
		return types.Proposal{}, fmt.Errorf("%w: no room below current rate", types.ErrInfeasibleTerm)
	}
	term := g.policy.ReliefTermMonths
	base := ob.Principal.Add(ob.ArrearsAmount)
	payment := money.AmortizedPayment(base, newRate, term)
	oldInterest := money.InterestOver(base, ob.AnnualRate, term)
	newInterest := money.InterestOver(base, newRate, term)
	return types.Proposal{
		ID:              uuid.NewString(),
		ObligationID:    ob.ID,
		Kind:            types.KindRateReduction,
		NewRate:         &newRate,
		MonthlyPayment:  payment,
		InterestSaved:   oldInterest.Sub(newInterest),
		BurdenReduction: ob.MinimumPayment.Sub(payment),
		CreatedAt:       time.Now(),
	}, nil
}

// installmentPlan finds the shortest plan whose payment fits the income
// share. The horizon bound is a hard policy limit.
func (g *Generator) installmentPlan(ob types.Obligation, opts GenerateOptions) (types.Proposal, error) {
	base := ob.Principal.Add(ob.ArrearsAmount)
	if base.Sign() == 0 {
		return types.Proposal{}, errCandidateSkipped
	}
	if opts.Share.Sign() <= 0 {
		return types.Proposal{}, fmt.Errorf("%w: no disposable income share", types.ErrInfeasibleTerm)
	}
	horizon := g.policy.MaxInstallmentHorizon
	if opts.Constraints != nil && opts.Constraints.MaxInstallments > 0 && opts.Constraints.MaxInstallments < horizon {
		horizon = opts.Constraints.MaxInstallments
	}
	for n := 1; n <= horizon; n++ {
		payment := money.AmortizedPayment(base, ob.AnnualRate, n)
		if payment.Cmp(opts.Share) > 0 {
			continue
		}
		return types.Proposal{
			ID:               uuid.NewString(),
			ObligationID:     ob.ID,
			Kind:             types.KindInstallment,
			InstallmentCount: n,
			MonthlyPayment:   payment,
			InterestSaved:    decimal.Zero,
			BurdenReduction:  ob.MinimumPayment.Sub(payment),
			CreatedAt:        time.Now(),
		}, nil
	}
	return types.Proposal{}, fmt.Errorf("%w: payment exceeds income share even at %d installments",
		types.ErrInfeasibleTerm, horizon)
}

// lumpSum proposes settling below principal. Never offered while the
// obligation has zero arrears.
func (g *Generator) lumpSum(ob types.Obligation, tolerance types.RiskTolerance, opts GenerateOptions) (types.Proposal, error) {
	if ob.ArrearsAmount.Sign() == 0 {
		return types.Proposal{}, errCandidateSkipped
	}
	if ob.ArrearsDays < g.policy.SettlementMinArrearsDays {
		return types.Proposal{}, errCandidateSkipped
	}
	if ob.Principal.Sign() == 0 {
		return types.Proposal{}, errCandidateSkipped
	}
	maxPct := g.policy.MaxMarkdownPct
	if p := g.creditorProfile(ob); p.MaxMarkdownPct > 0 && p.MaxMarkdownPct < maxPct {
		maxPct = p.MaxMarkdownPct
	}
	discount := maxPct
	switch tolerance {
	case types.RiskLow:
		discount = maxPct * 0.5
	case types.RiskModerate:
		discount = maxPct * 0.75
	}
	pct := decimal.NewFromFloat(discount)
	if opts.Constraints != nil && opts.Constraints.MaxDiscountPct != nil && pct.Cmp(*opts.Constraints.MaxDiscountPct) > 0 {
		pct = *opts.Constraints.MaxDiscountPct
	}
	if pct.Sign() <= 0 {
		return types.Proposal{}, fmt.Errorf("%w: markdown fully constrained away", types.ErrInfeasibleTerm)
	}
	settlement := money.ApplyDiscount(ob.Principal, pct)
	markdown := ob.Principal.Sub(settlement)
	avoided := money.InterestOver(ob.Principal, ob.AnnualRate, g.policy.ReliefTermMonths)
	newPrincipal := settlement
	return types.Proposal{
		ID:               uuid.NewString(),
		ObligationID:     ob.ID,
		Kind:             types.KindLumpSum,
		NewPrincipal:     &newPrincipal,
		DiscountPct:      pct,
		SettlementAmount: settlement,
		MonthlyPayment:   decimal.Zero,
		InterestSaved:    markdown.Add(avoided),
		BurdenReduction:  ob.MinimumPayment,
		CreatedAt:        time.Now(),
	}, nil
}

func (g *Generator) phrase(ctx context.Context, ob types.Obligation, p types.Proposal) string {
	if g.phraser == nil {
		return TemplateRationale(ob, p)
	}
	pctx, cancel := context.WithTimeout(ctx, g.aiTimeout)
	defer cancel()
	text, err := g.phraser.Phrase(pctx, ob, p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", types.ErrGenerationTimeout, err)
		}
		logger.Warnf("generator: rationale phrasing degraded obligation=%s err=%v", ob.ID, err)
		return TemplateRationale(ob, p)
	}
	return text
}
