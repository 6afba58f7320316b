package model

import (
	"encoding/json"
	"time"

	"reclamai/internal/session"
	"reclamai/internal/types"
)

// FromProfile maps the domain profile onto its persistence row. Currency
// comes from the ledger, which pins it from the first obligation.
func FromProfile(p types.DebtorProfile, currency string, highRisk bool) *DebtorProfileModel {
	return &DebtorProfileModel{
		DebtorID:         p.DebtorID,
		Currency:         currency,
		DisposableIncome: p.MonthlyDisposableIncome,
		RiskTolerance:    string(p.RiskTolerance),
		HighRisk:         highRisk,
	}
}

// ToProfile rebuilds the domain profile from a row.
func (m *DebtorProfileModel) ToProfile() types.DebtorProfile {
	return types.DebtorProfile{
		DebtorID:                m.DebtorID,
		MonthlyDisposableIncome: m.DisposableIncome,
		RiskTolerance:           types.RiskTolerance(m.RiskTolerance),
	}
}

// FromObligation maps a ledger obligation onto its persistence row.
func FromObligation(debtorID string, ob types.Obligation) *ObligationModel {
	return &ObligationModel{
		ObligationID:   ob.ID,
		DebtorID:       debtorID,
		CreditorID:     ob.CreditorID,
		CreditorType:   ob.CreditorType,
		Currency:       ob.Currency,
		Principal:      ob.Principal,
		AnnualRate:     ob.AnnualRate,
		ArrearsAmount:  ob.ArrearsAmount,
		ArrearsDays:    ob.ArrearsDays,
		MinimumPayment: ob.MinimumPayment,
		Seq:            ob.Seq,
	}
}

// ToObligation rebuilds the domain obligation from a row.
func (m *ObligationModel) ToObligation() types.Obligation {
	return types.Obligation{
		ID:             m.ObligationID,
		CreditorID:     m.CreditorID,
		CreditorType:   m.CreditorType,
		Currency:       m.Currency,
		Principal:      m.Principal,
		AnnualRate:     m.AnnualRate,
		ArrearsAmount:  m.ArrearsAmount,
		ArrearsDays:    m.ArrearsDays,
		MinimumPayment: m.MinimumPayment,
		Seq:            m.Seq,
	}
}

// FromSession snapshots a live session into its persistence row. History
// slices marshal to JSON columns; a marshal failure leaves the column null
// rather than failing the save.
func FromSession(s *session.Session) *NegotiationSessionModel {
	m := &NegotiationSessionModel{
		SessionID:    s.ID,
		ObligationID: s.ObligationID,
		State:        string(s.State),
		Rounds:       s.Rounds,
		MaxRounds:    s.MaxRounds,
		DeadlineUnix: s.Deadline.Unix(),
	}
	if len(s.ProposalHistory) > 0 {
		if raw, err := json.Marshal(s.ProposalHistory); err == nil {
			m.History = raw
		}
	}
	if len(s.CounterOffers) > 0 {
		if raw, err := json.Marshal(s.CounterOffers); err == nil {
			m.CounterOffers = raw
		}
	}
	if s.Resolution != nil {
		if raw, err := json.Marshal(s.Resolution); err == nil {
			m.Resolution = raw
		}
	}
	m.CreatedAtUnix = s.CreatedAt.Unix()
	return m
}

// ToSession rebuilds a session snapshot from a row. Unparseable JSON columns
// come back empty instead of failing the read.
func (m *NegotiationSessionModel) ToSession() *session.Session {
	s := &session.Session{
		ID:           m.SessionID,
		ObligationID: m.ObligationID,
		State:        session.State(m.State),
		Rounds:       m.Rounds,
		MaxRounds:    m.MaxRounds,
		Deadline:     time.Unix(m.DeadlineUnix, 0),
		CreatedAt:    time.Unix(m.CreatedAtUnix, 0),
		UpdatedAt:    time.Unix(m.UpdatedAtUnix, 0),
	}
	if len(m.History) > 0 {
		var hist []types.Proposal
		if err := json.Unmarshal(m.History, &hist); err == nil {
			s.ProposalHistory = hist
		}
	}
	if len(m.CounterOffers) > 0 {
		var counters []types.Proposal
		if err := json.Unmarshal(m.CounterOffers, &counters); err == nil {
			s.CounterOffers = counters
		}
	}
	if len(m.Resolution) > 0 {
		var res session.Resolution
		if err := json.Unmarshal(m.Resolution, &res); err == nil {
			s.Resolution = &res
		}
	}
	return s
}
