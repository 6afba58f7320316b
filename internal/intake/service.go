package intake

import (
	"context"
	"errors"
	"strings"
	"sync"

	"reclamai/internal/guardrail"
	"reclamai/internal/logger"
	"reclamai/internal/store/caselog"
	"reclamai/internal/types"
)

// Service runs triage conversations. Snapshots live in memory keyed by case
// id; the caselog keeps the durable conversation trail.
type Service struct {
	mu        sync.Mutex
	snapshots map[string]*CaseSnapshot

	checker   *guardrail.Checker
	moderator *guardrail.Moderator
	extractor *Extractor
	caseLog   *caselog.CaseLogStore
}

func NewService(checker *guardrail.Checker, moderator *guardrail.Moderator, extractor *Extractor, caseLog *caselog.CaseLogStore) *Service {
	return &Service{
		snapshots: make(map[string]*CaseSnapshot),
		checker:   checker,
		moderator: moderator,
		extractor: extractor,
		caseLog:   caseLog,
	}
}

// Reply is the service's answer to one debtor message.
type Reply struct {
	Snapshot CaseSnapshot `json:"snapshot"`
	Message  string       `json:"message"`
	Ready    bool         `json:"ready"`
}

// HandleMessage screens, records and digests one turn. Guardrail rejections
// surface as ErrInputRejected with the reason; everything else degrades to
// asking again.
func (s *Service) HandleMessage(ctx context.Context, caseID, text string) (Reply, error) {
	if strings.TrimSpace(caseID) == "" {
		return Reply{}, types.NewValidationError("case_id", "required")
	}
	if s.checker != nil {
		if err := s.checker.Check(text); err != nil {
			if errors.Is(err, types.ErrInputRejected) && s.caseLog != nil {
				s.caseLog.AppendEvent(ctx, caseID, "guardrail_reject", err.Error())
			}
			return Reply{}, err
		}
	}
	if err := s.moderator.Check(ctx, text); err != nil {
		if errors.Is(err, types.ErrInputRejected) && s.caseLog != nil {
			s.caseLog.AppendEvent(ctx, caseID, "guardrail_reject", err.Error())
		}
		return Reply{}, err
	}
	if s.caseLog != nil {
		_ = s.caseLog.AppendMessage(ctx, caseID, "debtor", text)
	}

	extracted := s.extractor.Extract(ctx, text)

	s.mu.Lock()
	snap, ok := s.snapshots[caseID]
	if !ok {
		snap = &CaseSnapshot{CaseID: caseID}
		s.snapshots[caseID] = snap
	}
	snap.Merge(extracted)
	current := *snap
	s.mu.Unlock()

	reply := buildReply(current)
	if s.caseLog != nil {
		_ = s.caseLog.AppendMessage(ctx, caseID, "assistant", reply.Message)
		if reply.Ready {
			s.caseLog.AppendEvent(ctx, caseID, "triage_complete", "")
		}
	}
	logger.Debugf("intake: case=%s missing=%v", caseID, current.MissingFields())
	return reply, nil
}

// Snapshot returns a copy of the case's current snapshot.
func (s *Service) Snapshot(caseID string) (CaseSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[caseID]
	if !ok {
		return CaseSnapshot{}, false
	}
	return *snap, true
}

// History exposes the durable conversation trail for a case.
func (s *Service) History(ctx context.Context, caseID string, limit int) ([]caselog.MessageRecord, error) {
	if s.caseLog == nil {
		return nil, nil
	}
	return s.caseLog.History(ctx, caseID, limit)
}

func buildReply(snap CaseSnapshot) Reply {
	if snap.Ready() {
		return Reply{
			Snapshot: snap,
			Ready:    true,
			Message:  Summary(snap) + " Com essas informações já posso montar as propostas de renegociação.",
		}
	}
	questions := snap.MissingQuestions()
	msg := "Para montar a melhor estratégia, ainda preciso saber: " + strings.Join(questions, "; ") + "."
	return Reply{Snapshot: snap, Message: msg}
}
