package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"venue_hotel/internal/domain"
)

type WeddingService struct {
	repo      domain.WeddingRepository
	validDays int
	now       func() time.Time
}

func NewWeddingService(r domain.WeddingRepository, validDays int) *WeddingService {
	if validDays <= 0 {
		validDays = 30
	}
	return &WeddingService{repo: r, validDays: validDays, now: time.Now}
}

func (s *WeddingService) WithClock(now func() time.Time) *WeddingService {
	s.now = now
	return s
}

func (s *WeddingService) withStatus(p domain.WeddingProposal) domain.WeddingProposal {
	p.Status = p.EffectiveStatus(s.now())
	return p
}

func (s *WeddingService) Create(ctx context.Context, p domain.WeddingProposal) (domain.WeddingProposal, error) {
	p.CoupleNames = strings.TrimSpace(p.CoupleNames)
	p.Email = strings.TrimSpace(p.Email)
	p.EventDate = domain.Day(p.EventDate)
	if err := p.Validate(); err != nil {
		return domain.WeddingProposal{}, err
	}
	today := domain.Day(s.now())
	if !p.EventDate.After(today) {
		return domain.WeddingProposal{}, domain.Invalid("eventDate", "must be in the future")
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = today.AddDate(0, 0, s.validDays)
	}
	p.ValidUntil = domain.Day(p.ValidUntil)
	p.Token = uuid.NewString()
	p.Status = domain.ProposalDraft
	p.CoupleComment = ""
	p.Recalculate()
	return s.repo.CreateProposal(ctx, p)
}

func (s *WeddingService) Get(ctx context.Context, id int64) (domain.WeddingProposal, error) {
	p, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	return s.withStatus(p), nil
}

func (s *WeddingService) List(ctx context.Context, q domain.ProposalQuery) ([]domain.WeddingProposal, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	// expired is derived, so it is filtered after loading the sent ones
	var wantExpired bool
	if q.Status != nil && *q.Status == domain.ProposalExpired {
		wantExpired = true
		sent := domain.ProposalSent
		q.Status = &sent
	}
	ps, err := s.repo.ListProposals(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WeddingProposal, 0, len(ps))
	for _, p := range ps {
		p = s.withStatus(p)
		switch {
		case wantExpired && p.Status != domain.ProposalExpired:
			continue
		case !wantExpired && q.Status != nil && p.Status != *q.Status:
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ReplaceItems swaps all line items of a draft and recomputes its totals.
func (s *WeddingService) ReplaceItems(ctx context.Context, id int64, items []domain.ProposalItem) (domain.WeddingProposal, error) {
	p, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	if p.Status != domain.ProposalDraft {
		return domain.WeddingProposal{}, fmt.Errorf("%w: proposal is %s, only drafts can be edited", domain.ErrInvalidTransition, p.Status)
	}
	p.Items = items
	if err := p.Validate(); err != nil {
		return domain.WeddingProposal{}, err
	}
	p.Recalculate()
	if err := s.repo.UpdateProposal(ctx, p, domain.ProposalDraft); err != nil {
		return domain.WeddingProposal{}, err
	}
	return p, nil
}

func (s *WeddingService) Send(ctx context.Context, id int64) (domain.WeddingProposal, error) {
	p, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	if p.Status != domain.ProposalDraft {
		return domain.WeddingProposal{}, fmt.Errorf("%w: proposal %s -> %s", domain.ErrInvalidTransition, p.Status, domain.ProposalSent)
	}
	if len(p.Items) == 0 {
		return domain.WeddingProposal{}, domain.Invalid("items", "a proposal needs at least one item to be sent")
	}
	if domain.Day(s.now()).After(p.ValidUntil) {
		return domain.WeddingProposal{}, domain.Invalid("validUntil", "is already in the past")
	}
	p.Status = domain.ProposalSent
	if err := s.repo.UpdateProposal(ctx, p, domain.ProposalDraft); err != nil {
		return domain.WeddingProposal{}, err
	}
	return p, nil
}

// View is the couple's portal read. Drafts are invisible to the couple.
func (s *WeddingService) View(ctx context.Context, token string) (domain.WeddingProposal, error) {
	if _, err := uuid.Parse(token); err != nil {
		return domain.WeddingProposal{}, domain.ErrNotFound
	}
	p, err := s.repo.GetProposalByToken(ctx, token)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	if p.Status == domain.ProposalDraft {
		return domain.WeddingProposal{}, domain.ErrNotFound
	}
	return s.withStatus(p), nil
}

func (s *WeddingService) respond(ctx context.Context, token string, to domain.ProposalStatus, comment string) (domain.WeddingProposal, error) {
	p, err := s.View(ctx, token)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	if p.Status != domain.ProposalSent {
		return domain.WeddingProposal{}, fmt.Errorf("%w: proposal %s -> %s", domain.ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	p.CoupleComment = strings.TrimSpace(comment)
	if err := s.repo.UpdateProposal(ctx, p, domain.ProposalSent); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.WeddingProposal{}, fmt.Errorf("%w: proposal was answered already", domain.ErrInvalidTransition)
		}
		return domain.WeddingProposal{}, err
	}
	return p, nil
}

func (s *WeddingService) Accept(ctx context.Context, token, comment string) (domain.WeddingProposal, error) {
	return s.respond(ctx, token, domain.ProposalAccepted, comment)
}

func (s *WeddingService) Decline(ctx context.Context, token, comment string) (domain.WeddingProposal, error) {
	return s.respond(ctx, token, domain.ProposalDeclined, comment)
}
