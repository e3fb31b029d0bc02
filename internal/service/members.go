package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository"
	"github.com/unionhall/pit-reservations/internal/validate"
	"github.com/unionhall/pit-reservations/pkg/logger"
)

type MemberService interface {
	Lookup(ctx context.Context, memberID string) (*domain.Member, error)
	// CheckEligibility returns nil when the member may reserve, otherwise an
	// eligibility error whose message distinguishes not-found, inactive and
	// delinquent.
	CheckEligibility(ctx context.Context, memberID string) (*domain.Member, error)
	Register(ctx context.Context, req *RegisterMemberRequest) (*domain.Member, error)
	SetDuesStanding(ctx context.Context, memberID string, standing domain.DuesStanding) (*domain.Member, error)
	Deactivate(ctx context.Context, memberID string) (*domain.Member, error)
	List(ctx context.Context, onlyActive bool) ([]domain.Member, error)
	ListDelinquent(ctx context.Context) ([]domain.Member, error)
}

type RegisterMemberRequest struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
}

type memberService struct {
	members repository.MemberRepo
}

func NewMemberService(members repository.MemberRepo) MemberService {
	return &memberService{members: members}
}

func (s *memberService) Lookup(ctx context.Context, memberID string) (*domain.Member, error) {
	id := validate.NormalizeNationalID(memberID)
	m, err := s.members.GetByNationalID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if m == nil {
		return nil, domain.NotFoundError("member not found")
	}
	return m, nil
}

func (s *memberService) CheckEligibility(ctx context.Context, memberID string) (*domain.Member, error) {
	id := validate.NormalizeNationalID(memberID)
	m, err := s.members.GetByNationalID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("eligibility lookup: %w", err)
	}
	if m == nil {
		return nil, domain.EligibilityError("member not found in the directory")
	}
	if !m.Active {
		return nil, domain.EligibilityError("membership is inactive")
	}
	if m.Standing != domain.DuesCurrent {
		return nil, domain.EligibilityError("membership dues are delinquent")
	}
	return m, nil
}

func (s *memberService) Register(ctx context.Context, req *RegisterMemberRequest) (*domain.Member, error) {
	if ok, msg := validate.NationalID(req.NationalID); !ok {
		return nil, domain.ValidationError("%s", msg)
	}
	if ok, msg := validate.HolderName(req.Name); !ok {
		return nil, domain.ValidationError("%s", msg)
	}
	if ok, msg := validate.Email(req.Email); !ok {
		return nil, domain.ValidationError("%s", msg)
	}

	m := &domain.Member{
		NationalID: validate.NormalizeNationalID(req.NationalID),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      strings.TrimSpace(req.Phone),
		Standing:   domain.DuesCurrent,
		Active:     true,
	}

	created, err := s.members.Create(ctx, m)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "member registered", "member_id", created.NationalID, "name", created.Name)
	return created, nil
}

func (s *memberService) SetDuesStanding(ctx context.Context, memberID string, standing domain.DuesStanding) (*domain.Member, error) {
	m, err := s.Lookup(ctx, memberID)
	if err != nil {
		return nil, err
	}

	m.Standing = standing
	if standing == domain.DuesCurrent {
		now := time.Now()
		m.LastPaymentAt = &now
	}

	if err := s.members.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update member standing: %w", err)
	}

	logger.InfoContext(ctx, "member standing updated", "member_id", m.NationalID, "standing", string(standing))
	return m, nil
}

func (s *memberService) Deactivate(ctx context.Context, memberID string) (*domain.Member, error) {
	m, err := s.Lookup(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, domain.StateError("membership is already inactive")
	}

	m.Active = false
	if err := s.members.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("deactivate member: %w", err)
	}

	logger.InfoContext(ctx, "member deactivated", "member_id", m.NationalID)
	return m, nil
}

func (s *memberService) List(ctx context.Context, onlyActive bool) ([]domain.Member, error) {
	return s.members.List(ctx, onlyActive)
}

func (s *memberService) ListDelinquent(ctx context.Context) ([]domain.Member, error) {
	return s.members.ListDelinquent(ctx)
}
