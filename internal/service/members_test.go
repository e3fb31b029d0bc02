package service_test

import (
	"context"
	"testing"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository/memory"
	"github.com/unionhall/pit-reservations/internal/service"
)

func TestRegisterMember(t *testing.T) {
	store := memory.NewStore()
	members := service.NewMemberService(store.Members())
	ctx := context.Background()

	m, err := members.Register(ctx, &service.RegisterMemberRequest{
		NationalID: "529.982.247-25",
		Name:       "Maria Silva",
		Email:      "Maria@Example.org",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.NationalID != "52998224725" {
		t.Errorf("national ID not normalized: %q", m.NationalID)
	}
	if m.Email != "maria@example.org" {
		t.Errorf("email not lowercased: %q", m.Email)
	}
	if !m.Active || m.Standing != domain.DuesCurrent {
		t.Errorf("new member should be active and current: %+v", m)
	}

	_, err = members.Register(ctx, &service.RegisterMemberRequest{
		NationalID: "52998224725",
		Name:       "Maria Silva",
		Email:      "maria2@example.org",
	})
	if domain.KindOf(err) != domain.KindDuplicate {
		t.Errorf("duplicate registration error = %v, want duplicate", err)
	}

	_, err = members.Register(ctx, &service.RegisterMemberRequest{
		NationalID: "11111111111",
		Name:       "Falso Nome",
		Email:      "falso@example.org",
	})
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("invalid ID registration error = %v, want validation", err)
	}
}

func TestSetDuesStanding(t *testing.T) {
	store := memory.NewStore()
	members := service.NewMemberService(store.Members())
	ctx := context.Background()

	if _, err := members.Register(ctx, &service.RegisterMemberRequest{
		NationalID: memberCurrent, Name: "Maria Silva", Email: "maria@example.org",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	m, err := members.SetDuesStanding(ctx, memberCurrent, domain.DuesDelinquent)
	if err != nil {
		t.Fatalf("SetDuesStanding: %v", err)
	}
	if m.Standing != domain.DuesDelinquent {
		t.Errorf("standing = %v", m.Standing)
	}
	if _, err := members.CheckEligibility(ctx, memberCurrent); domain.KindOf(err) != domain.KindEligibility {
		t.Errorf("delinquent eligibility error = %v", err)
	}

	delinquent, err := members.ListDelinquent(ctx)
	if err != nil || len(delinquent) != 1 {
		t.Errorf("ListDelinquent = %v, %v", delinquent, err)
	}

	// Returning to current records the payment date.
	m, err = members.SetDuesStanding(ctx, memberCurrent, domain.DuesCurrent)
	if err != nil {
		t.Fatalf("SetDuesStanding back: %v", err)
	}
	if m.LastPaymentAt == nil {
		t.Error("returning to current should record a payment date")
	}
	if _, err := members.CheckEligibility(ctx, memberCurrent); err != nil {
		t.Errorf("current member should be eligible: %v", err)
	}
}

func TestDeactivateMember(t *testing.T) {
	store := memory.NewStore()
	members := service.NewMemberService(store.Members())
	ctx := context.Background()

	if _, err := members.Register(ctx, &service.RegisterMemberRequest{
		NationalID: memberCurrent, Name: "Maria Silva", Email: "maria@example.org",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := members.Deactivate(ctx, memberCurrent); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := members.Deactivate(ctx, memberCurrent); domain.KindOf(err) != domain.KindState {
		t.Errorf("double deactivate error = %v, want state", err)
	}
	if _, err := members.CheckEligibility(ctx, memberCurrent); domain.KindOf(err) != domain.KindEligibility {
		t.Errorf("inactive eligibility error = %v", err)
	}

	// Deactivated members stay in the directory.
	if _, err := members.Lookup(ctx, memberCurrent); err != nil {
		t.Errorf("deactivated member should still resolve: %v", err)
	}

	active, err := members.List(ctx, true)
	if err != nil || len(active) != 0 {
		t.Errorf("List(onlyActive) = %v, %v", active, err)
	}
}
