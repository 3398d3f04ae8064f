package services

import (
	"context"
	"errors"
	"testing"

	"chitfund/internal/core"
	"chitfund/internal/storage/memory"
)

func newRegistry(t *testing.T) *ChittyService {
	t.Helper()
	return NewChittyService(memory.New(), true)
}

func validCreateRequest() CreateChittyRequest {
	return CreateChittyRequest{
		Name:         "Office fund",
		Amount:       core.Money{Cents: 300000_00},
		TotalMembers: 3,
		TotalMonths:  10,
		MemberNames:  []string{"Anil", "Binu", "Chacko"},
	}
}

func TestCreateChitty(t *testing.T) {
	svc := newRegistry(t)
	ctx := context.Background()

	chitty, err := svc.CreateChitty(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	if chitty.ID == "" {
		t.Error("chitty should get an id")
	}
	if chitty.RegularPayment.Cents != 30000_00 {
		t.Errorf("regular payment = %s, want 30000.00", chitty.RegularPayment)
	}
	if chitty.LiftedPayment.Cents != 37500_00 {
		t.Errorf("lifted payment = %s, want 37500.00", chitty.LiftedPayment)
	}
	if len(chitty.MemberIDs) != 3 {
		t.Fatalf("member ids = %d, want 3", len(chitty.MemberIDs))
	}
	if chitty.StartDate.IsZero() {
		t.Error("start date should be set at creation")
	}

	members, err := svc.ListMembers(ctx, chitty.ID, nil)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}
	for i, want := range []string{"Anil", "Binu", "Chacko"} {
		if members[i].Name != want {
			t.Errorf("member %d = %q, want %q (creation order)", i, members[i].Name, want)
		}
		if members[i].HasLifted {
			t.Errorf("member %q should start not lifted", members[i].Name)
		}
		if members[i].ID != chitty.MemberIDs[i] {
			t.Errorf("member id order mismatch at %d", i)
		}
	}
}

func TestCreateChittyValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateChittyRequest)
	}{
		{name: "name count mismatch", mutate: func(r *CreateChittyRequest) { r.MemberNames = r.MemberNames[:2] }},
		{name: "blank member name", mutate: func(r *CreateChittyRequest) { r.MemberNames[1] = "  " }},
		{name: "zero amount", mutate: func(r *CreateChittyRequest) { r.Amount = core.Money{} }},
		{name: "months shorter than cycle", mutate: func(r *CreateChittyRequest) { r.TotalMonths = 2 }},
		{
			name: "zero members",
			mutate: func(r *CreateChittyRequest) {
				r.TotalMembers = 0
				r.MemberNames = nil
			},
		},
		{
			name: "amount too small for distinct rates",
			mutate: func(r *CreateChittyRequest) {
				r.Amount = core.Money{Cents: 10}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newRegistry(t)
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.CreateChitty(context.Background(), req)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			// Rejected before any mutation: the registry stays empty.
			chitties, listErr := svc.ListChitties(context.Background())
			if listErr != nil {
				t.Fatalf("ListChitties: %v", listErr)
			}
			if len(chitties) != 0 {
				t.Errorf("registry should be empty after rejected create, has %d", len(chitties))
			}
		})
	}
}

func TestCreateChittyFullCyclePolicyDisabled(t *testing.T) {
	svc := NewChittyService(memory.New(), false)

	req := validCreateRequest()
	req.TotalMonths = 2
	if _, err := svc.CreateChitty(context.Background(), req); err != nil {
		t.Fatalf("short fund should be accepted with the policy off: %v", err)
	}
}

func TestGetChittyNotFound(t *testing.T) {
	svc := newRegistry(t)
	_, err := svc.GetChitty(context.Background(), "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = svc.ListMembers(context.Background(), "nope", nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ListMembers for unknown chitty: expected ErrNotFound, got %v", err)
	}
}

func TestListMembersLiftedFilter(t *testing.T) {
	store := memory.New()
	registry := NewChittyService(store, true)
	slips := NewSlipService(store, nil)
	ctx := context.Background()

	chitty, err := registry.CreateChitty(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	slip, err := slips.GenerateSlip(ctx, chitty.ID, 1)
	if err != nil {
		t.Fatalf("GenerateSlip: %v", err)
	}
	if _, err := slips.MarkLifted(ctx, slip.ID, chitty.MemberIDs[0]); err != nil {
		t.Fatalf("MarkLifted: %v", err)
	}

	lifted := true
	got, err := registry.ListMembers(ctx, chitty.ID, &lifted)
	if err != nil {
		t.Fatalf("ListMembers lifted: %v", err)
	}
	if len(got) != 1 || got[0].ID != chitty.MemberIDs[0] {
		t.Errorf("lifted filter = %+v, want only the lifted member", got)
	}

	lifted = false
	got, err = registry.ListMembers(ctx, chitty.ID, &lifted)
	if err != nil {
		t.Fatalf("ListMembers non-lifted: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("non-lifted filter = %d members, want 2", len(got))
	}
}
