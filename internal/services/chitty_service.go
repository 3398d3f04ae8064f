// Package services orchestrates the chit-fund domain operations on top of
// the storage and messaging boundaries.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"chitfund/internal/core"
	"chitfund/internal/storage"
)

// CreateChittyRequest carries the inputs for registering a new chitty. The
// two installment rates are derived from Amount and TotalMonths, not
// supplied by the caller.
type CreateChittyRequest struct {
	Name         string
	Amount       core.Money
	TotalMembers int
	TotalMonths  int
	MemberNames  []string
}

// ChittyService is the group registry: it creates chitties with their member
// rosters and answers membership queries. Chitties and members are created
// together and are append-only afterwards.
type ChittyService struct {
	store storage.Store

	// requireFullCycle rejects funds shorter than their member count, so
	// every member keeps one lift opportunity. Policy, not a hard rule.
	requireFullCycle bool
}

func NewChittyService(store storage.Store, requireFullCycle bool) *ChittyService {
	return &ChittyService{store: store, requireFullCycle: requireFullCycle}
}

// CreateChitty validates the request, derives the installment rates and
// persists the chitty together with one member per name, in the given order.
// Nothing is written when validation fails.
func (s *ChittyService) CreateChitty(ctx context.Context, req CreateChittyRequest) (*core.Chitty, error) {
	if len(req.MemberNames) != req.TotalMembers {
		return nil, fmt.Errorf("%w: %d member names for %d members",
			core.ErrValidation, len(req.MemberNames), req.TotalMembers)
	}
	for i, name := range req.MemberNames {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: member name %d is empty", core.ErrValidation, i+1)
		}
	}
	if s.requireFullCycle && req.TotalMonths < req.TotalMembers {
		return nil, fmt.Errorf("%w: %d months is shorter than the %d-member cycle",
			core.ErrValidation, req.TotalMonths, req.TotalMembers)
	}
	if req.TotalMonths < 1 {
		return nil, fmt.Errorf("%w: total months must be at least 1", core.ErrValidation)
	}
	if req.Amount.Cents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", core.ErrValidation)
	}
	if req.TotalMembers <= 0 {
		return nil, fmt.Errorf("%w: total members must be positive", core.ErrValidation)
	}

	regular, lifted := core.DerivePayments(req.Amount, req.TotalMonths)

	now := time.Now().UTC().Truncate(time.Second)
	chitty := &core.Chitty{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Amount:         req.Amount,
		TotalMembers:   req.TotalMembers,
		TotalMonths:    req.TotalMonths,
		RegularPayment: regular,
		LiftedPayment:  lifted,
		StartDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	members := make([]*core.Member, 0, len(req.MemberNames))
	for i, name := range req.MemberNames {
		m := &core.Member{
			ID:        uuid.NewString(),
			ChittyID:  chitty.ID,
			Name:      strings.TrimSpace(name),
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		}
		members = append(members, m)
		chitty.MemberIDs = append(chitty.MemberIDs, m.ID)
	}

	if err := chitty.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateChitty(ctx, chitty, members); err != nil {
		return nil, fmt.Errorf("create chitty: %w", err)
	}

	slog.InfoContext(ctx, "Chitty created",
		"chitty_id", chitty.ID,
		"name", chitty.Name,
		"members", len(members),
		"regular_payment", chitty.RegularPayment,
		"lifted_payment", chitty.LiftedPayment)

	return chitty, nil
}

// ListChitties returns all chitties in creation order.
func (s *ChittyService) ListChitties(ctx context.Context) ([]core.Chitty, error) {
	return s.store.ListChitties(ctx)
}

// GetChitty returns one chitty; the error wraps core.ErrNotFound if absent.
func (s *ChittyService) GetChitty(ctx context.Context, id string) (*core.Chitty, error) {
	return s.store.GetChitty(ctx, id)
}

// ListMembers returns a chitty's members in creation order. lifted filters
// on the has-lifted flag when non-nil.
func (s *ChittyService) ListMembers(ctx context.Context, chittyID string, lifted *bool) ([]core.Member, error) {
	if _, err := s.store.GetChitty(ctx, chittyID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, chittyID)
	if err != nil {
		return nil, err
	}
	if lifted == nil {
		return members, nil
	}
	filtered := make([]core.Member, 0, len(members))
	for _, m := range members {
		if m.HasLifted == *lifted {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// GetMember returns one member by id.
func (s *ChittyService) GetMember(ctx context.Context, id string) (*core.Member, error) {
	return s.store.GetMember(ctx, id)
}
