// Package memory provides an in-memory Store used in tests and as the
// zero-setup development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chitfund/internal/core"
	"chitfund/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	chitties map[string]*core.Chitty
	members  map[string]*core.Member
	slips    map[string]*core.MonthlySlip
	order    []string // chitty ids in creation order
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		chitties: make(map[string]*core.Chitty),
		members:  make(map[string]*core.Member),
		slips:    make(map[string]*core.MonthlySlip),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateChitty(_ context.Context, chitty *core.Chitty, members []*core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *chitty
	c.MemberIDs = append([]string(nil), chitty.MemberIDs...)
	s.chitties[c.ID] = &c
	s.order = append(s.order, c.ID)
	for _, m := range members {
		cp := *m
		s.members[cp.ID] = &cp
	}
	return nil
}

func (s *Store) GetChitty(_ context.Context, id string) (*core.Chitty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chitties[id]
	if !ok {
		return nil, fmt.Errorf("chitty %s: %w", id, core.ErrNotFound)
	}
	cp := *c
	cp.MemberIDs = append([]string(nil), c.MemberIDs...)
	return &cp, nil
}

func (s *Store) ListChitties(_ context.Context) ([]core.Chitty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Chitty, 0, len(s.order))
	for _, id := range s.order {
		c := s.chitties[id]
		cp := *c
		cp.MemberIDs = append([]string(nil), c.MemberIDs...)
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) ListMembers(_ context.Context, chittyID string) ([]core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Member
	for _, m := range s.members {
		if m.ChittyID == chittyID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) GetMember(_ context.Context, id string) (*core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, core.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) CreateSlip(_ context.Context, slip *core.MonthlySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.slips {
		if existing.ChittyID == slip.ChittyID && existing.Month == slip.Month {
			return fmt.Errorf("slip for chitty %s month %d already exists: %w",
				slip.ChittyID, slip.Month, core.ErrConflict)
		}
	}
	cp := copySlip(slip)
	s.slips[cp.ID] = cp
	return nil
}

func (s *Store) GetSlip(_ context.Context, id string) (*core.MonthlySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slip, ok := s.slips[id]
	if !ok {
		return nil, fmt.Errorf("slip %s: %w", id, core.ErrNotFound)
	}
	return copySlip(slip), nil
}

func (s *Store) GetSlipByMonth(_ context.Context, chittyID string, month int) (*core.MonthlySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, slip := range s.slips {
		if slip.ChittyID == chittyID && slip.Month == month {
			return copySlip(slip), nil
		}
	}
	return nil, fmt.Errorf("slip for chitty %s month %d: %w", chittyID, month, core.ErrNotFound)
}

func (s *Store) ListSlips(_ context.Context, chittyID string) ([]core.MonthlySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.MonthlySlip
	for _, slip := range s.slips {
		if slip.ChittyID == chittyID {
			out = append(out, *copySlip(slip))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) ApplyLift(_ context.Context, slipID, memberID string, month int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slip, ok := s.slips[slipID]
	if !ok {
		return fmt.Errorf("slip %s: %w", slipID, core.ErrNotFound)
	}
	m, ok := s.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, core.ErrNotFound)
	}
	rec := slip.Record(memberID)
	if rec == nil {
		return fmt.Errorf("record for member %s on slip %s: %w", memberID, slipID, core.ErrNotFound)
	}

	m.HasLifted = true
	m.LiftedMonth = month
	m.LiftedDate = at
	m.UpdatedAt = at
	slip.LiftedMemberID = memberID
	slip.UpdatedAt = at
	rec.Lifted = true
	return nil
}

func (s *Store) SetPaymentStatus(_ context.Context, slipID, memberID string, paid bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slip, ok := s.slips[slipID]
	if !ok {
		return fmt.Errorf("slip %s: %w", slipID, core.ErrNotFound)
	}
	rec := slip.Record(memberID)
	if rec == nil {
		return fmt.Errorf("record for member %s on slip %s: %w", memberID, slipID, core.ErrNotFound)
	}

	rec.Paid = paid
	if paid {
		rec.PaymentDate = at
	} else {
		rec.PaymentDate = time.Time{}
	}
	slip.UpdatedAt = at
	return nil
}

func (s *Store) ReplaceSlipRecords(_ context.Context, slip *core.MonthlySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.slips[slip.ID]
	if !ok {
		return fmt.Errorf("slip %s: %w", slip.ID, core.ErrNotFound)
	}
	existing.Records = append([]core.PaymentRecord(nil), slip.Records...)
	existing.UpdatedAt = slip.UpdatedAt
	return nil
}

func (s *Store) OutstandingBalance(_ context.Context, chittyID string) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total core.Money
	for _, slip := range s.slips {
		if slip.ChittyID != chittyID {
			continue
		}
		for _, rec := range slip.Records {
			if !rec.Paid {
				total = total.Add(rec.Amount)
			}
		}
	}
	return total, nil
}

func copySlip(slip *core.MonthlySlip) *core.MonthlySlip {
	cp := *slip
	cp.Records = append([]core.PaymentRecord(nil), slip.Records...)
	return &cp
}
